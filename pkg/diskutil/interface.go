package diskutil

import "context"

// Client 定义了与磁盘管理工具交互的接口
// 实际的磁盘 I/O 全部交给外部命令（lsblk、smartctl、badblocks、blockdev、wipefs、mkfs.*）
type Client interface {
	// EnumerateDevices 列出当前挂载的所有磁盘（不含分区）
	EnumerateDevices(ctx context.Context) ([]BlockDevice, error)
	// QueryIdentity 查询设备的序列号和型号
	QueryIdentity(ctx context.Context, deviceID string) (*Identity, error)
	// RunDiagnostic 获取完整的 SMART 报告文本
	RunDiagnostic(ctx context.Context, deviceID string) (string, error)
	// StartSelfTest 启动 SMART 自检（short/long），不等待完成
	StartSelfTest(ctx context.Context, deviceID, mode string) (string, error)
	// WipeSignature 清除设备上的文件系统签名
	WipeSignature(ctx context.Context, deviceID string) (string, error)
	// CreateFilesystem 在设备上创建文件系统
	CreateFilesystem(ctx context.Context, deviceID, fsType string) (string, error)
	// ScanBlock 检查单个块是否可读，返回 false 表示坏块
	ScanBlock(ctx context.Context, deviceID string, blockSize, blockIndex int) (bool, error)
	// ScanBlocksStream 一次扫描 [0, blockCount) 的块，通过 onProgress 回调百分比
	ScanBlocksStream(ctx context.Context, deviceID string, blockSize, blockCount int, onProgress func(percent int)) (*ScanResult, error)
	// DeviceByteSize 获取设备字节大小
	DeviceByteSize(ctx context.Context, deviceID string) (int64, error)
}

// BlockDevice 枚举得到的块设备
type BlockDevice struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	Model    string `json:"model"`
	Vendor   string `json:"vendor"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

// Identity 设备身份信息
type Identity struct {
	Serial string
	Model  string
	Vendor string
}

// ScanResult 流式坏块扫描结果
type ScanResult struct {
	BadBlocks []int
	Output    string
}
