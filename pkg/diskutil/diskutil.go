package diskutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jimyag/diskd/pkg/smartreport"
)

// Filesystems 支持的文件系统及对应的 mkfs 命令模板，设备路径追加在末尾
var Filesystems = map[string][]string{
	"ext4":  {"mkfs.ext4", "-F"},
	"xfs":   {"mkfs.xfs", "-f"},
	"fat32": {"mkfs.vfat", "-F", "32"},
}

// SelfTestModes 支持的 SMART 自检类型
var SelfTestModes = map[string]bool{
	"short": true,
	"long":  true,
}

// IsSupportedFilesystem 判断文件系统是否支持
func IsSupportedFilesystem(fs string) bool {
	_, ok := Filesystems[fs]
	return ok
}

// SupportedFilesystems 返回排序后的文件系统列表
func SupportedFilesystems() []string {
	names := make([]string, 0, len(Filesystems))
	for name := range Filesystems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DiskUtil 通过外部命令实现 Client
type DiskUtil struct {
	runner Runner
}

var _ Client = (*DiskUtil)(nil)

// New 创建 DiskUtil，runner 为 nil 时使用不限时的 ExecRunner
func New(runner Runner) *DiskUtil {
	if runner == nil {
		runner = NewExecRunner(0)
	}
	return &DiskUtil{runner: runner}
}

// DevicePath 将设备名转换为 /dev 路径
func DevicePath(deviceID string) string {
	if strings.HasPrefix(deviceID, "/") {
		return deviceID
	}
	return "/dev/" + deviceID
}

// EnumerateDevices 实现 Client 接口
func (d *DiskUtil) EnumerateDevices(ctx context.Context) ([]BlockDevice, error) {
	output, err := d.runner.Run(ctx, "lsblk", "-J", "-d", "-o", "NAME,SIZE,MODEL,VENDOR,TYPE,TRAN,HCTL")
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	devices, err := parseLsblk(output)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return devices, nil
}

// QueryIdentity 实现 Client 接口
// smartctl 的退出码是位掩码，只要有输出就尝试解析
func (d *DiskUtil) QueryIdentity(ctx context.Context, deviceID string) (*Identity, error) {
	output, err := d.runner.Run(ctx, "smartctl", "-i", DevicePath(deviceID))
	if err != nil && len(output) == 0 {
		return nil, fmt.Errorf("query identity of %s: %w", deviceID, err)
	}
	report := smartreport.Parse(string(output))
	return &Identity{
		Serial: report.Serial,
		Model:  report.Model,
		Vendor: report.Vendor,
	}, nil
}

// RunDiagnostic 实现 Client 接口
func (d *DiskUtil) RunDiagnostic(ctx context.Context, deviceID string) (string, error) {
	output, err := d.runner.Run(ctx, "smartctl", "-a", DevicePath(deviceID))
	if err != nil && len(output) == 0 {
		return "", fmt.Errorf("run diagnostic on %s: %w", deviceID, err)
	}
	return string(output), nil
}

// StartSelfTest 实现 Client 接口
func (d *DiskUtil) StartSelfTest(ctx context.Context, deviceID, mode string) (string, error) {
	if !SelfTestModes[mode] {
		return "", fmt.Errorf("unsupported self-test mode %q", mode)
	}
	output, err := d.runner.Run(ctx, "smartctl", "-t", mode, DevicePath(deviceID))
	if err != nil {
		return string(output), fmt.Errorf("start %s self-test on %s: %w", mode, deviceID, err)
	}
	return string(output), nil
}

// WipeSignature 实现 Client 接口
func (d *DiskUtil) WipeSignature(ctx context.Context, deviceID string) (string, error) {
	output, err := d.runner.Run(ctx, "wipefs", "-a", DevicePath(deviceID))
	if err != nil {
		return string(output), fmt.Errorf("wipe signature on %s: %w", deviceID, err)
	}
	return string(output), nil
}

// CreateFilesystem 实现 Client 接口
func (d *DiskUtil) CreateFilesystem(ctx context.Context, deviceID, fsType string) (string, error) {
	tmpl, ok := Filesystems[fsType]
	if !ok {
		return "", fmt.Errorf("unsupported filesystem %q", fsType)
	}
	args := append(append([]string{}, tmpl[1:]...), DevicePath(deviceID))
	output, err := d.runner.Run(ctx, tmpl[0], args...)
	if err != nil {
		return string(output), fmt.Errorf("create %s filesystem on %s: %w", fsType, deviceID, err)
	}
	return string(output), nil
}

// ScanBlock 实现 Client 接口
// badblocks 的参数为 last_block first_block，单块扫描时二者相同
func (d *DiskUtil) ScanBlock(ctx context.Context, deviceID string, blockSize, blockIndex int) (bool, error) {
	index := strconv.Itoa(blockIndex)
	output, err := d.runner.Run(ctx, "badblocks", "-b", strconv.Itoa(blockSize), DevicePath(deviceID), index, index)
	if err != nil {
		return false, fmt.Errorf("scan block %d on %s: %w", blockIndex, deviceID, err)
	}
	return len(parseBadBlocks(string(output))) == 0, nil
}

// ScanBlocksStream 实现 Client 接口
func (d *DiskUtil) ScanBlocksStream(ctx context.Context, deviceID string, blockSize, blockCount int, onProgress func(percent int)) (*ScanResult, error) {
	if blockCount <= 0 {
		return &ScanResult{}, nil
	}
	onLine := func(line string) {
		if percent, ok := ParsePercent(line); ok && onProgress != nil {
			onProgress(percent)
		}
	}
	output, err := d.runner.Stream(ctx, onLine, "badblocks", "-s", "-b", strconv.Itoa(blockSize),
		DevicePath(deviceID), strconv.Itoa(blockCount-1), "0")
	result := &ScanResult{
		BadBlocks: parseBadBlocks(string(output)),
		Output:    string(output),
	}
	if err != nil {
		return result, fmt.Errorf("scan blocks on %s: %w", deviceID, err)
	}
	return result, nil
}

// DeviceByteSize 实现 Client 接口
func (d *DiskUtil) DeviceByteSize(ctx context.Context, deviceID string) (int64, error) {
	output, err := d.runner.Run(ctx, "blockdev", "--getsize64", DevicePath(deviceID))
	if err != nil {
		return 0, fmt.Errorf("get size of %s: %w", deviceID, err)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size of %s: %w", deviceID, err)
	}
	return size, nil
}
