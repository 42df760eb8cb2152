package diskutil

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient 是 Client 的 mock 实现，测试中不需要真实的磁盘工具
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

// NewMockClient 创建新的 MockClient
func NewMockClient() *MockClient {
	return &MockClient{}
}

// EnumerateDevices 实现 Client 接口
func (m *MockClient) EnumerateDevices(ctx context.Context) ([]BlockDevice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BlockDevice), args.Error(1)
}

// QueryIdentity 实现 Client 接口
func (m *MockClient) QueryIdentity(ctx context.Context, deviceID string) (*Identity, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}

// RunDiagnostic 实现 Client 接口
func (m *MockClient) RunDiagnostic(ctx context.Context, deviceID string) (string, error) {
	args := m.Called(ctx, deviceID)
	return args.String(0), args.Error(1)
}

// StartSelfTest 实现 Client 接口
func (m *MockClient) StartSelfTest(ctx context.Context, deviceID, mode string) (string, error) {
	args := m.Called(ctx, deviceID, mode)
	return args.String(0), args.Error(1)
}

// WipeSignature 实现 Client 接口
func (m *MockClient) WipeSignature(ctx context.Context, deviceID string) (string, error) {
	args := m.Called(ctx, deviceID)
	return args.String(0), args.Error(1)
}

// CreateFilesystem 实现 Client 接口
func (m *MockClient) CreateFilesystem(ctx context.Context, deviceID, fsType string) (string, error) {
	args := m.Called(ctx, deviceID, fsType)
	return args.String(0), args.Error(1)
}

// ScanBlock 实现 Client 接口
func (m *MockClient) ScanBlock(ctx context.Context, deviceID string, blockSize, blockIndex int) (bool, error) {
	args := m.Called(ctx, deviceID, blockSize, blockIndex)
	return args.Bool(0), args.Error(1)
}

// ScanBlocksStream 实现 Client 接口
// 如果第三个返回值是 []int，依次作为进度回调
func (m *MockClient) ScanBlocksStream(ctx context.Context, deviceID string, blockSize, blockCount int, onProgress func(percent int)) (*ScanResult, error) {
	args := m.Called(ctx, deviceID, blockSize, blockCount)
	if len(args) > 2 && onProgress != nil {
		if steps, ok := args.Get(2).([]int); ok {
			for _, p := range steps {
				onProgress(p)
			}
		}
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScanResult), args.Error(1)
}

// DeviceByteSize 实现 Client 接口
func (m *MockClient) DeviceByteSize(ctx context.Context, deviceID string) (int64, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(int64), args.Error(1)
}
