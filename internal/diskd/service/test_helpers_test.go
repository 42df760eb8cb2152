package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jimyag/diskd/internal/diskd/repository"
	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"github.com/jimyag/diskd/pkg/diskutil"
	"github.com/stretchr/testify/require"
)

const ataReport = `=== START OF INFORMATION SECTION ===
Device Model:     Acme X1
Serial Number:    SN-SDA
=== START OF READ SMART DATA SECTION ===
SMART overall-health self-assessment test result: PASSED
194 Temperature_Celsius     0x0022   114   103   000    Old_age   Always       -       36 (Min/Max 20/55)
`

const failingReport = `Device Model:     Other Z9
Serial Number:    SN-SDB
SMART overall-health self-assessment test result: FAILED!
  5 Reallocated_Sector_Ct   0x0033   001   001   036    Pre-fail  Always   FAILING_NOW 4095
`

// TestServices 包含测试所需的所有服务和依赖
type TestServices struct {
	Repo       *repository.Repository
	MockClient *diskutil.MockClient
	Inventory  *InventoryService
	Smart      *SmartService
	Tasks      *TaskService
	History    *HistoryService
}

// setupTestServices 为每个测试用例创建独立的数据库和 mock client
func setupTestServices(t *testing.T, opts TaskOptions) *TestServices {
	t.Helper()

	tmpDir := t.TempDir()
	repo, err := repository.New(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(tmpDir)
	})

	client := diskutil.NewMockClient()
	smart := NewSmartService(repo, client)
	tasks := NewTaskService(repo, client, smart, opts)

	// 后注册先执行：先等 worker 退出再关闭数据库
	t.Cleanup(tasks.Wait)

	return &TestServices{
		Repo:       repo,
		MockClient: client,
		Inventory:  NewInventoryService(repo, client, ExclusionPolicy{Devices: []string{"mmcblk0"}, Prefixes: []string{"nvme"}}),
		Smart:      smart,
		Tasks:      tasks,
		History:    NewHistoryService(repo),
	}
}

// seedDevice 直接写入一条设备记录
func (s *TestServices) seedDevice(t *testing.T, device *model.Device) {
	t.Helper()
	if device.ID == 0 {
		id, err := s.Inventory.idGen.GenerateDeviceRowID()
		require.NoError(t, err)
		device.ID = id
	}
	require.NoError(t, repository.NewDeviceRepository(s.Repo.DB()).Create(context.Background(), device))
}

// device 按设备名读取记录
func (s *TestServices) device(t *testing.T, deviceID string) *model.Device {
	t.Helper()
	d, err := repository.NewDeviceRepository(s.Repo.DB()).GetByDeviceID(context.Background(), deviceID)
	require.NoError(t, err)
	return d
}

func (s *TestServices) allDevices(t *testing.T) []*model.Device {
	t.Helper()
	devices, err := repository.NewDeviceRepository(s.Repo.DB()).List(context.Background(), repository.DeviceFilter{IncludeAbsent: true})
	require.NoError(t, err)
	return devices
}

func blockDevice(name, size, modelName string) diskutil.BlockDevice {
	return diskutil.BlockDevice{Name: name, Size: size, Model: modelName, Type: "disk"}
}

func intPtr(i int) *int {
	return &i
}
