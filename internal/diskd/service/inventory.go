package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/internal/diskd/repository"
	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/jimyag/diskd/pkg/diskutil"
	"github.com/jimyag/diskd/pkg/idgen"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ExclusionPolicy 自动模式不处理的设备：精确匹配的设备名和设备名前缀
type ExclusionPolicy struct {
	Devices  []string
	Prefixes []string
}

// Excludes 判断设备是否被排除
func (p ExclusionPolicy) Excludes(deviceID string) bool {
	for _, d := range p.Devices {
		if deviceID == d {
			return true
		}
	}
	for _, prefix := range p.Prefixes {
		if prefix != "" && strings.HasPrefix(deviceID, prefix) {
			return true
		}
	}
	return false
}

// InventoryService 设备清单服务，负责把实时枚举结果合并到设备表
type InventoryService struct {
	repo      *repository.Repository
	devices   repository.DeviceRepository
	client    diskutil.Client
	idGen     *idgen.Generator
	exclusion ExclusionPolicy

	// 同一时刻只允许一轮同步
	mu  sync.Mutex
	now func() time.Time
}

// NewInventoryService 创建设备清单服务
func NewInventoryService(repo *repository.Repository, client diskutil.Client, exclusion ExclusionPolicy) *InventoryService {
	return &InventoryService{
		repo:      repo,
		devices:   repository.NewDeviceRepository(repo.DB()),
		client:    client,
		idGen:     idgen.DefaultGenerator(),
		exclusion: exclusion,
		now:       time.Now,
	}
}

// enumerated 一次枚举中的单个设备及其身份信息
type enumerated struct {
	device   diskutil.BlockDevice
	identity *diskutil.Identity
}

// Reconcile 执行一轮同步，返回本轮新出现且未被排除的设备名
// 外部命令在事务外执行，合并在单个事务中完成，读者不会看到设备短暂离线
func (s *InventoryService) Reconcile(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := zerolog.Ctx(ctx)
	start := s.now()

	devices, err := s.client.EnumerateDevices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to enumerate devices")
		return nil, apierror.WrapError(apierror.ErrDeviceEnumeration, "", err)
	}

	items := make([]enumerated, 0, len(devices))
	for _, d := range devices {
		identity, err := s.client.QueryIdentity(ctx, d.Name)
		if err != nil {
			// 单个设备查询失败只意味着序列号未知
			logger.Warn().
				Err(err).
				Str("device_id", d.Name).
				Msg("Failed to query device identity, serial unknown")
			identity = nil
		}
		items = append(items, enumerated{device: d, identity: identity})
	}

	var appeared []string
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		devices := repository.NewDeviceRepository(tx)
		if _, err := devices.MarkAllAbsent(ctx); err != nil {
			return fmt.Errorf("mark devices absent: %w", err)
		}

		pass := &mergePass{
			claimed: make(map[uint64]bool, len(items)),
			names:   make(map[string]string, len(items)),
		}
		for _, item := range items {
			pass.names[item.device.Name] = ""
			if item.identity != nil {
				pass.names[item.device.Name] = item.identity.Serial
			}
		}
		for _, item := range items {
			created, err := s.mergeDevice(ctx, devices, item, start, pass)
			if err != nil {
				return err
			}
			if created != nil && created.FirstSeen.Equal(start) {
				appeared = append(appeared, created.DeviceID)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to apply reconciliation pass")
		return nil, fmt.Errorf("reconcile devices: %w", err)
	}

	result := make([]string, 0, len(appeared))
	for _, id := range appeared {
		if s.exclusion.Excludes(id) {
			logger.Info().Str("device_id", id).Msg("New device excluded by policy")
			continue
		}
		result = append(result, id)
	}

	logger.Info().
		Int("enumerated", len(items)).
		Int("new", len(appeared)).
		Strs("new_devices", result).
		Msg("Reconciliation pass completed")

	return result, nil
}

// mergePass 单轮合并的状态
type mergePass struct {
	// claimed 本轮已认领的记录
	claimed map[uint64]bool
	// names 本轮枚举到的设备名及其序列号，查询失败时为空
	names map[string]string
}

// heldBy 记录是否会被本轮同名的另一块盘认领
func (p *mergePass) heldBy(device *model.Device, deviceID string) bool {
	if device.DeviceID == deviceID {
		return false
	}
	ownerSerial, ok := p.names[device.DeviceID]
	if !ok {
		return false
	}
	return ownerSerial == "" || device.Serial == nil || ownerSerial == *device.Serial
}

// mergeDevice 把一个枚举结果合并到已有记录，找不到时创建新记录并返回
func (s *InventoryService) mergeDevice(
	ctx context.Context,
	devices repository.DeviceRepository,
	item enumerated,
	start time.Time,
	pass *mergePass,
) (*model.Device, error) {
	serial, modelName, vendor := "", item.device.Model, item.device.Vendor
	if item.identity != nil {
		serial = item.identity.Serial
		if item.identity.Model != "" {
			modelName = item.identity.Model
		}
		if item.identity.Vendor != "" {
			vendor = item.identity.Vendor
		}
	}

	existing, err := s.lookup(ctx, devices, item.device.Name, serial, pass)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		pass.claimed[existing.ID] = true
		fields := map[string]interface{}{
			"device_id":  item.device.Name,
			"present":    true,
			"updated_at": start,
		}
		if item.device.Size != "" {
			fields["size"] = item.device.Size
		}
		if modelName != "" {
			fields["model"] = modelName
		}
		if vendor != "" {
			fields["vendor"] = vendor
		}
		if item.device.Location != "" {
			fields["location"] = item.device.Location
		}
		// 查询失败时保留已知的序列号
		if serial != "" {
			fields["serial"] = serial
		}
		if err := devices.Updates(ctx, existing.ID, fields); err != nil {
			return nil, fmt.Errorf("update device %s: %w", item.device.Name, err)
		}
		return nil, nil
	}

	rowID, err := s.idGen.GenerateDeviceRowID()
	if err != nil {
		return nil, fmt.Errorf("generate device row id: %w", err)
	}
	device := &model.Device{
		ID:        rowID,
		DeviceID:  item.device.Name,
		Serial:    nonEmptyPtr(serial),
		Model:     nonEmptyPtr(modelName),
		Vendor:    nonEmptyPtr(vendor),
		Size:      nonEmptyPtr(item.device.Size),
		Location:  nonEmptyPtr(item.device.Location),
		Present:   true,
		FirstSeen: start,
		UpdatedAt: start,
	}
	if err := devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("create device %s: %w", item.device.Name, err)
	}
	pass.claimed[device.ID] = true
	return device, nil
}

// lookup 先按序列号查找，再按设备名查找
// 同一序列号有多条记录时优先设备名相同的记录，不抢占本轮其他设备名的记录
// 本轮已认领的记录不会再次匹配；按设备名匹配时，已知序列号不同的记录属于另一块盘
func (s *InventoryService) lookup(
	ctx context.Context,
	devices repository.DeviceRepository,
	deviceID, serial string,
	pass *mergePass,
) (*model.Device, error) {
	if serial != "" {
		matches, err := devices.ListBySerial(ctx, serial)
		if err != nil {
			return nil, fmt.Errorf("list devices by serial: %w", err)
		}
		var fallback *model.Device
		for _, m := range matches {
			if pass.claimed[m.ID] || pass.heldBy(m, deviceID) {
				continue
			}
			if m.DeviceID == deviceID {
				return m, nil
			}
			if fallback == nil {
				fallback = m
			}
		}
		if fallback != nil {
			return fallback, nil
		}
	}

	candidates, err := devices.ListByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("get device by device id: %w", err)
	}
	for _, c := range candidates {
		if pass.claimed[c.ID] {
			continue
		}
		if serial != "" && c.Serial != nil && *c.Serial != serial {
			continue
		}
		return c, nil
	}
	return nil, nil
}

// SyncDevices 执行一轮同步并返回同步后的设备列表
func (s *InventoryService) SyncDevices(ctx context.Context) (*entity.SyncDevicesResponse, error) {
	appeared, err := s.Reconcile(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.ListDevices(ctx, &entity.ListDevicesRequest{})
	if err != nil {
		return nil, err
	}

	return &entity.SyncDevicesResponse{
		NewDevices: appeared,
		Devices:    list.Devices,
	}, nil
}

// ListDevices 列出设备，默认只包含在线设备
func (s *InventoryService) ListDevices(ctx context.Context, req *entity.ListDevicesRequest) (*entity.ListDevicesResponse, error) {
	devices, err := s.devices.List(ctx, repository.DeviceFilter{
		Query:         strings.TrimSpace(req.Query),
		IncludeAbsent: req.IncludeAbsent,
	})
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	result, err := devicesModelToEntity(devices)
	if err != nil {
		return nil, fmt.Errorf("convert devices: %w", err)
	}
	return &entity.ListDevicesResponse{Devices: result}, nil
}

// DescribeDevice 按设备名查询设备，在线记录优先
func (s *InventoryService) DescribeDevice(ctx context.Context, deviceID string) (*entity.Device, error) {
	device, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Errorf(apierror.ErrDeviceNotFound, "device %s does not exist", deviceID)
		}
		return nil, fmt.Errorf("get device: %w", err)
	}
	return deviceModelToEntity(device)
}
