package repository

import (
	"context"
	"time"

	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"gorm.io/gorm"
)

// DeviceFilter 设备列表过滤条件
type DeviceFilter struct {
	// Query 对 device_id、model、serial 做模糊匹配
	Query string
	// IncludeAbsent 为 false 时只返回当前在线的设备
	IncludeAbsent bool
}

// DeviceRepository 设备仓库接口
type DeviceRepository interface {
	Create(ctx context.Context, device *model.Device) error
	GetByID(ctx context.Context, id uint64) (*model.Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*model.Device, error)
	GetBySerial(ctx context.Context, serial string) (*model.Device, error)
	ListBySerial(ctx context.Context, serial string) ([]*model.Device, error)
	ListByDeviceID(ctx context.Context, deviceID string) ([]*model.Device, error)
	List(ctx context.Context, filter DeviceFilter) ([]*model.Device, error)
	Updates(ctx context.Context, id uint64, fields map[string]interface{}) error
	MarkAllAbsent(ctx context.Context) (int64, error)
	Count(ctx context.Context, filters map[string]interface{}) (int64, error)
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository 创建设备仓库，db 可以是事务
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// Create 创建设备记录
func (r *deviceRepository) Create(ctx context.Context, device *model.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

// GetByID 根据主键获取设备
func (r *deviceRepository) GetByID(ctx context.Context, id uint64) (*model.Device, error) {
	var device model.Device
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// GetByDeviceID 根据设备名获取设备，在线的记录优先，其次是最近更新的
func (r *deviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*model.Device, error) {
	var device model.Device
	if err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("present DESC").Order("updated_at DESC").
		First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// GetBySerial 根据序列号获取设备，在线的记录优先
func (r *deviceRepository) GetBySerial(ctx context.Context, serial string) (*model.Device, error) {
	var device model.Device
	if err := r.db.WithContext(ctx).
		Where("serial = ?", serial).
		Order("present DESC").Order("updated_at DESC").
		First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// ListBySerial 返回该序列号的所有记录，在线的在前，其次是最近更新的
// 部分 USB 桥接芯片对不同的盘报告相同的占位序列号
func (r *deviceRepository) ListBySerial(ctx context.Context, serial string) ([]*model.Device, error) {
	var devices []*model.Device
	if err := r.db.WithContext(ctx).
		Where("serial = ?", serial).
		Order("present DESC").Order("updated_at DESC").
		Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// ListByDeviceID 返回使用过该设备名的所有记录，最近更新的在前
func (r *deviceRepository) ListByDeviceID(ctx context.Context, deviceID string) ([]*model.Device, error) {
	var devices []*model.Device
	if err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("updated_at DESC").
		Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// List 列出设备
func (r *deviceRepository) List(ctx context.Context, filter DeviceFilter) ([]*model.Device, error) {
	var devices []*model.Device
	query := r.db.WithContext(ctx).Model(&model.Device{})

	if !filter.IncludeAbsent {
		query = query.Where("present = ?", true)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("device_id LIKE ? OR model LIKE ? OR serial LIKE ?", pattern, pattern, pattern)
	}

	if err := query.Order("device_id").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// Updates 只更新给定的列
func (r *deviceRepository) Updates(ctx context.Context, id uint64, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&model.Device{}).Where("id = ?", id).Updates(fields).Error
}

// MarkAllAbsent 将所有在线设备标记为离线
func (r *deviceRepository) MarkAllAbsent(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Device{}).
		Where("present = ?", true).
		Update("present", false)
	return result.RowsAffected, result.Error
}

// Count 统计设备数量
func (r *deviceRepository) Count(ctx context.Context, filters map[string]interface{}) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Device{})

	if present, ok := filters["present"]; ok {
		query = query.Where("present = ?", present)
	}
	if status, ok := filters["smart_status"]; ok {
		query = query.Where("smart_status = ?", status)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
