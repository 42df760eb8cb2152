package repository

import (
	"context"

	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"gorm.io/gorm"
)

// SmartHistoryRepository SMART 历史仓库接口，只追加
type SmartHistoryRepository interface {
	Append(ctx context.Context, entry *model.SmartHistory) error
	List(ctx context.Context, filters map[string]interface{}, limit int) ([]*model.SmartHistory, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type smartHistoryRepository struct {
	db *gorm.DB
}

// NewSmartHistoryRepository 创建 SMART 历史仓库
func NewSmartHistoryRepository(db *gorm.DB) SmartHistoryRepository {
	return &smartHistoryRepository{db: db}
}

// Append 追加一条记录
func (r *smartHistoryRepository) Append(ctx context.Context, entry *model.SmartHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List 按时间倒序列出记录，limit <= 0 表示不限制
func (r *smartHistoryRepository) List(ctx context.Context, filters map[string]interface{}, limit int) ([]*model.SmartHistory, error) {
	var entries []*model.SmartHistory
	query := r.db.WithContext(ctx).Model(&model.SmartHistory{})

	if deviceID, ok := filters["device_id"]; ok {
		query = query.Where("device_id = ?", deviceID)
	}
	if serial, ok := filters["serial"]; ok {
		query = query.Where("serial = ?", serial)
	}
	if health, ok := filters["health"]; ok {
		query = query.Where("health = ?", health)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteAll 清空历史表
func (r *smartHistoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.SmartHistory{})
	return result.RowsAffected, result.Error
}
