package repository

import (
	"context"
	"time"

	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"gorm.io/gorm"
)

// 任务状态
const (
	TaskStatusRunning = "RUNNING"
	TaskStatusOK      = "OK"
	TaskStatusFail    = "FAIL"
	TaskStatusDone    = "DONE"
	TaskStatusStopped = "STOPPED"
)

// TaskUpdate 任务的部分更新，nil 字段不写入
type TaskUpdate struct {
	Status   *string
	Progress *int
	Output   *string
}

// Empty 是否没有任何字段需要更新
func (u TaskUpdate) Empty() bool {
	return u.Status == nil && u.Progress == nil && u.Output == nil
}

// DeviceFirstTask 每个设备第一个任务的开始时间
type DeviceFirstTask struct {
	DeviceID  string
	FirstTask time.Time
}

// TaskRepository 任务仓库接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uint64) (*model.Task, error)
	List(ctx context.Context, filters map[string]interface{}, limit int) ([]*model.Task, error)
	UpdateRunning(ctx context.Context, id uint64, update TaskUpdate) (bool, error)
	SetStatus(ctx context.Context, id uint64, status string) (bool, error)
	Count(ctx context.Context, filters map[string]interface{}) (int64, error)
	FirstTaskPerDevice(ctx context.Context) ([]DeviceFirstTask, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 创建任务
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID 根据 ID 获取任务
func (r *taskRepository) GetByID(ctx context.Context, id uint64) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List 按开始时间倒序列出任务，limit <= 0 表示不限制
func (r *taskRepository) List(ctx context.Context, filters map[string]interface{}, limit int) ([]*model.Task, error) {
	var tasks []*model.Task
	query := r.db.WithContext(ctx).Model(&model.Task{})

	if deviceID, ok := filters["device_id"]; ok {
		query = query.Where("device_id = ?", deviceID)
	}
	if status, ok := filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Order("started_at DESC").Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateRunning 只在任务仍为 RUNNING 时写入，返回是否更新成功
// 进度取 MAX(旧值, 新值)，保证不会倒退
func (r *taskRepository) UpdateRunning(ctx context.Context, id uint64, update TaskUpdate) (bool, error) {
	fields := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.Progress != nil {
		fields["progress"] = gorm.Expr("MAX(progress, ?)", *update.Progress)
	}
	if update.Output != nil {
		fields["output"] = *update.Output
	}

	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status = ?", id, TaskStatusRunning).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

// SetStatus 无条件设置任务状态，返回任务是否存在
func (r *taskRepository) SetStatus(ctx context.Context, id uint64, status string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

// Count 统计任务数量
func (r *taskRepository) Count(ctx context.Context, filters map[string]interface{}) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Task{})

	if status, ok := filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if deviceID, ok := filters["device_id"]; ok {
		query = query.Where("device_id = ?", deviceID)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FirstTaskPerDevice 返回每个设备最早的任务时间
func (r *taskRepository) FirstTaskPerDevice(ctx context.Context) ([]DeviceFirstTask, error) {
	var tasks []*model.Task
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("device_id", "started_at").
		Order("started_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	result := make([]DeviceFirstTask, 0)
	for _, t := range tasks {
		if seen[t.DeviceID] {
			continue
		}
		seen[t.DeviceID] = true
		result = append(result, DeviceFirstTask{DeviceID: t.DeviceID, FirstTask: t.StartedAt})
	}
	return result, nil
}

// DeleteAll 清空任务表
func (r *taskRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.Task{})
	return result.RowsAffected, result.Error
}
