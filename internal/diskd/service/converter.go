// Package service 提供业务逻辑层的服务实现
package service

import (
	"time"

	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"github.com/jinzhu/copier"
)

// deviceModelToEntity 将 model.Device 转换为 entity.Device
func deviceModelToEntity(m *model.Device) (*entity.Device, error) {
	e := &entity.Device{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}

	// 处理时间字段
	e.LastSmartAt = formatTimePtr(m.LastSmartAt)
	e.LastValidateAt = formatTimePtr(m.LastValidateAt)
	e.LastFormatAt = formatTimePtr(m.LastFormatAt)
	e.FirstSeen = formatTime(m.FirstSeen)
	e.UpdatedAt = formatTime(m.UpdatedAt)

	return e, nil
}

// devicesModelToEntity 批量转换设备
func devicesModelToEntity(ms []*model.Device) ([]entity.Device, error) {
	result := make([]entity.Device, 0, len(ms))
	for _, m := range ms {
		e, err := deviceModelToEntity(m)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, nil
}

// taskModelToEntity 将 model.Task 转换为 entity.Task
func taskModelToEntity(m *model.Task) (*entity.Task, error) {
	e := &entity.Task{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}

	e.StartedAt = formatTime(m.StartedAt)
	e.UpdatedAt = formatTime(m.UpdatedAt)

	return e, nil
}

// tasksModelToEntity 批量转换任务
func tasksModelToEntity(ms []*model.Task) ([]entity.Task, error) {
	result := make([]entity.Task, 0, len(ms))
	for _, m := range ms {
		e, err := taskModelToEntity(m)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, nil
}

// smartHistoryModelToEntity 将 model.SmartHistory 转换为 entity.SmartHistoryEntry
func smartHistoryModelToEntity(m *model.SmartHistory) (*entity.SmartHistoryEntry, error) {
	e := &entity.SmartHistoryEntry{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}

	e.CreatedAt = formatTime(m.CreatedAt)

	return e, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func strPtr(s string) *string {
	return &s
}

// nonEmptyPtr 空字符串返回 nil
func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
