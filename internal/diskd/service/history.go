package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/internal/diskd/repository"
	"github.com/jimyag/diskd/pkg/smartreport"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// HistoryService 任务和 SMART 历史、概览
type HistoryService struct {
	repo    *repository.Repository
	devices repository.DeviceRepository
	tasks   repository.TaskRepository
	history repository.SmartHistoryRepository
	now     func() time.Time
}

// NewHistoryService 创建历史服务
func NewHistoryService(repo *repository.Repository) *HistoryService {
	return &HistoryService{
		repo:    repo,
		devices: repository.NewDeviceRepository(repo.DB()),
		tasks:   repository.NewTaskRepository(repo.DB()),
		history: repository.NewSmartHistoryRepository(repo.DB()),
		now:     time.Now,
	}
}

// ListHistory 列出任务和 SMART 历史，按时间倒序
func (s *HistoryService) ListHistory(ctx context.Context, req *entity.ListHistoryRequest) (*entity.ListHistoryResponse, error) {
	tasks, err := s.tasks.List(ctx, nil, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	entries, err := s.history.List(ctx, nil, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list smart history: %w", err)
	}

	taskEntities, err := tasksModelToEntity(tasks)
	if err != nil {
		return nil, fmt.Errorf("convert tasks: %w", err)
	}
	historyEntities := make([]entity.SmartHistoryEntry, 0, len(entries))
	for _, e := range entries {
		converted, err := smartHistoryModelToEntity(e)
		if err != nil {
			return nil, fmt.Errorf("convert smart history: %w", err)
		}
		historyEntities = append(historyEntities, *converted)
	}

	return &entity.ListHistoryResponse{
		Tasks:        taskEntities,
		SmartHistory: historyEntities,
	}, nil
}

// ClearHistory 清空任务表和 SMART 历史，设备表不受影响
func (s *HistoryService) ClearHistory(ctx context.Context) (*entity.ClearHistoryResponse, error) {
	resp := &entity.ClearHistoryResponse{}
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := repository.NewTaskRepository(tx).DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}
		resp.TasksDeleted = n

		n, err = repository.NewSmartHistoryRepository(tx).DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("clear smart history: %w", err)
		}
		resp.SmartHistoryDeleted = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("tasks", resp.TasksDeleted).
		Int64("smart_history", resp.SmartHistoryDeleted).
		Msg("History cleared")
	return resp, nil
}

// Dashboard 返回设备和任务概览
func (s *HistoryService) Dashboard(ctx context.Context) (*entity.Dashboard, error) {
	total, err := s.devices.Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	present, err := s.devices.Count(ctx, map[string]interface{}{"present": true})
	if err != nil {
		return nil, fmt.Errorf("count present devices: %w", err)
	}
	bad, err := s.devices.Count(ctx, map[string]interface{}{"smart_status": string(smartreport.HealthBad)})
	if err != nil {
		return nil, fmt.Errorf("count bad devices: %w", err)
	}
	running, err := s.tasks.Count(ctx, map[string]interface{}{"status": repository.TaskStatusRunning})
	if err != nil {
		return nil, fmt.Errorf("count running tasks: %w", err)
	}

	firsts, err := s.tasks.FirstTaskPerDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("list device runtimes: %w", err)
	}
	now := s.now()
	runtimes := make([]entity.DeviceRuntime, 0, len(firsts))
	for _, f := range firsts {
		runtimes = append(runtimes, entity.DeviceRuntime{
			DeviceID:    f.DeviceID,
			FirstTaskAt: formatTime(f.FirstTask),
			Runtime:     strings.TrimSpace(humanize.RelTime(f.FirstTask, now, "", "")),
		})
	}

	return &entity.Dashboard{
		TotalDevices:     total,
		PresentDevices:   present,
		BadHealthDevices: bad,
		RunningTasks:     running,
		Runtimes:         runtimes,
	}, nil
}
