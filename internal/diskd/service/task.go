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

// 任务动作
const (
	ActionValidate  = "VALIDATE"
	ActionSmartView = "SMART_VIEW"

	formatActionPrefix = "FORMAT_"
	smartActionPrefix  = "SMART_"
)

// 坏块校验模式
const (
	ValidateModeBlock  = "block"
	ValidateModeStream = "stream"
)

// ActionKind 任务类型
type ActionKind int

const (
	ActionKindFormat ActionKind = iota + 1
	ActionKindValidate
	ActionKindSmartTest
	ActionKindSmartView
)

// Action 解析后的任务动作
type Action struct {
	Kind       ActionKind
	Filesystem string // ActionKindFormat
	SmartMode  string // ActionKindSmartTest，小写
}

// String 返回持久化使用的动作名
func (a Action) String() string {
	switch a.Kind {
	case ActionKindFormat:
		return FormatAction(a.Filesystem)
	case ActionKindValidate:
		return ActionValidate
	case ActionKindSmartTest:
		return SmartTestAction(a.SmartMode)
	case ActionKindSmartView:
		return ActionSmartView
	}
	return ""
}

// FormatAction 返回格式化动作名，如 FORMAT_ext4
func FormatAction(fs string) string {
	return formatActionPrefix + fs
}

// SmartTestAction 返回 SMART 自检动作名，如 SMART_SHORT
func SmartTestAction(mode string) string {
	return smartActionPrefix + strings.ToUpper(mode)
}

// ParseAction 解析动作名
func ParseAction(action string) (Action, error) {
	switch {
	case action == ActionValidate:
		return Action{Kind: ActionKindValidate}, nil
	case action == ActionSmartView:
		return Action{Kind: ActionKindSmartView}, nil
	case strings.HasPrefix(action, formatActionPrefix):
		fs := strings.ToLower(strings.TrimPrefix(action, formatActionPrefix))
		if !diskutil.IsSupportedFilesystem(fs) {
			return Action{}, apierror.Errorf(apierror.ErrInvalidFilesystem, "unsupported filesystem in action %q, valid values: %s",
				action, strings.Join(diskutil.SupportedFilesystems(), ", "))
		}
		return Action{Kind: ActionKindFormat, Filesystem: fs}, nil
	case strings.HasPrefix(action, smartActionPrefix):
		mode := strings.ToLower(strings.TrimPrefix(action, smartActionPrefix))
		if !diskutil.SelfTestModes[mode] {
			return Action{}, apierror.Errorf(apierror.ErrInvalidSmartMode, "unsupported SMART mode in action %q", action)
		}
		return Action{Kind: ActionKindSmartTest, SmartMode: mode}, nil
	}
	return Action{}, apierror.Errorf(apierror.ErrInvalidAction, "unknown action %q", action)
}

// ValidateOptions 坏块校验参数
type ValidateOptions struct {
	Mode      string
	BlockSize int
	MaxBlocks int
}

// TaskOptions 任务服务参数
type TaskOptions struct {
	DefaultFilesystem string
	DefaultSmartMode  string
	Validate          ValidateOptions
}

// DefaultTaskOptions 返回默认参数
func DefaultTaskOptions() TaskOptions {
	return TaskOptions{
		DefaultFilesystem: "ext4",
		DefaultSmartMode:  "short",
		Validate: ValidateOptions{
			Mode:      ValidateModeBlock,
			BlockSize: 4096,
			MaxBlocks: 256,
		},
	}
}

// TaskService 任务编排服务
// 每个任务一个 goroutine，任务状态全部保存在任务表中
type TaskService struct {
	tasks   repository.TaskRepository
	devices repository.DeviceRepository
	client  diskutil.Client
	smart   *SmartService
	idGen   *idgen.Generator
	opts    TaskOptions

	wg  sync.WaitGroup
	now func() time.Time
}

// NewTaskService 创建任务服务
func NewTaskService(repo *repository.Repository, client diskutil.Client, smart *SmartService, opts TaskOptions) *TaskService {
	defaults := DefaultTaskOptions()
	if opts.DefaultFilesystem == "" {
		opts.DefaultFilesystem = defaults.DefaultFilesystem
	}
	if opts.DefaultSmartMode == "" {
		opts.DefaultSmartMode = defaults.DefaultSmartMode
	}
	if opts.Validate.Mode == "" {
		opts.Validate.Mode = defaults.Validate.Mode
	}
	if opts.Validate.BlockSize <= 0 {
		opts.Validate.BlockSize = defaults.Validate.BlockSize
	}
	if opts.Validate.MaxBlocks <= 0 {
		opts.Validate.MaxBlocks = defaults.Validate.MaxBlocks
	}

	return &TaskService{
		tasks:   repository.NewTaskRepository(repo.DB()),
		devices: repository.NewDeviceRepository(repo.DB()),
		client:  client,
		smart:   smart,
		idGen:   idgen.DefaultGenerator(),
		opts:    opts,
		now:     time.Now,
	}
}

// Options 返回当前参数
func (s *TaskService) Options() TaskOptions {
	return s.opts
}

// StartTask 创建 RUNNING 任务并在后台执行，立即返回任务 ID
// 同一设备可以同时存在多个任务，不加设备锁
func (s *TaskService) StartTask(ctx context.Context, deviceID, action string) (uint64, error) {
	logger := zerolog.Ctx(ctx)

	if deviceID == "" {
		return 0, apierror.Errorf(apierror.ErrInvalidParameter, "device id is required")
	}
	parsed, err := ParseAction(action)
	if err != nil {
		return 0, err
	}
	if _, err := s.devices.GetByDeviceID(ctx, deviceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apierror.Errorf(apierror.ErrDeviceNotFound, "device %s does not exist", deviceID)
		}
		return 0, fmt.Errorf("get device: %w", err)
	}

	taskID, err := s.idGen.GenerateTaskID()
	if err != nil {
		return 0, fmt.Errorf("generate task ID: %w", err)
	}

	now := s.now()
	task := &model.Task{
		ID:        taskID,
		DeviceID:  deviceID,
		Action:    parsed.String(),
		Status:    repository.TaskStatusRunning,
		Progress:  0,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}

	// worker 不能持有请求的 context，请求结束后它会被取消或复用
	workerLogger := logger.With().
		Uint64("task_id", taskID).
		Str("device_id", deviceID).
		Str("action", task.Action).
		Logger()
	workerCtx := workerLogger.WithContext(context.Background())

	s.wg.Add(1)
	go s.runWorker(workerCtx, taskID, deviceID, parsed)

	logger.Info().
		Uint64("task_id", taskID).
		Str("device_id", deviceID).
		Str("action", task.Action).
		Msg("Task started")

	return taskID, nil
}

// Wait 等待所有 worker 退出
func (s *TaskService) Wait() {
	s.wg.Wait()
}

// UpdateProgress 部分更新任务，至少提供一个字段；任务已结束时更新被忽略
func (s *TaskService) UpdateProgress(ctx context.Context, taskID uint64, status *string, progress *int) error {
	if status == nil && progress == nil {
		return apierror.ErrNothingToUpdate
	}
	if status != nil && !isTaskStatus(*status) {
		return apierror.Errorf(apierror.ErrInvalidParameter, "unknown task status %q", *status)
	}
	if progress != nil && (*progress < 0 || *progress > 100) {
		return apierror.Errorf(apierror.ErrInvalidParameter, "progress must be within 0-100, got %d", *progress)
	}

	applied, err := s.tasks.UpdateRunning(ctx, taskID, repository.TaskUpdate{Status: status, Progress: progress})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if applied {
		return nil
	}

	// 没有更新到行：任务不存在，或者已经是终态
	if _, err := s.getTask(ctx, taskID); err != nil {
		return err
	}
	return nil
}

// QueryStatus 查询任务状态和进度
func (s *TaskService) QueryStatus(ctx context.Context, taskID uint64) (*entity.TaskStatus, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &entity.TaskStatus{Status: task.Status, Progress: task.Progress}, nil
}

// Stop 无条件把任务标记为 STOPPED
// 只修改记录，正在执行的外部命令不会被终止
func (s *TaskService) Stop(ctx context.Context, taskID uint64) error {
	found, err := s.tasks.SetStatus(ctx, taskID, repository.TaskStatusStopped)
	if err != nil {
		return fmt.Errorf("stop task: %w", err)
	}
	if !found {
		return apierror.Errorf(apierror.ErrTaskNotFound, "task %d does not exist", taskID)
	}

	zerolog.Ctx(ctx).Info().Uint64("task_id", taskID).Msg("Task marked as stopped")
	return nil
}

// GetTask 查询任务详情
func (s *TaskService) GetTask(ctx context.Context, taskID uint64) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return taskModelToEntity(task)
}

// ListTasks 列出任务
func (s *TaskService) ListTasks(ctx context.Context, req *entity.ListTasksRequest) (*entity.ListTasksResponse, error) {
	filters := map[string]interface{}{}
	if req.DeviceID != "" {
		filters["device_id"] = req.DeviceID
	}
	if req.Status != "" {
		filters["status"] = req.Status
	}

	tasks, err := s.tasks.List(ctx, filters, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	result, err := tasksModelToEntity(tasks)
	if err != nil {
		return nil, fmt.Errorf("convert tasks: %w", err)
	}
	return &entity.ListTasksResponse{Tasks: result}, nil
}

// StartFormat 启动格式化任务，未指定文件系统时使用默认值
func (s *TaskService) StartFormat(ctx context.Context, req *entity.StartFormatRequest) (*entity.StartTaskResponse, error) {
	fs := req.Filesystem
	if fs == "" {
		fs = s.opts.DefaultFilesystem
	}
	return s.start(ctx, req.DeviceID, FormatAction(fs))
}

// StartValidate 启动坏块校验任务
func (s *TaskService) StartValidate(ctx context.Context, req *entity.StartValidateRequest) (*entity.StartTaskResponse, error) {
	return s.start(ctx, req.DeviceID, ActionValidate)
}

// StartSmartTest 启动 SMART 自检任务，未指定类型时使用默认值
func (s *TaskService) StartSmartTest(ctx context.Context, req *entity.StartSmartTestRequest) (*entity.StartTaskResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = s.opts.DefaultSmartMode
	}
	return s.start(ctx, req.DeviceID, SmartTestAction(mode))
}

// StartSmartView 启动异步读取 SMART 报告的任务
func (s *TaskService) StartSmartView(ctx context.Context, req *entity.StartSmartViewRequest) (*entity.StartTaskResponse, error) {
	return s.start(ctx, req.DeviceID, ActionSmartView)
}

// StartAction 按动作名启动任务
func (s *TaskService) StartAction(ctx context.Context, req *entity.StartTaskRequest) (*entity.StartTaskResponse, error) {
	return s.start(ctx, req.DeviceID, req.Action)
}

func (s *TaskService) start(ctx context.Context, deviceID, action string) (*entity.StartTaskResponse, error) {
	taskID, err := s.StartTask(ctx, deviceID, action)
	if err != nil {
		return nil, err
	}
	return &entity.StartTaskResponse{TaskID: taskID}, nil
}

func (s *TaskService) getTask(ctx context.Context, taskID uint64) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Errorf(apierror.ErrTaskNotFound, "task %d does not exist", taskID)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func isTaskStatus(status string) bool {
	switch status {
	case repository.TaskStatusRunning,
		repository.TaskStatusOK,
		repository.TaskStatusFail,
		repository.TaskStatusDone,
		repository.TaskStatusStopped:
		return true
	}
	return false
}
