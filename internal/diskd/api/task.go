package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/pkg/ginx"
	"github.com/rs/zerolog"
)

// TaskServiceInterface 定义任务服务的接口
type TaskServiceInterface interface {
	StartAction(ctx context.Context, req *entity.StartTaskRequest) (*entity.StartTaskResponse, error)
	StartFormat(ctx context.Context, req *entity.StartFormatRequest) (*entity.StartTaskResponse, error)
	StartValidate(ctx context.Context, req *entity.StartValidateRequest) (*entity.StartTaskResponse, error)
	StartSmartTest(ctx context.Context, req *entity.StartSmartTestRequest) (*entity.StartTaskResponse, error)
	StartSmartView(ctx context.Context, req *entity.StartSmartViewRequest) (*entity.StartTaskResponse, error)
	UpdateProgress(ctx context.Context, taskID uint64, status *string, progress *int) error
	QueryStatus(ctx context.Context, taskID uint64) (*entity.TaskStatus, error)
	Stop(ctx context.Context, taskID uint64) error
	GetTask(ctx context.Context, taskID uint64) (*entity.Task, error)
	ListTasks(ctx context.Context, req *entity.ListTasksRequest) (*entity.ListTasksResponse, error)
}

// Task 任务 API
type Task struct {
	taskService TaskServiceInterface
}

// NewTask 创建任务 API
func NewTask(taskService TaskServiceInterface) *Task {
	return &Task{
		taskService: taskService,
	}
}

// RegisterRoutes 注册路由
func (t *Task) RegisterRoutes(router *gin.RouterGroup) {
	taskRouter := router.Group("/tasks")
	taskRouter.POST("/start", ginx.Adapt5(t.StartTask))
	taskRouter.POST("/format", ginx.Adapt5(t.StartFormat))
	taskRouter.POST("/validate", ginx.Adapt5(t.StartValidate))
	taskRouter.POST("/smart-test", ginx.Adapt5(t.StartSmartTest))
	taskRouter.POST("/smart-view", ginx.Adapt5(t.StartSmartView))
	taskRouter.POST("/update", ginx.Adapt4(t.UpdateTask))
	taskRouter.POST("/status", ginx.Adapt5(t.QueryStatus))
	taskRouter.POST("/stop", ginx.Adapt4(t.StopTask))
	taskRouter.POST("/describe", ginx.Adapt5(t.DescribeTask))
	taskRouter.POST("/list", ginx.Adapt5(t.ListTasks))
	taskRouter.GET("/:id/watch", t.WatchTask)
}

func (t *Task) StartTask(ctx *gin.Context, req *entity.StartTaskRequest) (*entity.StartTaskResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("deviceID", req.DeviceID).
		Str("action", req.Action).
		Msg("StartTask called")

	resp, err := t.taskService.StartAction(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start task")
		return nil, err
	}
	return resp, nil
}

func (t *Task) StartFormat(ctx *gin.Context, req *entity.StartFormatRequest) (*entity.StartTaskResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("deviceID", req.DeviceID).
		Str("filesystem", req.Filesystem).
		Msg("StartFormat called")

	resp, err := t.taskService.StartFormat(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start format task")
		return nil, err
	}
	return resp, nil
}

func (t *Task) StartValidate(ctx *gin.Context, req *entity.StartValidateRequest) (*entity.StartTaskResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("deviceID", req.DeviceID).Msg("StartValidate called")

	resp, err := t.taskService.StartValidate(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start validate task")
		return nil, err
	}
	return resp, nil
}

func (t *Task) StartSmartTest(ctx *gin.Context, req *entity.StartSmartTestRequest) (*entity.StartTaskResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("deviceID", req.DeviceID).
		Str("mode", req.Mode).
		Msg("StartSmartTest called")

	resp, err := t.taskService.StartSmartTest(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start SMART test task")
		return nil, err
	}
	return resp, nil
}

func (t *Task) StartSmartView(ctx *gin.Context, req *entity.StartSmartViewRequest) (*entity.StartTaskResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("deviceID", req.DeviceID).Msg("StartSmartView called")

	resp, err := t.taskService.StartSmartView(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start SMART view task")
		return nil, err
	}
	return resp, nil
}

func (t *Task) UpdateTask(ctx *gin.Context, req *entity.UpdateTaskRequest) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Uint64("taskID", req.TaskID).Msg("UpdateTask called")

	if err := t.taskService.UpdateProgress(ctx, req.TaskID, req.Status, req.Progress); err != nil {
		logger.Error().Err(err).Msg("Failed to update task")
		return err
	}
	return nil
}

func (t *Task) QueryStatus(ctx *gin.Context, req *entity.TaskIDRequest) (*entity.TaskStatus, error) {
	return t.taskService.QueryStatus(ctx, req.TaskID)
}

func (t *Task) StopTask(ctx *gin.Context, req *entity.TaskIDRequest) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Uint64("taskID", req.TaskID).Msg("StopTask called")

	if err := t.taskService.Stop(ctx, req.TaskID); err != nil {
		logger.Error().Err(err).Msg("Failed to stop task")
		return err
	}
	return nil
}

func (t *Task) DescribeTask(ctx *gin.Context, req *entity.TaskIDRequest) (*entity.DescribeTaskResponse, error) {
	task, err := t.taskService.GetTask(ctx, req.TaskID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Uint64("taskID", req.TaskID).Msg("Failed to describe task")
		return nil, err
	}
	return &entity.DescribeTaskResponse{Task: task}, nil
}

func (t *Task) ListTasks(ctx *gin.Context, req *entity.ListTasksRequest) (*entity.ListTasksResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("deviceID", req.DeviceID).
		Str("status", req.Status).
		Msg("ListTasks called")

	resp, err := t.taskService.ListTasks(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list tasks")
		return nil, err
	}
	return resp, nil
}
