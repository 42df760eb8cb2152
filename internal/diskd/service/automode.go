package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/rs/zerolog"
)

// Reconciler 执行一轮设备同步
type Reconciler interface {
	Reconcile(ctx context.Context) ([]string, error)
}

// TaskStarter 启动任务
type TaskStarter interface {
	StartTask(ctx context.Context, deviceID, action string) (uint64, error)
}

// AutoModeOptions 自动模式参数
type AutoModeOptions struct {
	Enabled           bool
	Interval          time.Duration
	DefaultFilesystem string
	DefaultSmartMode  string
}

// AutoModeController 周期性同步设备，开启时为新设备自动启动格式化和 SMART 自检
// 开关只通过 SetEnabled/Toggle 修改，循环每轮读取一次
type AutoModeController struct {
	enabled    atomic.Bool
	interval   time.Duration
	fs         string
	smartMode  string
	reconciler Reconciler
	tasks      TaskStarter

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewAutoModeController 创建自动模式控制器
func NewAutoModeController(reconciler Reconciler, tasks TaskStarter, opts AutoModeOptions) *AutoModeController {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.DefaultFilesystem == "" {
		opts.DefaultFilesystem = "ext4"
	}
	if opts.DefaultSmartMode == "" {
		opts.DefaultSmartMode = "short"
	}

	c := &AutoModeController{
		interval:   opts.Interval,
		fs:         opts.DefaultFilesystem,
		smartMode:  opts.DefaultSmartMode,
		reconciler: reconciler,
		tasks:      tasks,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.enabled.Store(opts.Enabled)
	return c
}

// Enabled 返回当前开关状态
func (c *AutoModeController) Enabled() bool {
	return c.enabled.Load()
}

// SetEnabled 设置开关
func (c *AutoModeController) SetEnabled(ctx context.Context, enabled bool) {
	old := c.enabled.Swap(enabled)
	if old != enabled {
		zerolog.Ctx(ctx).Info().Bool("enabled", enabled).Msg("Auto mode changed")
	}
}

// Toggle 切换开关，返回切换后的状态
func (c *AutoModeController) Toggle(ctx context.Context) bool {
	for {
		old := c.enabled.Load()
		if c.enabled.CompareAndSwap(old, !old) {
			zerolog.Ctx(ctx).Info().Bool("enabled", !old).Msg("Auto mode toggled")
			return !old
		}
	}
}

// Status 返回自动模式状态
func (c *AutoModeController) Status() *entity.AutoModeStatus {
	return &entity.AutoModeStatus{
		Enabled:           c.Enabled(),
		Interval:          c.interval.String(),
		DefaultFilesystem: c.fs,
		DefaultSmartMode:  c.smartMode,
	}
}

// Name 实现 grace.Grace 接口
func (c *AutoModeController) Name() string {
	return "Auto Mode Controller"
}

// Run 实现 grace.Grace 接口，阻塞直到 ctx 取消或 Shutdown
// 单轮出错只记录日志，循环继续
func (c *AutoModeController) Run(ctx context.Context) error {
	defer close(c.done)

	logger := zerolog.Ctx(ctx)
	logger.Info().Dur("interval", c.interval).Bool("enabled", c.Enabled()).Msg("Auto mode loop started")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Auto mode loop stopped")
			return nil
		case <-c.stop:
			logger.Info().Msg("Auto mode loop stopped")
			return nil
		case <-ticker.C:
			if c.Enabled() {
				c.tick(ctx)
			}
		}
	}
}

// Shutdown 实现 grace.Grace 接口
func (c *AutoModeController) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick 同步一次设备，为每个新设备启动默认任务
func (c *AutoModeController) tick(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	appeared, err := c.reconciler.Reconcile(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Auto mode reconciliation failed")
		return
	}

	for _, deviceID := range appeared {
		for _, action := range []string{FormatAction(c.fs), SmartTestAction(c.smartMode)} {
			taskID, err := c.tasks.StartTask(ctx, deviceID, action)
			if err != nil {
				logger.Error().
					Err(err).
					Str("device_id", deviceID).
					Str("action", action).
					Msg("Auto mode failed to start task")
				continue
			}
			logger.Info().
				Str("device_id", deviceID).
				Str("action", action).
				Uint64("task_id", taskID).
				Msg("Auto mode started task")
		}
	}
}
