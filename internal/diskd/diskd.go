// Package diskd 提供 diskd 服务器的主入口和初始化逻辑
package diskd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jimmicro/grace"
	"github.com/jimyag/diskd/internal/diskd/api"
	"github.com/jimyag/diskd/internal/diskd/config"
	"github.com/jimyag/diskd/internal/diskd/repository"
	"github.com/jimyag/diskd/internal/diskd/service"
	"github.com/jimyag/diskd/pkg/diskutil"
	"github.com/rs/zerolog"
)

// 报告文件写入完成后静止多久才导入
const reportSettleDelay = 2 * time.Second

type Server struct {
	cfg      *config.Config
	logger   zerolog.Logger
	repo     *repository.Repository
	tasks    *service.TaskService
	autoMode *service.AutoModeController
	watcher  *service.ReportWatcher
	api      *api.API
}

func New(cfg *config.Config) (*Server, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger = logger.Level(level)
	zerolog.DefaultContextLogger = &logger

	// 1. 创建数据库
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}
	logger.Info().Str("db", cfg.DBPath).Msg("Repository initialized")

	// 2. 创建磁盘工具客户端
	client := diskutil.New(diskutil.NewExecRunner(cfg.CommandTimeout))

	// 3. 创建服务
	inventory := service.NewInventoryService(repo, client, service.ExclusionPolicy{
		Devices:  cfg.Exclusion.Devices,
		Prefixes: cfg.Exclusion.Prefixes,
	})
	smart := service.NewSmartService(repo, client)
	tasks := service.NewTaskService(repo, client, smart, service.TaskOptions{
		DefaultFilesystem: cfg.DefaultFilesystem,
		DefaultSmartMode:  cfg.DefaultSmartMode,
		Validate: service.ValidateOptions{
			Mode:      cfg.Validate.Mode,
			BlockSize: cfg.Validate.BlockSize,
			MaxBlocks: cfg.Validate.MaxBlocks,
		},
	})
	history := service.NewHistoryService(repo)

	// 4. 创建自动模式控制器和报告目录监听
	autoMode := service.NewAutoModeController(inventory, tasks, service.AutoModeOptions{
		Enabled:           cfg.AutoMode,
		Interval:          cfg.AutoInterval,
		DefaultFilesystem: cfg.DefaultFilesystem,
		DefaultSmartMode:  cfg.DefaultSmartMode,
	})
	watcher := service.NewReportWatcher(cfg.ImportDir, reportSettleDelay, smart)

	// 5. 创建 API
	apiInstance, err := api.New(cfg.Address, logger, api.Services{
		Devices:  inventory,
		AutoMode: autoMode,
		Tasks:    tasks,
		Smart:    smart,
		History:  history,
	})
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		tasks:    tasks,
		autoMode: autoMode,
		watcher:  watcher,
		api:      apiInstance,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if err := s.repo.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close repository")
		}
	}()

	// 使用 grace.Shepherd 管理服务生命周期
	services := []grace.Grace{
		s.api,
		s.autoMode,
		s.watcher,
	}

	shepherd := grace.NewShepherd(
		services,
		grace.WithTimeout(30*time.Second),
		grace.WithLogger(&zerologLogger{}),
	)

	shepherd.Start(s.logger.WithContext(ctx))
	return nil
}

// Shutdown 实现 grace.Grace 接口
// 依次停止所有组件，某个组件超时不影响其余组件
// 正在执行的任务不会被等待，外部命令继续运行直到结束
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	for _, svc := range []grace.Grace{s.autoMode, s.watcher, s.api} {
		if err := svc.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Str("service", svc.Name()).Msg("Failed to shut down service")
			errs = append(errs, fmt.Errorf("shutdown %s: %w", svc.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Name 实现 grace.Grace 接口
func (s *Server) Name() string {
	return "DiskD Server"
}

// zerologLogger 实现 grace.Logger 接口
type zerologLogger struct{}

func (l *zerologLogger) Info(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Info()
	// 如果有参数，使用 Msgf 格式化消息
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Error()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}
