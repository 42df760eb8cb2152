package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jimyag/diskd/internal/diskd/repository"
	"github.com/jimyag/diskd/pkg/diskutil"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// 格式化过程中清除签名完成后的进度
const wipeDoneProgress = 30

// 设备校验结果
const (
	validateStatusOK   = "OK"
	validateStatusFail = "FAIL"
)

// runWorker 执行任务，panic 会被记录为 FAIL
func (s *TaskService) runWorker(ctx context.Context, taskID uint64, deviceID string, action Action) {
	defer s.wg.Done()

	logger := zerolog.Ctx(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Task worker panicked")
			s.fail(ctx, taskID, fmt.Errorf("worker panic: %v", r))
		}
	}()

	logger.Info().Msg("Task worker started")

	switch action.Kind {
	case ActionKindFormat:
		s.runFormat(ctx, taskID, deviceID, action.Filesystem)
	case ActionKindValidate:
		s.runValidate(ctx, taskID, deviceID)
	case ActionKindSmartTest:
		s.runSmartTest(ctx, taskID, deviceID, action.SmartMode)
	case ActionKindSmartView:
		s.runSmartView(ctx, taskID, deviceID)
	default:
		s.fail(ctx, taskID, fmt.Errorf("unsupported action kind %d", action.Kind))
	}
}

// runFormat 清除签名 -> 创建文件系统 -> 记录格式化时间
func (s *TaskService) runFormat(ctx context.Context, taskID uint64, deviceID, fs string) {
	wipeOut, err := s.client.WipeSignature(ctx, deviceID)
	if err != nil {
		s.fail(ctx, taskID, err)
		return
	}
	s.advance(ctx, taskID, wipeDoneProgress)

	mkfsOut, err := s.client.CreateFilesystem(ctx, deviceID, fs)
	if err != nil {
		s.fail(ctx, taskID, err)
		return
	}

	// 先更新设备，任务变为 OK 时 last_format_at 已经可见
	s.stampDevice(ctx, deviceID, map[string]interface{}{
		"last_format_at": s.now(),
	})
	s.complete(ctx, taskID, repository.TaskStatusOK, joinOutput(wipeOut, mkfsOut))
}

// runValidate 扫描设备开头的若干块，任何坏块都会把设备标记为 FAIL
// 扫描本身完成即为 DONE，与校验结果无关
func (s *TaskService) runValidate(ctx context.Context, taskID uint64, deviceID string) {
	logger := zerolog.Ctx(ctx)
	opts := s.opts.Validate

	size, err := s.client.DeviceByteSize(ctx, deviceID)
	if err != nil {
		s.fail(ctx, taskID, err)
		return
	}

	blocks := int(size / int64(opts.BlockSize))
	if blocks > opts.MaxBlocks {
		blocks = opts.MaxBlocks
	}

	var (
		bad    []int
		detail string
	)
	if opts.Mode == ValidateModeStream {
		bad, detail = s.scanStream(ctx, taskID, deviceID, blocks)
	} else {
		bad = s.scanBlocks(ctx, taskID, deviceID, blocks)
	}

	status := validateStatusOK
	if len(bad) > 0 {
		status = validateStatusFail
	}
	s.stampDevice(ctx, deviceID, map[string]interface{}{
		"validate_status":  status,
		"last_validate_at": s.now(),
	})

	output := fmt.Sprintf("scanned %d blocks (%s of %s), bad blocks: %d %v",
		blocks,
		humanize.IBytes(uint64(blocks)*uint64(opts.BlockSize)),
		humanize.IBytes(uint64(size)),
		len(bad), bad)
	if detail != "" {
		output += "\n" + detail
	}

	logger.Info().
		Int("blocks", blocks).
		Ints("bad_blocks", bad).
		Str("validate_status", status).
		Msg("Validation finished")

	s.complete(ctx, taskID, repository.TaskStatusDone, output)
}

// scanBlocks 逐块扫描，命令失败的块同样视为坏块
func (s *TaskService) scanBlocks(ctx context.Context, taskID uint64, deviceID string, blocks int) []int {
	logger := zerolog.Ctx(ctx)
	bad := make([]int, 0)
	for i := 0; i < blocks; i++ {
		ok, err := s.client.ScanBlock(ctx, deviceID, s.opts.Validate.BlockSize, i)
		if err != nil {
			logger.Warn().Err(err).Int("block", i).Msg("Block scan failed, counted as bad")
		}
		if err != nil || !ok {
			bad = append(bad, i)
		}
		s.advance(ctx, taskID, (i+1)*100/blocks)
	}
	return bad
}

// scanStream 一次扫描全部块，从输出中解析进度
// 扫描命令失败时无法确认哪些块可读，整段视为坏块
func (s *TaskService) scanStream(ctx context.Context, taskID uint64, deviceID string, blocks int) ([]int, string) {
	if blocks == 0 {
		return []int{}, ""
	}

	result, err := s.client.ScanBlocksStream(ctx, deviceID, s.opts.Validate.BlockSize, blocks, func(percent int) {
		s.advance(ctx, taskID, percent)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Streaming block scan failed")
		bad := make([]int, 0, blocks)
		if result != nil && len(result.BadBlocks) > 0 {
			bad = append(bad, result.BadBlocks...)
		} else {
			for i := 0; i < blocks; i++ {
				bad = append(bad, i)
			}
		}
		return bad, err.Error()
	}

	bad := make([]int, 0, len(result.BadBlocks))
	for _, b := range result.BadBlocks {
		if b >= 0 && b < blocks {
			bad = append(bad, b)
		}
	}
	return bad, ""
}

// runSmartTest 启动自检后立即结束，不跟踪自检进度
func (s *TaskService) runSmartTest(ctx context.Context, taskID uint64, deviceID, mode string) {
	out, err := s.client.StartSelfTest(ctx, deviceID, mode)
	if err != nil {
		s.fail(ctx, taskID, err)
		return
	}
	s.complete(ctx, taskID, repository.TaskStatusOK, out)
}

// runSmartView 读取 SMART 报告并写入历史和设备表
func (s *TaskService) runSmartView(ctx context.Context, taskID uint64, deviceID string) {
	report, err := s.smart.ViewSmart(ctx, deviceID)
	if err != nil {
		s.fail(ctx, taskID, err)
		return
	}
	s.complete(ctx, taskID, repository.TaskStatusOK, report.Report)
}

// advance 更新进度，只在任务仍为 RUNNING 时生效
func (s *TaskService) advance(ctx context.Context, taskID uint64, progress int) {
	if _, err := s.tasks.UpdateRunning(ctx, taskID, repository.TaskUpdate{Progress: &progress}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("progress", progress).Msg("Failed to update task progress")
	}
}

// complete 任务成功结束，进度置为 100
func (s *TaskService) complete(ctx context.Context, taskID uint64, status, output string) {
	progress := 100
	s.finish(ctx, taskID, repository.TaskUpdate{
		Status:   &status,
		Progress: &progress,
		Output:   &output,
	})
}

// fail 任务失败，进度保持不变
func (s *TaskService) fail(ctx context.Context, taskID uint64, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Msg("Task failed")
	status := repository.TaskStatusFail
	// 命令失败时只记录命令输出，其他错误记录错误信息
	output := diskutil.OutputOf(err)
	s.finish(ctx, taskID, repository.TaskUpdate{
		Status: &status,
		Output: &output,
	})
}

func (s *TaskService) finish(ctx context.Context, taskID uint64, update repository.TaskUpdate) {
	logger := zerolog.Ctx(ctx)
	applied, err := s.tasks.UpdateRunning(ctx, taskID, update)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to record task result")
		return
	}
	if !applied {
		// 任务已被停止，结果丢弃
		logger.Info().Str("status", *update.Status).Msg("Task no longer running, result dropped")
		return
	}
	logger.Info().Str("status", *update.Status).Msg("Task finished")
}

// stampDevice 更新设备字段，设备不存在时只记录日志
func (s *TaskService) stampDevice(ctx context.Context, deviceID string, fields map[string]interface{}) {
	logger := zerolog.Ctx(ctx)
	device, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Msg("Device disappeared from inventory, result not recorded")
			return
		}
		logger.Error().Err(err).Msg("Failed to load device")
		return
	}
	if err := s.devices.Updates(ctx, device.ID, fields); err != nil {
		logger.Error().Err(err).Msg("Failed to update device")
	}
}

func joinOutput(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
