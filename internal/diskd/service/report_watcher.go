package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/rs/zerolog"
)

// 导入后的文件移动到这两个子目录，避免重复导入
const (
	importedDirName = "imported"
	rejectedDirName = "rejected"
)

// ReportImporter 导入 SMART 报告
type ReportImporter interface {
	ImportReport(ctx context.Context, text, deviceHint string) (*entity.ImportSmartReportResponse, error)
}

// ReportWatcher 监听目录中新写入的 SMART 报告文件并导入
// 文件名（去掉扩展名）作为设备提示
type ReportWatcher struct {
	dir      string
	settle   time.Duration
	importer ReportImporter

	// path -> 最后一次写入事件的时间
	pending   map[string]time.Time
	pendingMu sync.Mutex

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReportWatcher 创建报告目录监听器，settle 为文件静止多久后才导入
func NewReportWatcher(dir string, settle time.Duration, importer ReportImporter) *ReportWatcher {
	if settle <= 0 {
		settle = time.Second
	}
	return &ReportWatcher{
		dir:      dir,
		settle:   settle,
		importer: importer,
		pending:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name 实现 grace.Grace 接口
func (w *ReportWatcher) Name() string {
	return "SMART Report Watcher"
}

// Run 实现 grace.Grace 接口
func (w *ReportWatcher) Run(ctx context.Context) error {
	defer close(w.done)
	logger := zerolog.Ctx(ctx)

	for _, sub := range []string{w.dir, filepath.Join(w.dir, importedDirName), filepath.Join(w.dir, rejectedDirName)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// 启动前已经存在的文件
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.dir, err)
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			w.touch(filepath.Join(w.dir, entry.Name()), now.Add(-w.settle))
		}
	}

	logger.Info().Str("dir", w.dir).Msg("SMART report watcher started")

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			w.touch(event.Name, time.Now())

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("SMART report watcher error")

		case now := <-ticker.C:
			for _, path := range w.stable(now) {
				w.importFile(ctx, path)
			}
		}
	}
}

// Shutdown 实现 grace.Grace 接口
func (w *ReportWatcher) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *ReportWatcher) touch(path string, at time.Time) {
	w.pendingMu.Lock()
	w.pending[path] = at
	w.pendingMu.Unlock()
}

// stable 取出静止时间超过 settle 的文件
func (w *ReportWatcher) stable(now time.Time) []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	var paths []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.settle {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	return paths
}

// importFile 导入单个文件，成功移入 imported/，没有序列号的移入 rejected/
// 其它错误保留原文件，等待下一次写入事件重试
func (w *ReportWatcher) importFile(ctx context.Context, path string) {
	logger := zerolog.Ctx(ctx).With().Str("file", path).Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Error().Err(err).Msg("Failed to read SMART report file")
		}
		return
	}

	hint := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	resp, err := w.importer.ImportReport(logger.WithContext(ctx), string(data), hint)
	switch {
	case err == nil:
		logger.Info().Str("device_id", resp.DeviceID).Bool("matched", resp.Matched).Msg("SMART report file imported")
		w.move(logger, path, importedDirName)
	case errors.Is(err, apierror.ErrReportNoIdentity):
		logger.Warn().Msg("SMART report file has no serial number")
		w.move(logger, path, rejectedDirName)
	default:
		logger.Error().Err(err).Msg("Failed to import SMART report file")
	}
}

func (w *ReportWatcher) move(logger zerolog.Logger, path, sub string) {
	target := filepath.Join(w.dir, sub, fmt.Sprintf("%s.%d", filepath.Base(path), time.Now().UnixNano()))
	if err := os.Rename(path, target); err != nil {
		logger.Error().Err(err).Str("target", target).Msg("Failed to move SMART report file")
	}
}
