package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) Reconcile(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockTaskStarter struct {
	mock.Mock
}

func (m *mockTaskStarter) StartTask(ctx context.Context, deviceID, action string) (uint64, error) {
	args := m.Called(ctx, deviceID, action)
	return args.Get(0).(uint64), args.Error(1)
}

func TestAutoModeToggle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewAutoModeController(&mockReconciler{}, &mockTaskStarter{}, AutoModeOptions{})

	assert.False(t, c.Enabled())
	assert.True(t, c.Toggle(ctx))
	assert.True(t, c.Enabled())
	assert.False(t, c.Toggle(ctx))

	c.SetEnabled(ctx, true)
	c.SetEnabled(ctx, true)
	assert.True(t, c.Enabled())

	status := c.Status()
	assert.True(t, status.Enabled)
	assert.Equal(t, "10s", status.Interval)
	assert.Equal(t, "ext4", status.DefaultFilesystem)
	assert.Equal(t, "short", status.DefaultSmartMode)
}

func TestAutoModeTick(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reconciler := &mockReconciler{}
	starter := &mockTaskStarter{}
	c := NewAutoModeController(reconciler, starter, AutoModeOptions{
		Enabled:           true,
		DefaultFilesystem: "xfs",
		DefaultSmartMode:  "long",
	})

	reconciler.On("Reconcile", mock.Anything).Return([]string{"sdb", "sdc"}, nil)
	starter.On("StartTask", mock.Anything, "sdb", "FORMAT_xfs").Return(uint64(1), nil)
	starter.On("StartTask", mock.Anything, "sdb", "SMART_LONG").Return(uint64(2), nil)
	// 单个任务启动失败不影响其它设备
	starter.On("StartTask", mock.Anything, "sdc", "FORMAT_xfs").Return(uint64(0), apierror.ErrDeviceNotFound)
	starter.On("StartTask", mock.Anything, "sdc", "SMART_LONG").Return(uint64(4), nil)

	c.tick(ctx)

	starter.AssertNumberOfCalls(t, "StartTask", 4)
	starter.AssertExpectations(t)
}

func TestAutoModeTickReconcileError(t *testing.T) {
	t.Parallel()

	reconciler := &mockReconciler{}
	starter := &mockTaskStarter{}
	c := NewAutoModeController(reconciler, starter, AutoModeOptions{Enabled: true})

	reconciler.On("Reconcile", mock.Anything).Return(nil, errors.New("lsblk: not found"))

	c.tick(context.Background())

	starter.AssertNotCalled(t, "StartTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoModeRunLoop(t *testing.T) {
	t.Parallel()

	reconciler := &mockReconciler{}
	starter := &mockTaskStarter{}
	c := NewAutoModeController(reconciler, starter, AutoModeOptions{Interval: 10 * time.Millisecond})

	var calls atomic.Int32
	reconciler.On("Reconcile", mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return([]string{}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	// 关闭时不做任何同步
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())

	c.SetEnabled(context.Background(), true)
	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(shutdownCtx))
	assert.NoError(t, <-done)
	assert.Equal(t, "Auto Mode Controller", c.Name())
}

func TestAutoModeRunStopsOnContext(t *testing.T) {
	t.Parallel()

	c := NewAutoModeController(&mockReconciler{}, &mockTaskStarter{}, AutoModeOptions{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("auto mode loop did not stop")
	}
}
