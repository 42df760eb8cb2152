package service

import (
	"context"
	"testing"
	"time"

	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClearHistoryKeepsDevices(t *testing.T) {
	t.Parallel()

	ts := setupTestServices(t, TaskOptions{})
	ctx := context.Background()
	seedPresent(t, ts, "sda")

	ts.MockClient.On("StartSelfTest", mock.Anything, "sda", "short").Return("", nil)
	ts.MockClient.On("RunDiagnostic", mock.Anything, "sda").Return(ataReport, nil)

	_, err := ts.Tasks.StartTask(ctx, "sda", "SMART_SHORT")
	require.NoError(t, err)
	_, err = ts.Tasks.StartTask(ctx, "sda", ActionSmartView)
	require.NoError(t, err)
	ts.Tasks.Wait()

	history, err := ts.History.ListHistory(ctx, &entity.ListHistoryRequest{})
	require.NoError(t, err)
	assert.Len(t, history.Tasks, 2)
	assert.Len(t, history.SmartHistory, 1)

	resp, err := ts.History.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TasksDeleted)
	assert.Equal(t, int64(1), resp.SmartHistoryDeleted)

	history, err = ts.History.ListHistory(ctx, &entity.ListHistoryRequest{})
	require.NoError(t, err)
	assert.Empty(t, history.Tasks)
	assert.Empty(t, history.SmartHistory)

	// 设备表和设备上的 SMART 字段保留
	sda := ts.device(t, "sda")
	assert.Equal(t, "GOOD", *sda.SmartStatus)
}

func TestListHistoryLimit(t *testing.T) {
	t.Parallel()

	ts := setupTestServices(t, TaskOptions{})
	ctx := context.Background()
	seedPresent(t, ts, "sda")

	ts.MockClient.On("StartSelfTest", mock.Anything, "sda", "short").Return("", nil)
	for i := 0; i < 3; i++ {
		_, err := ts.Tasks.StartTask(ctx, "sda", "SMART_SHORT")
		require.NoError(t, err)
	}
	ts.Tasks.Wait()

	history, err := ts.History.ListHistory(ctx, &entity.ListHistoryRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, history.Tasks, 2)
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	ts := setupTestServices(t, TaskOptions{})
	ctx := context.Background()

	ts.seedDevice(t, &model.Device{DeviceID: "sda", Present: true, SmartStatus: strPtr("GOOD"), FirstSeen: time.Now()})
	ts.seedDevice(t, &model.Device{DeviceID: "sdb", Present: true, SmartStatus: strPtr("BAD"), FirstSeen: time.Now()})
	ts.seedDevice(t, &model.Device{DeviceID: "sdc", Present: false, SmartStatus: strPtr("BAD"), FirstSeen: time.Now()})

	release := make(chan struct{})
	ts.MockClient.On("StartSelfTest", mock.Anything, "sda", "short").
		Run(func(mock.Arguments) { <-release }).
		Return("", nil)
	_, err := ts.Tasks.StartTask(ctx, "sda", "SMART_SHORT")
	require.NoError(t, err)
	defer close(release)

	// 固定时间，便于检查运行时长
	ts.History.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	dashboard, err := ts.History.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dashboard.TotalDevices)
	assert.Equal(t, int64(2), dashboard.PresentDevices)
	assert.Equal(t, int64(2), dashboard.BadHealthDevices)
	assert.Equal(t, int64(1), dashboard.RunningTasks)
	require.Len(t, dashboard.Runtimes, 1)
	assert.Equal(t, "sda", dashboard.Runtimes[0].DeviceID)
	assert.Equal(t, "3 hours", dashboard.Runtimes[0].Runtime)
	assert.NotEmpty(t, dashboard.Runtimes[0].FirstTaskAt)
}

func TestDashboardEmpty(t *testing.T) {
	t.Parallel()

	ts := setupTestServices(t, TaskOptions{})

	dashboard, err := ts.History.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dashboard.TotalDevices)
	assert.Zero(t, dashboard.RunningTasks)
	assert.Empty(t, dashboard.Runtimes)
}
