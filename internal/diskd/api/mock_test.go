package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDeviceService 是 DeviceServiceInterface 的 mock 实现
type MockDeviceService struct {
	mock.Mock
}

func (m *MockDeviceService) ListDevices(ctx context.Context, req *entity.ListDevicesRequest) (*entity.ListDevicesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ListDevicesResponse), args.Error(1)
}

func (m *MockDeviceService) SyncDevices(ctx context.Context) (*entity.SyncDevicesResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SyncDevicesResponse), args.Error(1)
}

func (m *MockDeviceService) DescribeDevice(ctx context.Context, deviceID string) (*entity.Device, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Device), args.Error(1)
}

// MockAutoMode 是 AutoModeInterface 的 mock 实现
type MockAutoMode struct {
	mock.Mock
}

func (m *MockAutoMode) Status() *entity.AutoModeStatus {
	args := m.Called()
	return args.Get(0).(*entity.AutoModeStatus)
}

func (m *MockAutoMode) Toggle(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockAutoMode) SetEnabled(ctx context.Context, enabled bool) {
	m.Called(ctx, enabled)
}

// MockTaskService 是 TaskServiceInterface 的 mock 实现
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) startResponse(args mock.Arguments) (*entity.StartTaskResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StartTaskResponse), args.Error(1)
}

func (m *MockTaskService) StartAction(ctx context.Context, req *entity.StartTaskRequest) (*entity.StartTaskResponse, error) {
	return m.startResponse(m.Called(ctx, req))
}

func (m *MockTaskService) StartFormat(ctx context.Context, req *entity.StartFormatRequest) (*entity.StartTaskResponse, error) {
	return m.startResponse(m.Called(ctx, req))
}

func (m *MockTaskService) StartValidate(ctx context.Context, req *entity.StartValidateRequest) (*entity.StartTaskResponse, error) {
	return m.startResponse(m.Called(ctx, req))
}

func (m *MockTaskService) StartSmartTest(ctx context.Context, req *entity.StartSmartTestRequest) (*entity.StartTaskResponse, error) {
	return m.startResponse(m.Called(ctx, req))
}

func (m *MockTaskService) StartSmartView(ctx context.Context, req *entity.StartSmartViewRequest) (*entity.StartTaskResponse, error) {
	return m.startResponse(m.Called(ctx, req))
}

func (m *MockTaskService) UpdateProgress(ctx context.Context, taskID uint64, status *string, progress *int) error {
	args := m.Called(ctx, taskID, status, progress)
	return args.Error(0)
}

func (m *MockTaskService) QueryStatus(ctx context.Context, taskID uint64) (*entity.TaskStatus, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TaskStatus), args.Error(1)
}

func (m *MockTaskService) Stop(ctx context.Context, taskID uint64) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockTaskService) GetTask(ctx context.Context, taskID uint64) (*entity.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Task), args.Error(1)
}

func (m *MockTaskService) ListTasks(ctx context.Context, req *entity.ListTasksRequest) (*entity.ListTasksResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ListTasksResponse), args.Error(1)
}

// MockSmartService 是 SmartServiceInterface 的 mock 实现
type MockSmartService struct {
	mock.Mock
}

func (m *MockSmartService) ViewSmart(ctx context.Context, deviceID string) (*entity.SmartReport, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SmartReport), args.Error(1)
}

func (m *MockSmartService) ImportReport(ctx context.Context, text, deviceHint string) (*entity.ImportSmartReportResponse, error) {
	args := m.Called(ctx, text, deviceHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ImportSmartReportResponse), args.Error(1)
}

func (m *MockSmartService) ExportRows(ctx context.Context, req *entity.ExportSmartHistoryRequest) (*entity.ExportSmartHistoryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ExportSmartHistoryResponse), args.Error(1)
}

// MockHistoryService 是 HistoryServiceInterface 的 mock 实现
type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) ListHistory(ctx context.Context, req *entity.ListHistoryRequest) (*entity.ListHistoryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ListHistoryResponse), args.Error(1)
}

func (m *MockHistoryService) ClearHistory(ctx context.Context) (*entity.ClearHistoryResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ClearHistoryResponse), args.Error(1)
}

func (m *MockHistoryService) Dashboard(ctx context.Context) (*entity.Dashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Dashboard), args.Error(1)
}

// testAPI 测试用的 API 和所有 mock 服务
type testAPI struct {
	api      *API
	devices  *MockDeviceService
	autoMode *MockAutoMode
	tasks    *MockTaskService
	smart    *MockSmartService
	history  *MockHistoryService
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()

	ta := &testAPI{
		devices:  &MockDeviceService{},
		autoMode: &MockAutoMode{},
		tasks:    &MockTaskService{},
		smart:    &MockSmartService{},
		history:  &MockHistoryService{},
	}
	api, err := New("127.0.0.1:0", zerolog.Nop(), Services{
		Devices:  ta.devices,
		AutoMode: ta.autoMode,
		Tasks:    ta.tasks,
		Smart:    ta.smart,
		History:  ta.history,
	})
	require.NoError(t, err)
	ta.api = api
	return ta
}

// do 发送请求，body 非空时按 JSON 发送
func (ta *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ta.api.engine.ServeHTTP(w, req)
	return w
}
