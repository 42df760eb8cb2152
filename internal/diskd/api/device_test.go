package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDevice_ListDevices(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name         string
		path         string
		body         string
		mockSetup    func(*MockDeviceService)
		expectStatus int
		expectCount  int
	}{
		{
			name: "query from body",
			path: "/api/devices/list",
			body: `{"q":"acme","includeAbsent":true}`,
			mockSetup: func(m *MockDeviceService) {
				m.On("ListDevices", mock.Anything, &entity.ListDevicesRequest{Query: "acme", IncludeAbsent: true}).
					Return(&entity.ListDevicesResponse{Devices: []entity.Device{{DeviceID: "sda"}}}, nil)
			},
			expectStatus: http.StatusOK,
			expectCount:  1,
		},
		{
			name: "query from url",
			path: "/api/devices/list?q=sd&include_absent=true",
			mockSetup: func(m *MockDeviceService) {
				m.On("ListDevices", mock.Anything, &entity.ListDevicesRequest{Query: "sd", IncludeAbsent: true}).
					Return(&entity.ListDevicesResponse{Devices: []entity.Device{{DeviceID: "sda"}, {DeviceID: "sdb"}}}, nil)
			},
			expectStatus: http.StatusOK,
			expectCount:  2,
		},
		{
			name: "service error",
			path: "/api/devices/list",
			mockSetup: func(m *MockDeviceService) {
				m.On("ListDevices", mock.Anything, mock.Anything).Return(nil, errors.New("database is locked"))
			},
			expectStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ta := setupTestAPI(t)
			tc.mockSetup(ta.devices)

			w := ta.do(http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.expectStatus, w.Code)
			if tc.expectStatus == http.StatusOK {
				var resp entity.ListDevicesResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Len(t, resp.Devices, tc.expectCount)
			}
			ta.devices.AssertExpectations(t)
		})
	}
}

func TestDevice_SyncDevices(t *testing.T) {
	t.Parallel()

	ta := setupTestAPI(t)
	ta.devices.On("SyncDevices", mock.Anything).Return(&entity.SyncDevicesResponse{
		NewDevices: []string{"sdb"},
		Devices:    []entity.Device{{DeviceID: "sda"}, {DeviceID: "sdb"}},
	}, nil)

	w := ta.do(http.MethodPost, "/api/devices/sync", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp entity.SyncDevicesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"sdb"}, resp.NewDevices)
	assert.Len(t, resp.Devices, 2)
}

func TestDevice_SyncDevicesEnumerationFailure(t *testing.T) {
	t.Parallel()

	ta := setupTestAPI(t)
	ta.devices.On("SyncDevices", mock.Anything).
		Return(nil, apierror.WrapError(apierror.ErrDeviceEnumeration, "", errors.New("lsblk: not found")))

	w := ta.do(http.MethodPost, "/api/devices/sync", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "DeviceEnumerationFailed")
	// 内部错误不会出现在响应中
	assert.NotContains(t, w.Body.String(), "lsblk")
}

func TestDevice_DescribeDevice(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name         string
		body         string
		mockSetup    func(*MockDeviceService)
		expectStatus int
	}{
		{
			name: "found",
			body: `{"deviceID":"sda"}`,
			mockSetup: func(m *MockDeviceService) {
				m.On("DescribeDevice", mock.Anything, "sda").Return(&entity.Device{ID: 7, DeviceID: "sda", Present: true}, nil)
			},
			expectStatus: http.StatusOK,
		},
		{
			name: "not found",
			body: `{"deviceID":"sdz"}`,
			mockSetup: func(m *MockDeviceService) {
				m.On("DescribeDevice", mock.Anything, "sdz").Return(nil, apierror.ErrDeviceNotFound)
			},
			expectStatus: http.StatusNotFound,
		},
		{
			name:         "missing device id",
			body:         `{}`,
			mockSetup:    func(m *MockDeviceService) {},
			expectStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ta := setupTestAPI(t)
			tc.mockSetup(ta.devices)

			w := ta.do(http.MethodPost, "/api/devices/describe", tc.body)
			assert.Equal(t, tc.expectStatus, w.Code)
			if tc.expectStatus == http.StatusOK {
				assert.JSONEq(t, `{"device":{"id":"7","deviceID":"sda","present":true,"firstSeen":"","updatedAt":""}}`, w.Body.String())
			}
		})
	}
}

func TestAutoMode(t *testing.T) {
	t.Parallel()

	status := &entity.AutoModeStatus{Enabled: true, Interval: "10s", DefaultFilesystem: "ext4", DefaultSmartMode: "short"}

	t.Run("describe", func(t *testing.T) {
		t.Parallel()

		ta := setupTestAPI(t)
		ta.autoMode.On("Status").Return(status)

		w := ta.do(http.MethodPost, "/api/automode/describe", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"enabled":true,"interval":"10s","defaultFilesystem":"ext4","defaultSmartMode":"short"}`, w.Body.String())
	})

	t.Run("toggle", func(t *testing.T) {
		t.Parallel()

		ta := setupTestAPI(t)
		ta.autoMode.On("Toggle", mock.Anything).Return(true)
		ta.autoMode.On("Status").Return(status)

		w := ta.do(http.MethodPost, "/api/automode/toggle", "")
		assert.Equal(t, http.StatusOK, w.Code)
		ta.autoMode.AssertCalled(t, "Toggle", mock.Anything)
	})

	t.Run("set false", func(t *testing.T) {
		t.Parallel()

		ta := setupTestAPI(t)
		ta.autoMode.On("SetEnabled", mock.Anything, false).Return()
		ta.autoMode.On("Status").Return(&entity.AutoModeStatus{Enabled: false})

		w := ta.do(http.MethodPost, "/api/automode/set", `{"enabled":false}`)
		assert.Equal(t, http.StatusOK, w.Code)
		ta.autoMode.AssertCalled(t, "SetEnabled", mock.Anything, false)
	})

	t.Run("set requires enabled", func(t *testing.T) {
		t.Parallel()

		ta := setupTestAPI(t)
		w := ta.do(http.MethodPost, "/api/automode/set", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		ta.autoMode.AssertNotCalled(t, "SetEnabled", mock.Anything, mock.Anything)
	})
}
