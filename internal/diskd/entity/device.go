package entity

// Device 设备
type Device struct {
	ID              uint64  `json:"id,string"`
	DeviceID        string  `json:"deviceID"`
	Serial          *string `json:"serial,omitempty"`
	Model           *string `json:"model,omitempty"`
	Vendor          *string `json:"vendor,omitempty"`
	Size            *string `json:"size,omitempty"`
	Location        *string `json:"location,omitempty"`
	Present         bool    `json:"present"`
	SmartStatus     *string `json:"smartStatus,omitempty"` // GOOD, BAD
	LastSmartReport *string `json:"lastSmartReport,omitempty"`
	LastSmartAt     *string `json:"lastSmartAt,omitempty"`
	ValidateStatus  *string `json:"validateStatus,omitempty"` // OK, FAIL
	LastValidateAt  *string `json:"lastValidateAt,omitempty"`
	LastFormatAt    *string `json:"lastFormatAt,omitempty"`
	FirstSeen       string  `json:"firstSeen"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ListDevicesRequest 列出设备请求
type ListDevicesRequest struct {
	Query         string `json:"q,omitempty" form:"q"`                          // 匹配 deviceID、model、serial
	IncludeAbsent bool   `json:"includeAbsent,omitempty" form:"include_absent"` // 包含离线设备
}

// ListDevicesResponse 列出设备响应
type ListDevicesResponse struct {
	Devices []Device `json:"devices"`
}

// SyncDevicesResponse 同步设备响应
type SyncDevicesResponse struct {
	NewDevices []string `json:"newDevices"`
	Devices    []Device `json:"devices"`
}

// DescribeDeviceRequest 查询单个设备请求
type DescribeDeviceRequest struct {
	DeviceID string `json:"deviceID" form:"device_id" binding:"required"`
}

// DescribeDeviceResponse 查询单个设备响应
type DescribeDeviceResponse struct {
	Device *Device `json:"device"`
}

// AutoModeStatus 自动模式状态
type AutoModeStatus struct {
	Enabled           bool   `json:"enabled"`
	Interval          string `json:"interval"`
	DefaultFilesystem string `json:"defaultFilesystem"`
	DefaultSmartMode  string `json:"defaultSmartMode"`
}

// SetAutoModeRequest 设置自动模式请求
type SetAutoModeRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
