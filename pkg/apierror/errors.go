package apierror

import "net/http"

// 设备相关错误
var (
	// ErrDeviceNotFound 设备不存在
	ErrDeviceNotFound = NewErrorWithStatus("DeviceNotFound", "The specified device does not exist.", http.StatusNotFound)

	// ErrReportNoIdentity SMART 报告中没有可识别的序列号，无法与任何设备合并
	ErrReportNoIdentity = NewErrorWithStatus("ReportNoIdentity", "The SMART report does not contain a serial number.", http.StatusUnprocessableEntity)

	// ErrDeviceEnumeration 枚举块设备失败
	ErrDeviceEnumeration = NewErrorWithStatus("DeviceEnumerationFailed", "Failed to enumerate attached devices.", http.StatusBadGateway)
)

// 任务相关错误
var (
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = NewErrorWithStatus("TaskNotFound", "The specified task does not exist.", http.StatusNotFound)

	// ErrInvalidAction 不支持的任务动作
	ErrInvalidAction = NewErrorWithStatus("InvalidAction", "The specified task action is not supported.", http.StatusBadRequest)

	// ErrInvalidFilesystem 不支持的文件系统
	ErrInvalidFilesystem = NewErrorWithStatus("InvalidFilesystem", "The specified filesystem is not supported. Valid values: ext4, xfs, fat32.", http.StatusBadRequest)

	// ErrInvalidSmartMode 不支持的 SMART 自检类型
	ErrInvalidSmartMode = NewErrorWithStatus("InvalidSmartMode", "The specified SMART test mode is not supported. Valid values: short, long.", http.StatusBadRequest)

	// ErrNothingToUpdate 进度更新时未提供任何字段
	ErrNothingToUpdate = NewErrorWithStatus("NothingToUpdate", "At least one of status or progress must be supplied.", http.StatusBadRequest)
)

// 通用错误
var (
	// ErrInvalidParameter 参数错误
	ErrInvalidParameter = NewErrorWithStatus("InvalidParameter", "A parameter specified in the request is not valid.", http.StatusBadRequest)

	// ErrInternalError 内部错误
	ErrInternalError = NewErrorWithStatus("InternalError", "An internal error has occurred.", http.StatusInternalServerError)
)
