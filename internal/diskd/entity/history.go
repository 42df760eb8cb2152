package entity

// ListHistoryRequest 列出历史请求
type ListHistoryRequest struct {
	Limit int `json:"limit,omitempty" form:"limit"`
}

// ListHistoryResponse 列出历史响应
type ListHistoryResponse struct {
	Tasks        []Task              `json:"tasks"`
	SmartHistory []SmartHistoryEntry `json:"smartHistory"`
}

// ClearHistoryResponse 清空历史响应
type ClearHistoryResponse struct {
	TasksDeleted        int64 `json:"tasksDeleted"`
	SmartHistoryDeleted int64 `json:"smartHistoryDeleted"`
}

// Dashboard 概览
type Dashboard struct {
	TotalDevices     int64           `json:"totalDevices"`
	PresentDevices   int64           `json:"presentDevices"`
	BadHealthDevices int64           `json:"badHealthDevices"`
	RunningTasks     int64           `json:"runningTasks"`
	Runtimes         []DeviceRuntime `json:"runtimes"`
}

// DeviceRuntime 设备第一次执行任务至今的时间
type DeviceRuntime struct {
	DeviceID    string `json:"deviceID"`
	FirstTaskAt string `json:"firstTaskAt"`
	Runtime     string `json:"runtime"`
}
