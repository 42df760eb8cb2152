package entity

// SmartReport 同步获取的 SMART 报告
type SmartReport struct {
	DeviceID    string `json:"deviceID"`
	Serial      string `json:"serial,omitempty"`
	Health      string `json:"health"`
	Temperature *int   `json:"temperature,omitempty"`
	Report      string `json:"report"`
	CheckedAt   string `json:"checkedAt"`
}

// ViewSmartRequest 同步获取 SMART 报告请求
type ViewSmartRequest struct {
	DeviceID string `json:"deviceID" form:"device_id" binding:"required"`
}

// ImportSmartReportRequest 导入 SMART 报告请求，报告也可以通过 multipart 的 file 字段上传
type ImportSmartReportRequest struct {
	Report     string `json:"report" form:"report"`
	DeviceHint string `json:"deviceHint,omitempty" form:"device"`
}

// ImportSmartReportResponse 导入 SMART 报告响应
type ImportSmartReportResponse struct {
	Matched  bool   `json:"matched"`
	Created  bool   `json:"created"`
	DeviceID string `json:"deviceID"`
	Serial   string `json:"serial"`
	Health   string `json:"health"`
	Message  string `json:"message"`
}

// SmartHistoryEntry SMART 历史记录
type SmartHistoryEntry struct {
	ID          uint    `json:"id"`
	DeviceID    string  `json:"deviceID"`
	Serial      *string `json:"serial,omitempty"`
	Temperature *int    `json:"temperature,omitempty"`
	Health      string  `json:"health"`
	Source      string  `json:"source"`
	DeviceHint  *string `json:"deviceHint,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// ExportSmartHistoryRequest 导出 SMART 历史请求
type ExportSmartHistoryRequest struct {
	Format   string `json:"format,omitempty" form:"format"` // json, csv
	DeviceID string `json:"deviceID,omitempty" form:"device_id"`
}

// SmartHistoryRow 导出用的表格行，列顺序固定
type SmartHistoryRow []string

// SmartHistoryColumns 导出表头
var SmartHistoryColumns = []string{"id", "device", "serial", "temp", "health", "source", "ts"}

// ExportSmartHistoryResponse 导出 SMART 历史响应
type ExportSmartHistoryResponse struct {
	Columns []string          `json:"columns"`
	Rows    []SmartHistoryRow `json:"rows"`
}
