package model

import "time"

// Task 任务表，每个异步设备操作一行
type Task struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"` // sonyflake
	DeviceID  string    `gorm:"type:text;not null;index:idx_tasks_device_id;column:device_id" json:"device_id"`
	Action    string    `gorm:"type:text;not null;column:action" json:"action"`                        // FORMAT_ext4, SMART_SHORT, SMART_VIEW, VALIDATE
	Status    string    `gorm:"type:text;not null;index:idx_tasks_status;column:status" json:"status"` // RUNNING, OK, FAIL, DONE, STOPPED
	Progress  int       `gorm:"type:integer;not null;default:0;column:progress" json:"progress"`       // 0-100
	Output    *string   `gorm:"type:text;column:output" json:"output"`
	StartedAt time.Time `gorm:"type:datetime;not null;index:idx_tasks_started_at;column:started_at" json:"started_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}
