package model

import "time"

// SmartHistory SMART 采样记录，只追加
type SmartHistory struct {
	ID          uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	DeviceID    string    `gorm:"type:text;not null;index:idx_smart_history_device_id;column:device_id" json:"device_id"`
	Serial      *string   `gorm:"type:text;column:serial" json:"serial"`
	Temperature *int      `gorm:"type:integer;column:temperature" json:"temperature"`
	Health      string    `gorm:"type:text;not null;column:health" json:"health"` // GOOD, BAD
	Source      string    `gorm:"type:text;not null;column:source" json:"source"` // diagnostic, import
	DeviceHint  *string   `gorm:"type:text;column:device_hint" json:"device_hint"`
	CreatedAt   time.Time `gorm:"type:datetime;not null;index:idx_smart_history_created_at;column:created_at" json:"created_at"`
}

// TableName 指定表名
func (SmartHistory) TableName() string {
	return "smart_history"
}
