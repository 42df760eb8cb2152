package model

import "time"

// Device 设备表，每块物理磁盘一行，永不硬删除
type Device struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`                               // sonyflake
	DeviceID        string     `gorm:"type:text;not null;index:idx_devices_device_id;column:device_id" json:"device_id"` // sda、nvme0n1，重新插拔后可能变化
	Serial          *string    `gorm:"type:text;index:idx_devices_serial;column:serial" json:"serial"`                   // 唯一可靠的长期标识
	Model           *string    `gorm:"type:text;column:model" json:"model"`
	Vendor          *string    `gorm:"type:text;column:vendor" json:"vendor"`
	Size            *string    `gorm:"type:text;column:size" json:"size"`
	Location        *string    `gorm:"type:text;column:location" json:"location"`
	Present         bool       `gorm:"type:boolean;not null;default:0;index:idx_devices_present;column:present" json:"present"`
	SmartStatus     *string    `gorm:"type:text;index:idx_devices_smart_status;column:smart_status" json:"smart_status"` // GOOD, BAD
	LastSmartReport *string    `gorm:"type:text;column:last_smart_report" json:"last_smart_report"`
	LastSmartAt     *time.Time `gorm:"type:datetime;column:last_smart_at" json:"last_smart_at"`
	ValidateStatus  *string    `gorm:"type:text;column:validate_status" json:"validate_status"` // OK, FAIL
	LastValidateAt  *time.Time `gorm:"type:datetime;column:last_validate_at" json:"last_validate_at"`
	LastFormatAt    *time.Time `gorm:"type:datetime;column:last_format_at" json:"last_format_at"`
	FirstSeen       time.Time  `gorm:"type:datetime;not null;column:first_seen" json:"first_seen"`
	UpdatedAt       time.Time  `gorm:"type:datetime;not null;column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Device) TableName() string {
	return "devices"
}
