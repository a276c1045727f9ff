package models

const SettingAutoAllocatorEnabled = "auto_allocator_enabled"

type Setting struct {
	Key   string `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value string `gorm:"type:varchar(255);not null" json:"value"`
}
