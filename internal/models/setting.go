package models

import "time"

// Setting is one persisted panel preference, addressed by category and key
// (e.g. "messages"/"maxShow").
type Setting struct {
	Category  string    `gorm:"primaryKey;column:category"`
	Key       string    `gorm:"primaryKey;column:setting_key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string {
	return "settings"
}
