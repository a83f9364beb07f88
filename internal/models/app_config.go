package models

import "time"

// AppConfig stores school settings managed via the admin API.
type AppConfig struct {
	Key         string `gorm:"size:128;primaryKey"`
	Value       string `gorm:"type:text"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	SettingSchoolName       = "school_name"
	SettingCheckinLateAfter = "checkin_late_after"
	SettingCheckoutEarliest = "checkout_earliest"
	SettingSchoolDays       = "school_days"
)
