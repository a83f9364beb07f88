package models

import "time"

// CheckinCode is a per-class, per-day code students must present at check-in.
type CheckinCode struct {
	ID         uint       `gorm:"primaryKey"`
	ClassIDRef string     `gorm:"type:uuid;index:idx_class_date,priority:1"`
	Date       string     `gorm:"size:10;index:idx_class_date,priority:2"`
	Code       string     `gorm:"size:16;uniqueIndex"`
	CreatedBy  string     `gorm:"type:uuid"`
	ExpiresAt  time.Time  `gorm:"index"`
	RevokedAt  *time.Time `gorm:"index"`
	CreatedAt  time.Time
}
