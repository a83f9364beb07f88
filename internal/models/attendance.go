package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attendance is one absensi row: a student's status for one school day.
type Attendance struct {
	ID                string     `gorm:"type:uuid;primaryKey"`
	StudentIDRef      string     `gorm:"type:uuid;not null;uniqueIndex:uniq_student_date,priority:1"`
	ClassIDRef        *string    `gorm:"type:uuid;index"`
	Date              string     `gorm:"size:10;not null;index;uniqueIndex:uniq_student_date,priority:2"` // YYYY-MM-DD
	Status            string     `gorm:"size:16;not null;index"`
	CheckInAt         *time.Time
	CheckOutAt        *time.Time
	Late              bool
	Notes             string     `gorm:"type:text"`
	RecordedBy        *string    `gorm:"type:uuid"`
	VerifiedBy        *string    `gorm:"type:uuid"`
	VerifiedAt        *time.Time
	LeaveRequestIDRef *string    `gorm:"type:uuid;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Attendance) TableName() string {
	return "absensi"
}

func (a *Attendance) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
