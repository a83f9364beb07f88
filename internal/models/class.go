package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Class is a kelas. HomeroomTeacherIDRef points at the wali kelas.
type Class struct {
	ID                   string  `gorm:"type:uuid;primaryKey"`
	Name                 string  `gorm:"size:64;uniqueIndex;not null"`
	Grade                string  `gorm:"size:16"`
	MajorIDRef           *string `gorm:"type:uuid;index"`
	AcademicYear         string  `gorm:"size:16"`
	HomeroomTeacherIDRef *string `gorm:"type:uuid;index"`
	Active               bool    `gorm:"index"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (c *Class) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ClassTeacher maps a guru to a class they teach in.
type ClassTeacher struct {
	ID           uint   `gorm:"primaryKey"`
	ClassIDRef   string `gorm:"type:uuid;uniqueIndex:uniq_class_teacher"`
	TeacherIDRef string `gorm:"type:uuid;uniqueIndex:uniq_class_teacher"`
	CreatedAt    time.Time
}
