package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student is a siswa profile. UserIDRef links the login account, if any.
type Student struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	UserIDRef   *string `gorm:"type:uuid;uniqueIndex"`
	NIS         string  `gorm:"column:nis;size:32;uniqueIndex;not null"`
	NISN        string  `gorm:"column:nisn;size:32"`
	FullName    string  `gorm:"size:150;not null"`
	Gender      string  `gorm:"size:1"`
	BirthDate   string  `gorm:"size:10"`
	Phone       string  `gorm:"size:32"`
	Address     string  `gorm:"type:text"`
	ParentName  string  `gorm:"size:150"`
	ParentPhone string  `gorm:"size:32"`
	ClassIDRef  *string `gorm:"type:uuid;index"`
	Active      bool    `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *Student) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
