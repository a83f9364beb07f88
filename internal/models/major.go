package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Major is a jurusan (e.g. IPA, IPS, TKJ) that classes can belong to.
type Major struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Code      string `gorm:"size:32;uniqueIndex"`
	Name      string `gorm:"size:120"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Major) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
