package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Teacher is a guru profile. UserIDRef links the login account, if any.
type Teacher struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	UserIDRef *string `gorm:"type:uuid;uniqueIndex"`
	NIP       string  `gorm:"column:nip;size:32;uniqueIndex;not null"`
	FullName  string  `gorm:"size:150;not null"`
	Gender    string  `gorm:"size:1"`
	Phone     string  `gorm:"size:32"`
	Address   string  `gorm:"type:text"`
	Subject   string  `gorm:"size:100"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Teacher) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
