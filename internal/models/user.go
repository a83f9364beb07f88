package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleGuru  = "guru"
	RoleSiswa = "siswa"
)

type User struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	FullName    string `gorm:"size:150;not null"`
	Email       string `gorm:"size:150;uniqueIndex;not null"`
	Password    string `gorm:"not null"`
	Role        string `gorm:"size:16;index;not null"`
	Active      bool   `gorm:"index"`
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
