package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeaveRequest struct {
	ID            string     `gorm:"type:uuid;primaryKey"`
	StudentIDRef  string     `gorm:"type:uuid;not null;index"`
	Type          string     `gorm:"size:16;not null"` // izin | sakit
	StartDate     string     `gorm:"size:10;not null;index"`
	EndDate       string     `gorm:"size:10;not null;index"`
	Reason        string     `gorm:"type:text"`
	AttachmentURL string     `gorm:"size:500"`
	Status        string     `gorm:"size:16;not null;index"` // pending | approved | rejected
	ApproverIDRef *string    `gorm:"type:uuid"`
	DecidedAt     *time.Time
	RejectReason  string     `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (l *LeaveRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
