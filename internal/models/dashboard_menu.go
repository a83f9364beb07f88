package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DashboardMenu stores the menu payload rendered by the dashboard of one role.
type DashboardMenu struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Role      string         `gorm:"size:16;uniqueIndex"`
	Version   int            `gorm:"default:1"`
	Active    bool           `gorm:"default:true"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *DashboardMenu) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
