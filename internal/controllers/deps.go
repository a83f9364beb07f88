package controllers

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

// Deps is embedded by every controller.
type Deps struct {
	DB   *gorm.DB
	Log  *zap.Logger
	Loc  *time.Location
	Hubs *ws.Hubs
	// Now is overridden in tests.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) location() *time.Location {
	if d.Loc != nil {
		return d.Loc
	}
	return time.UTC
}

func (d Deps) logger() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return zap.NewNop()
}

func (d Deps) settings(db *gorm.DB) (map[string]string, error) {
	var rows []models.AppConfig
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// policy loads the attendance policy from the stored settings. A read
// failure falls back to the defaults.
func (d Deps) policy() attendance.Policy {
	s, err := d.settings(d.DB)
	if err != nil {
		d.logger().Warn("load settings", zap.Error(err))
		return attendance.DefaultPolicy(d.location())
	}
	return attendance.PolicyFromSettings(d.location(), s)
}

func (d Deps) schoolName() string {
	var rec models.AppConfig
	if err := d.DB.Where("key = ?", models.SettingSchoolName).First(&rec).Error; err != nil {
		return ""
	}
	return rec.Value
}
