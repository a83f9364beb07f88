package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/config"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/utils"
)

func SeedAdmin(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := cfg.AdminEmail
	if email == "" {
		email = "admin@example.com"
	}
	fullName := cfg.AdminFullName
	if fullName == "" {
		fullName = "Administrator"
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "admin123"
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		FullName: fullName,
		Email:    email,
		Password: hashed,
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Info("seeded initial admin", zap.String("email", email))
	return nil
}

// SeedSettings inserts the default school settings; existing keys are kept.
func SeedSettings(db *gorm.DB, cfg *config.Config) error {
	defaults := []models.AppConfig{
		{Key: models.SettingSchoolName, Value: cfg.SchoolName, Description: "Nama sekolah pada laporan"},
		{Key: models.SettingCheckinLateAfter, Value: attendance.DefaultLateAfter, Description: "Absen masuk setelah jam ini dihitung terlambat (HH:MM)"},
		{Key: models.SettingCheckoutEarliest, Value: attendance.DefaultCheckoutEarliest, Description: "Absen pulang dibuka mulai jam ini (HH:MM)"},
		{Key: models.SettingSchoolDays, Value: attendance.DefaultSchoolDays, Description: "Hari sekolah, 0=Minggu ... 6=Sabtu"},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
}

var defaultMenus = map[string]string{
	models.RoleAdmin: `{"title":"Dashboard Admin","items":[` +
		`{"id":"summary","label":"Ringkasan","path":"/admin"},` +
		`{"id":"users","label":"Pengguna","path":"/admin/users"},` +
		`{"id":"classes","label":"Kelas","path":"/admin/classes"},` +
		`{"id":"teachers","label":"Guru","path":"/admin/teachers"},` +
		`{"id":"students","label":"Siswa","path":"/admin/students"},` +
		`{"id":"attendance","label":"Absensi","path":"/admin/attendance"},` +
		`{"id":"leave","label":"Izin & Sakit","path":"/admin/leave-requests","badge":"pending_leave_requests"},` +
		`{"id":"reports","label":"Laporan","path":"/admin/reports"},` +
		`{"id":"settings","label":"Pengaturan","path":"/admin/settings"}]}`,
	models.RoleGuru: `{"title":"Dashboard Guru","items":[` +
		`{"id":"summary","label":"Ringkasan","path":"/guru"},` +
		`{"id":"attendance","label":"Input Absensi","path":"/guru/attendance"},` +
		`{"id":"verify","label":"Verifikasi","path":"/guru/attendance/verify","badge":"pending"},` +
		`{"id":"leave","label":"Izin & Sakit","path":"/guru/leave-requests","badge":"pending_leave_requests"},` +
		`{"id":"checkin_code","label":"Kode Absen","path":"/guru/checkin-codes"},` +
		`{"id":"reports","label":"Laporan","path":"/guru/reports"},` +
		`{"id":"profile","label":"Profil","path":"/profile"}]}`,
	models.RoleSiswa: `{"title":"Dashboard Siswa","items":[` +
		`{"id":"checkin","label":"Absen Masuk/Pulang","path":"/siswa/checkin"},` +
		`{"id":"history","label":"Riwayat Absensi","path":"/siswa/attendance"},` +
		`{"id":"calendar","label":"Kalender","path":"/siswa/calendar"},` +
		`{"id":"leave","label":"Pengajuan Izin","path":"/siswa/leave-requests"},` +
		`{"id":"reports","label":"Rekap","path":"/siswa/reports"},` +
		`{"id":"profile","label":"Profil","path":"/profile"}]}`,
}

// SeedDashboardMenus stores the default menu of every role that has none.
func SeedDashboardMenus(db *gorm.DB, log *zap.Logger) error {
	seeded := 0
	for role, payload := range defaultMenus {
		var count int64
		if err := db.Model(&models.DashboardMenu{}).Where("role = ?", role).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		rec := models.DashboardMenu{Role: role, Version: 1, Active: true, Payload: []byte(payload)}
		if err := db.Create(&rec).Error; err != nil {
			return err
		}
		seeded++
	}
	if seeded > 0 {
		log.Info("seeded dashboard menus", zap.Int("count", seeded))
	}
	return nil
}

// Seed runs every seeder in order.
func Seed(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	if err := SeedAdmin(db, cfg, log); err != nil {
		return err
	}
	if err := SeedSettings(db, cfg); err != nil {
		return err
	}
	return SeedDashboardMenus(db, log)
}
