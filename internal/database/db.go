package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaqqye/absensi_backend_v1/internal/config"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch cfg.DBDriver {
	case "sqlite":
		sep := "?"
		if strings.Contains(cfg.DBPath, "?") {
			sep = "&"
		}
		db, err := gorm.Open(sqlite.Open(cfg.DBPath+sep+"_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gcfg)
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case "postgres", "":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)
		return gorm.Open(postgres.Open(dsn), gcfg)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Major{},
		&models.Teacher{},
		&models.Class{},
		&models.ClassTeacher{},
		&models.Student{},
		&models.Attendance{},
		&models.LeaveRequest{},
		&models.CheckinCode{},
		&models.AppConfig{},
		&models.DashboardMenu{},
	)
}

// IsUniqueViolation reports whether err comes from a unique index on
// either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
