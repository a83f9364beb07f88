package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv        string
	Port          string
	DBDriver      string // postgres | sqlite
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBPath        string // sqlite file
	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	AdminFullName string
	SchoolName    string
	Timezone      string
	CORSOrigins   []string
	CloseDayCron  string // empty disables the job
	LogLevel      string
	// Token settings
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	RefreshJWTSecret      string
}

var defaults = map[string]any{
	"app_env":                  "development",
	"port":                     "8080",
	"db_driver":                "postgres",
	"db_host":                  "localhost",
	"db_port":                  "5432",
	"db_user":                  "postgres",
	"db_password":              "postgres",
	"db_name":                  "absensi_db",
	"db_sslmode":               "disable",
	"db_path":                  "absensi.db",
	"jwt_secret":               "supersecret_change_me",
	"admin_email":              "admin@example.com",
	"admin_password":           "admin123",
	"admin_full_name":          "Administrator",
	"school_name":              "Sekolah",
	"timezone":                 "Asia/Jakarta",
	"cors_origins":             "*",
	"close_day_cron":           "0 16 * * 1-5",
	"log_level":                "info",
	"access_token_ttl_minutes": 15,
	"refresh_token_ttl_days":   30,
}

// Load reads the configuration from the environment (call godotenv.Load
// first to pick up a .env file).
func Load() *Config {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	// JWT_EXPIRES_IN is the legacy name of the access token TTL.
	_ = v.BindEnv("access_token_ttl_minutes", "ACCESS_TOKEN_TTL_MINUTES", "JWT_EXPIRES_IN")
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	refreshSecret := v.GetString("refresh_jwt_secret")
	if refreshSecret == "" {
		refreshSecret = v.GetString("jwt_secret")
	}
	return &Config{
		AppEnv:                strings.ToLower(v.GetString("app_env")),
		Port:                  v.GetString("port"),
		DBDriver:              strings.ToLower(v.GetString("db_driver")),
		DBHost:                v.GetString("db_host"),
		DBPort:                v.GetString("db_port"),
		DBUser:                v.GetString("db_user"),
		DBPassword:            v.GetString("db_password"),
		DBName:                v.GetString("db_name"),
		DBSSLMode:             v.GetString("db_sslmode"),
		DBPath:                v.GetString("db_path"),
		JWTSecret:             v.GetString("jwt_secret"),
		AdminEmail:            v.GetString("admin_email"),
		AdminPassword:         v.GetString("admin_password"),
		AdminFullName:         v.GetString("admin_full_name"),
		SchoolName:            v.GetString("school_name"),
		Timezone:              v.GetString("timezone"),
		CORSOrigins:           splitList(v.GetString("cors_origins")),
		CloseDayCron:          strings.TrimSpace(v.GetString("close_day_cron")),
		LogLevel:              v.GetString("log_level"),
		AccessTokenTTLMinutes: v.GetInt("access_token_ttl_minutes"),
		RefreshTokenTTLDays:   v.GetInt("refresh_token_ttl_days"),
		RefreshJWTSecret:      refreshSecret,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) AccessTTL() time.Duration {
	if c.AccessTokenTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	if c.RefreshTokenTTLDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// Location resolves Timezone, falling back to WIB (UTC+7).
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("WIB", 7*60*60)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}
