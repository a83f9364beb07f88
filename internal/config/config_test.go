package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, cfg.JWTSecret, cfg.RefreshJWTSecret)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("REFRESH_JWT_SECRET", "refresh")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("TIMEZONE", "Not/AZone")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.AccessTTL())
	assert.Equal(t, "refresh", cfg.RefreshJWTSecret)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)

	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, cfg.Location()).Zone()
	assert.Equal(t, 7*3600, offset)
}

func TestLegacyJWTExpiresIn(t *testing.T) {
	t.Setenv("JWT_EXPIRES_IN", "45")
	assert.Equal(t, 45*time.Minute, Load().AccessTTL())
}
