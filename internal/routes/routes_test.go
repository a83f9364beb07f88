package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaqqye/absensi_backend_v1/internal/config"
	"github.com/zaqqye/absensi_backend_v1/internal/controllers"
	"github.com/zaqqye/absensi_backend_v1/internal/database"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		JWTSecret:        "access-secret",
		RefreshJWTSecret: "refresh-secret",
		AdminEmail:       "admin@sekolah.id",
		AdminPassword:    "rahasia123",
		SchoolName:       "SMK Negeri 1",
		CORSOrigins:      []string{"https://absensi.sekolah.id"},
	}
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db, cfg, zap.NewNop()))

	hubs := ws.NewHubs(zap.NewNop())
	done := make(chan struct{})
	hubs.Run(done)
	t.Cleanup(func() { close(done) })

	deps := controllers.Deps{DB: db, Log: zap.NewNop(), Loc: time.FixedZone("WIB", 7*60*60), Hubs: hubs}
	r := gin.New()
	Register(r, deps, cfg, prometheus.NewRegistry())
	return r
}

func serve(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	r := newRouter(t)

	w := serve(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/config/public", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "SMK Negeri 1")

	w = serve(r, http.MethodGet, "/api/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "admin@sekolah.id", "password": "salah"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "admin@sekolah.id", "password": "rahasia123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "admin", login.Role)
	token := login.AccessToken

	w = serve(r, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "admin@sekolah.id")

	w = serve(r, http.MethodPost, "/api/v1/admin/majors", token, gin.H{"code": "RPL", "name": "Rekayasa Perangkat Lunak"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(r, http.MethodGet, "/api/v1/admin/majors", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "RPL")

	w = serve(r, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Admin passes the guru gate.
	w = serve(r, http.MethodGet, "/api/v1/classes", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Admin has no student profile to check in with.
	w = serve(r, http.MethodPost, "/api/v1/me/attendance/check-in", token, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = serve(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `absensi_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestCORS(t *testing.T) {
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://absensi.sekolah.id")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://absensi.sekolah.id", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSConfigWildcard(t *testing.T) {
	cc := corsConfig([]string{"*"})
	assert.True(t, cc.AllowAllOrigins)
	assert.False(t, cc.AllowCredentials)

	cc = corsConfig(strings.Split("https://a.id,https://b.id", ","))
	assert.False(t, cc.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.id", "https://b.id"}, cc.AllowOrigins)
}
