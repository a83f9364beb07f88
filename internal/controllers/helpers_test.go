package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaqqye/absensi_backend_v1/internal/config"
	"github.com/zaqqye/absensi_backend_v1/internal/database"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/utils"
	"github.com/zaqqye/absensi_backend_v1/internal/validation"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

var wib = time.FixedZone("WIB", 7*60*60)

// fixture is a school with one guru homerooming class A, a siswa account
// in class A, a second student in A without account and a student in
// class B the guru does not teach. The clock starts Monday 2024-03-04 07:00 WIB.
type fixture struct {
	t    *testing.T
	db   *gorm.DB
	deps Deps
	now  time.Time

	admin, guru, siswa models.User
	teacher            models.Teacher
	classA, classB     models.Class
	student            models.Student // linked to siswa
	classmate          models.Student
	outsider           models.Student // in class B
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Register()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedSettings(db, &config.Config{SchoolName: "SMK Negeri 1"}))
	require.NoError(t, database.SeedDashboardMenus(db, zap.NewNop()))

	hubs := ws.NewHubs(zap.NewNop())
	done := make(chan struct{})
	hubs.Run(done)
	t.Cleanup(func() { close(done) })

	f := &fixture{t: t, db: db, now: time.Date(2024, 3, 4, 7, 0, 0, 0, wib)}
	f.deps = Deps{DB: db, Log: zap.NewNop(), Loc: wib, Hubs: hubs, Now: func() time.Time { return f.now }}

	f.admin = f.user("Admin", "admin@sekolah.id", models.RoleAdmin)
	f.guru = f.user("Bu Sri", "sri@sekolah.id", models.RoleGuru)
	f.siswa = f.user("Andi", "andi@sekolah.id", models.RoleSiswa)

	f.teacher = models.Teacher{UserIDRef: &f.guru.ID, NIP: "1987001", FullName: "Bu Sri"}
	require.NoError(t, db.Create(&f.teacher).Error)

	f.classA = models.Class{Name: "X RPL 1", Grade: "X", Active: true, HomeroomTeacherIDRef: &f.teacher.ID}
	f.classB = models.Class{Name: "X TKJ 1", Grade: "X", Active: true}
	require.NoError(t, db.Create(&f.classA).Error)
	require.NoError(t, db.Create(&f.classB).Error)

	f.student = models.Student{UserIDRef: &f.siswa.ID, NIS: "1001", FullName: "Andi", ClassIDRef: &f.classA.ID, Active: true}
	f.classmate = models.Student{NIS: "1002", FullName: "Budi", ClassIDRef: &f.classA.ID, Active: true}
	f.outsider = models.Student{NIS: "2001", FullName: "Citra", ClassIDRef: &f.classB.ID, Active: true}
	for _, s := range []*models.Student{&f.student, &f.classmate, &f.outsider} {
		require.NoError(t, db.Create(s).Error)
	}
	return f
}

func (f *fixture) user(name, email, role string) models.User {
	f.t.Helper()
	hashed, err := utils.HashPassword("rahasia123")
	require.NoError(f.t, err)
	u := models.User{FullName: name, Email: email, Password: hashed, Role: role, Active: true}
	require.NoError(f.t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) at(hour, min int) {
	f.now = time.Date(f.now.Year(), f.now.Month(), f.now.Day(), hour, min, 0, 0, wib)
}

type result struct {
	*httptest.ResponseRecorder
}

// JSON decodes the response body as an object.
func (r *result) JSON(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &out), r.Body.String())
	return out
}

// call runs h mounted on route as user.
func (f *fixture) call(user models.User, method, route, path string, body any, h gin.HandlerFunc) *result {
	f.t.Helper()
	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		middleware.SetUser(c, user)
		c.Next()
	}, h)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return &result{w}
}

func (f *fixture) attendanceOf(studentID, date string) (models.Attendance, error) {
	var rec models.Attendance
	err := f.db.Where("student_id_ref = ? AND date = ?", studentID, date).First(&rec).Error
	return rec, err
}

func ptr[T any](v T) *T { return &v }

