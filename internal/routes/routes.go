package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zaqqye/absensi_backend_v1/internal/config"
	"github.com/zaqqye/absensi_backend_v1/internal/controllers"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/validation"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}

// Register mounts every endpoint on r. reg receives the HTTP metrics and is
// served on /metrics; nil skips both.
func Register(r *gin.Engine, deps controllers.Deps, cfg *config.Config, reg *prometheus.Registry) {
	validation.Register()

	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	r.Use(middleware.RequestLogger(deps.Log), middleware.Recovery(deps.Log))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if reg != nil {
		r.Use(middleware.NewMetrics(reg).Handler())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authCtrl := &controllers.AuthController{
		Deps:          deps,
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshJWTSecret,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	}
	adminCtrl := &controllers.AdminController{Deps: deps}
	majorCtrl := &controllers.MajorController{Deps: deps}
	classCtrl := &controllers.ClassController{Deps: deps}
	assignCtrl := &controllers.AssignmentController{Deps: deps}
	teacherCtrl := &controllers.TeacherController{Deps: deps}
	studentCtrl := &controllers.StudentController{Deps: deps}
	attCtrl := &controllers.AttendanceController{Deps: deps}
	leaveCtrl := &controllers.LeaveController{Deps: deps}
	reportCtrl := &controllers.ReportController{Deps: deps}
	dashCtrl := &controllers.DashboardController{Deps: deps}
	codeCtrl := &controllers.CheckinCodeController{Deps: deps}
	cfgCtrl := &controllers.ConfigController{Deps: deps}

	// Public
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authCtrl.Login)
		auth.POST("/refresh", authCtrl.Refresh)
	}
	r.GET("/api/v1/config/public", cfgCtrl.Public)

	authMW := middleware.AuthMiddleware(deps.DB, middleware.AuthConfig{JWTSecret: cfg.JWTSecret})
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/logout", authCtrl.Logout)
		api.PUT("/auth/profile", authCtrl.UpdateProfile)
		api.PUT("/auth/password", authCtrl.ChangePassword)

		api.GET("/dashboard", dashCtrl.Get)

		reports := api.Group("/reports")
		{
			reports.GET("/summary", reportCtrl.Summary)
			reports.GET("/generate", reportCtrl.Generate)
			reports.GET("/export", reportCtrl.Export)
		}

		// Websocket clients may pass the token as ?access_token=.
		var attHub *ws.AttendanceHub
		var studentHub *ws.StudentHub
		if deps.Hubs != nil {
			attHub, studentHub = deps.Hubs.Attendance, deps.Hubs.Student
		}
		api.GET("/ws/attendance", ws.AttendanceHandler(attHub, deps.ClassScope))
		api.GET("/ws/siswa", ws.StudentHandler(studentHub))

		admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/users", adminCtrl.ListUsers)
			admin.POST("/users", authCtrl.Register)
			admin.POST("/users/import", adminCtrl.ImportUsers)
			admin.GET("/users/:user_id", adminCtrl.GetUser)
			admin.PUT("/users/:user_id", adminCtrl.UpdateUser)
			admin.DELETE("/users/:user_id", adminCtrl.DeleteUser)
			admin.POST("/users/:user_id/logout", adminCtrl.ForceLogout)

			// Jurusan
			admin.GET("/majors", majorCtrl.ListMajors)
			admin.POST("/majors", majorCtrl.CreateMajor)
			admin.GET("/majors/:id", majorCtrl.GetMajor)
			admin.PUT("/majors/:id", majorCtrl.UpdateMajor)
			admin.DELETE("/majors/:id", majorCtrl.DeleteMajor)

			// Kelas
			admin.GET("/classes", classCtrl.ListClasses)
			admin.POST("/classes", classCtrl.CreateClass)
			admin.GET("/classes/:id", classCtrl.GetClass)
			admin.PUT("/classes/:id", classCtrl.UpdateClass)
			admin.DELETE("/classes/:id", classCtrl.DeleteClass)
			admin.PUT("/classes/:id/homeroom", assignCtrl.SetHomeroom)
			admin.GET("/classes/:id/teachers", assignCtrl.ListTeachers)
			admin.POST("/classes/:id/teachers", assignCtrl.AssignTeacher)
			admin.DELETE("/classes/:id/teachers/:teacher_id", assignCtrl.UnassignTeacher)

			admin.GET("/teachers", teacherCtrl.ListTeachers)
			admin.POST("/teachers", teacherCtrl.CreateTeacher)
			admin.GET("/teachers/:id", teacherCtrl.GetTeacher)
			admin.PUT("/teachers/:id", teacherCtrl.UpdateTeacher)
			admin.DELETE("/teachers/:id", teacherCtrl.DeleteTeacher)

			admin.GET("/students", studentCtrl.ListStudents)
			admin.POST("/students", studentCtrl.CreateStudent)
			admin.POST("/students/import", studentCtrl.ImportStudents)
			admin.GET("/students/:id", studentCtrl.GetStudent)
			admin.PUT("/students/:id", studentCtrl.UpdateStudent)
			admin.DELETE("/students/:id", studentCtrl.DeleteStudent)
			admin.PUT("/students/:id/class", assignCtrl.MoveStudent)

			admin.POST("/attendance/close-day", attCtrl.CloseDay)

			admin.GET("/settings", cfgCtrl.GetSettings)
			admin.PUT("/settings", cfgCtrl.UpdateSettings)

			admin.GET("/dashboard-menus", dashCtrl.ListMenus)
			admin.GET("/dashboard-menus/:role", dashCtrl.GetMenu)
			admin.PUT("/dashboard-menus/:role", dashCtrl.UpdateMenu)
		}

		// Guru area (and admin); class scope is enforced per request.
		guru := api.Group("", middleware.RequireRoles(models.RoleGuru))
		{
			guru.GET("/classes", classCtrl.ListClasses)
			guru.GET("/classes/:id", classCtrl.GetClass)
			guru.GET("/classes/:id/students", assignCtrl.ListStudents)
			guru.GET("/classes/:id/attendance", attCtrl.ClassSheet)

			guru.GET("/attendance", attCtrl.List)
			guru.POST("/attendance", attCtrl.Record)
			guru.POST("/attendance/bulk", attCtrl.BulkRecord)
			guru.POST("/attendance/bulk-verify", attCtrl.BulkVerify)
			guru.PUT("/attendance/:id", attCtrl.Update)
			guru.DELETE("/attendance/:id", attCtrl.Delete)
			guru.PUT("/attendance/:id/verify", attCtrl.Verify)

			guru.GET("/leave-requests", leaveCtrl.List)
			guru.GET("/leave-requests/pending-count", leaveCtrl.PendingCount)
			guru.POST("/leave-requests/:id/approve", leaveCtrl.Approve)
			guru.POST("/leave-requests/:id/reject", leaveCtrl.Reject)

			guru.GET("/checkin-codes", codeCtrl.List)
			guru.POST("/checkin-codes", codeCtrl.Generate)
			guru.POST("/checkin-codes/:id/revoke", codeCtrl.Revoke)
			guru.GET("/checkin-codes/:id/qr", codeCtrl.QR)
		}

		// Siswa area
		me := api.Group("/me", middleware.RequireRoles(models.RoleSiswa))
		{
			me.POST("/attendance/check-in", attCtrl.CheckIn)
			me.POST("/attendance/check-out", attCtrl.CheckOut)
			me.GET("/attendance/today", attCtrl.Today)
			me.GET("/attendance", attCtrl.MyHistory)
			me.GET("/attendance/calendar", attCtrl.Calendar)

			me.GET("/leave-requests", leaveCtrl.ListMine)
			me.POST("/leave-requests", leaveCtrl.Submit)
			me.DELETE("/leave-requests/:id", leaveCtrl.Cancel)
		}
	}
}
