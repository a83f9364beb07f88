package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zaqqye/absensi_backend_v1/internal/config"
	"github.com/zaqqye/absensi_backend_v1/internal/controllers"
	"github.com/zaqqye/absensi_backend_v1/internal/database"
	"github.com/zaqqye/absensi_backend_v1/internal/logger"
	"github.com/zaqqye/absensi_backend_v1/internal/routes"
	"github.com/zaqqye/absensi_backend_v1/internal/scheduler"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("database migration failed", zap.Error(err))
	}
	if err := database.Seed(db, cfg, zl); err != nil {
		zl.Fatal("seed failed", zap.Error(err))
	}

	done := make(chan struct{})
	hubs := ws.NewHubs(zl.Named("ws"))
	hubs.Run(done)

	deps := controllers.Deps{DB: db, Log: zl, Loc: cfg.Location(), Hubs: hubs}

	sched := scheduler.New(cfg.Location(), zl.Named("scheduler"))
	attCtrl := &controllers.AttendanceController{Deps: deps}
	if err := sched.Add("close_day", cfg.CloseDayCron, attCtrl.CloseDayJob); err != nil {
		zl.Fatal("scheduler setup failed", zap.Error(err))
	}
	sched.Start()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := gin.New()
	routes.Register(r, deps, cfg, reg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server exited with error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if err := sched.Stop(ctx); err != nil {
		zl.Error("scheduler shutdown", zap.Error(err))
	}
	close(done)
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
