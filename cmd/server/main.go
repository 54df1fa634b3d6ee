package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"transport_routes/internal/config"
	"transport_routes/internal/logger"
	"transport_routes/internal/middleware"
	"transport_routes/internal/routes"
	"transport_routes/internal/store"
)

var configPath = flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Initialize structured logging to file
	logger.Setup(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	gormCfg := &gorm.Config{Logger: logger.GormLogger()}

	if cfg.Database.AutoMigrate {
		migrate(cfg.Database, gormCfg)
	}

	conn, err := config.NewConnector(cfg.Database, gormCfg)
	if err != nil {
		logrus.WithError(err).WithField("database", cfg.Database.String()).Fatal("failed to connect to database")
	}

	accessLog := ginlog.SetLogger(
		ginlog.WithWriter(logger.Writer()),
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/api/health"}),
	)
	r := routes.SetupRouter(cfg, conn, accessLog)

	// Wrap with CORS
	handler := middleware.EnableCORS(cfg.Server.AllowedOrigins, r)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.Server.Addr).Info("🚀 Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}

// migrate brings the schema up to date on a short-lived handle.
func migrate(dbCfg config.DatabaseConfig, gormCfg *gorm.Config) {
	db, err := config.Open(dbCfg, gormCfg)
	if err != nil {
		logrus.WithError(err).WithField("database", dbCfg.String()).Fatal("failed to connect to database")
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if err := store.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("schema migration failed")
	}
	logrus.Info("schema migrated")
}
