package cmd

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/attendancesys/config"
	"github.com/camden-git/attendancesys/database"
	"github.com/camden-git/attendancesys/logging"
)

// app holds what every subcommand needs: config, logger and a migrated database.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error", "fatal", "panic":
		return logger.Error
	default:
		return logger.Warn
	}
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := database.InitGormDB(cfg.DatabaseDriver, cfg.DatabaseDSN, gormLogLevel(cfg.LogLevel))
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Sync()
		return nil, err
	}

	return &app{cfg: cfg, logger: log, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.logger.Sync()
}
