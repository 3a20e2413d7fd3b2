package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/attendancesys/config"
	"github.com/camden-git/attendancesys/models"
)

// InitGormDB opens the database for the configured driver and returns a GORM instance
func InitGormDB(driver, dataSourceName string, logLevel logger.LogLevel) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dataSourceName)
	case config.DriverSQLite:
		dialector = sqlite.Open(dataSourceName)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	if driver == config.DriverSQLite {
		// sqlite allows one writer; a single connection also keeps :memory: databases intact
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			log.Printf("warning: failed to set WAL mode: %v", err)
		}
		if err := db.Exec("PRAGMA busy_timeout=5000;").Error; err != nil {
			log.Printf("warning: failed to set busy timeout: %v", err)
		}
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Println("GORM Database initialized successfully using driver", driver)
	return db, nil
}

// AutoMigrateModels creates or updates the students and attendance_logs tables
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Student{},
		&models.AttendanceLog{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	return nil
}
