package repository

import (
	"context"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/attendancesys/config"
	"github.com/camden-git/attendancesys/database"
)

// newTestDB opens a migrated in-memory SQLite database
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(config.DriverSQLite, ":memory:", logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

var ctx = context.Background()
