// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/parksafe/parksafe/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB creates an in-memory SQLite database with every ParkSafe table.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// every pooled connection to :memory: would get its own empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.Profile{},
		&model.Group{},
		&model.GroupMember{},
		&model.Message{},
		&model.Alert{},
		&model.UserDevice{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// CreateProfile inserts a profile with the given email and name
func CreateProfile(t *testing.T, db *gorm.DB, email, name string) *model.Profile {
	t.Helper()
	now := time.Now()
	p := &model.Profile{Email: email, Password: "x", LastActive: &now}
	if name != "" {
		p.FullName = &name
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}
