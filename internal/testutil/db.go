package testutil

import (
	"testing"

	"github.com/replydesk/backend/internal/entity"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create in memory db: %v", err)
	}

	// Every sqlite connection gets its own memory database; a single
	// connection keeps concurrent tests on the same one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get the underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&entity.Account{},
		&entity.Session{},
		&entity.Reply{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate db: %v", err)
	}

	return db
}
