package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pollcast/pollcast/pkg/internal/database"
	"github.com/pollcast/pollcast/pkg/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testSource(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "pollcast.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.RunMigration(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{Username: username}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %q: %v", username, err)
	}
	return user
}

func seedPoll(t *testing.T, db *gorm.DB, creatorID uint, expiresIn time.Duration) models.Poll {
	t.Helper()

	poll := models.Poll{
		Question:  "Coffee or tea?",
		Options:   datatypes.NewJSONType(map[string]string{"a": "Coffee", "b": "Tea"}),
		ExpiredAt: time.Now().Add(expiresIn),
		CreatorID: creatorID,
		Status:    models.PollStatusOpen,
	}
	if err := db.Create(&poll).Error; err != nil {
		t.Fatalf("failed to seed poll: %v", err)
	}
	return poll
}
