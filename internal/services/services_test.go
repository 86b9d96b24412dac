package services

import (
	"sync"
	"testing"

	"github.com/dms/backend/internal/models"
	"github.com/dms/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var serviceTestOnce sync.Once

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	serviceTestOnce.Do(func() {
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.File{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", username, err)
	}
	return user
}

func createGroupWithAdmin(t *testing.T, db *gorm.DB, name string, admin *models.User) *models.Group {
	t.Helper()

	group := &models.Group{Name: name}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed creating group %s: %v", name, err)
	}
	if err := db.Model(group).Association("Participants").Append(admin); err != nil {
		t.Fatalf("failed appending participant: %v", err)
	}
	if err := db.Model(group).Association("Admins").Append(admin); err != nil {
		t.Fatalf("failed appending admin: %v", err)
	}
	return group
}
