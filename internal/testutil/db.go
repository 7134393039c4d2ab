// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crowdfund-api/internal/model"
	"crowdfund-api/internal/repository"
)

// NewDB opens a migrated SQLite database in a temp dir with foreign keys
// enforced, so ON DELETE CASCADE behaves like MySQL.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "crowdfund.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with unique credentials derived from name.
func CreateUser(t testing.TB, db *gorm.DB, name, phone string) *model.User {
	t.Helper()

	user := &model.User{
		Username:     name,
		Email:        name + "@example.com",
		Phone:        phone,
		PasswordHash: "unused",
	}
	if err := repository.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

// CreateCampaign inserts a campaign owned by ownerID.
func CreateCampaign(t testing.TB, db *gorm.DB, ownerID uint, title string) *model.Campaign {
	t.Helper()

	campaign := &model.Campaign{
		OwnerID:      ownerID,
		Title:        title,
		Description:  "description of " + title,
		TargetAmount: decimal.NewFromInt(1000),
		StartDate:    model.NewDate(2024, 1, 1),
		EndDate:      model.NewDate(2024, 6, 1),
	}
	if err := repository.NewCampaignRepository(db).Create(context.Background(), campaign); err != nil {
		t.Fatalf("create campaign %s: %v", title, err)
	}
	return campaign
}
