package repository

import (
	"fmt"

	"gorm.io/gorm"

	"crowdfund-api/internal/model"
)

// AutoMigrate creates or updates every table the service owns. Referenced
// tables come first so foreign keys can be declared.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.Permission{},
		&model.Campaign{},
		&model.Donation{},
	); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
