package db

import (
	"fmt"

	"github.com/zulandar/fatebot/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the GORM models that make up the character store.
func AllModels() []interface{} {
	return []interface{}{
		&models.Character{},
		&models.CharacterSkill{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
