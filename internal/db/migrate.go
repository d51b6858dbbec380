// Package db connects to the database, migrates the schema and seeds the
// role profiles.
package db

import (
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/models"
)

// Migrate runs AutoMigrate for all models.
// Call this at application startup or as part of a migration step.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
