package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursebridge-backend/internal/types"
)

// AutoMigrateAll creates the catalogue tables. Ingestion owns the rows; the
// backend only ensures the schema exists.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Course{},
		&types.PrereqEdge{},
	); err != nil {
		return fmt.Errorf("auto migrate catalogue: %w", err)
	}
	return nil
}
