package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cozi7266/aieng/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.WordEntry{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
