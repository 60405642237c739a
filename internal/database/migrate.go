package database

import (
	"fmt"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the credential store schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Client{},
		&models.UpstreamAccount{},
		&models.TokenMapping{},
		&models.AuthorizationCode{},
	); err != nil {
		return fmt.Errorf("auto-migrate credential store: %w", err)
	}
	log.Info("Credential store schema migrated")
	return nil
}
