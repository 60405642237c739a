package auth

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"gorm.io/gorm"
)

// CodeStore persists authorization codes. Consume hands a code out at most once.
type CodeStore interface {
	Create(ctx context.Context, code *models.AuthorizationCode) error
	Consume(ctx context.Context, code string) (*models.AuthorizationCode, error)
}

type GormCodeStore struct {
	db *gorm.DB
}

func NewGormCodeStore(db *gorm.DB) *GormCodeStore {
	return &GormCodeStore{db: db}
}

func (s *GormCodeStore) Create(ctx context.Context, code *models.AuthorizationCode) error {
	return s.db.WithContext(ctx).Create(code).Error
}

// Consume loads and deletes the code in one transaction. Losing a race to a
// concurrent consumer reports services.ErrNotFound.
func (s *GormCodeStore) Consume(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	var authCode models.AuthorizationCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ?", code).First(&authCode).Error; err != nil {
			return err
		}
		result := tx.Where("code = ?", code).Delete(&models.AuthorizationCode{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &authCode, nil
}
