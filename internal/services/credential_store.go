package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"gorm.io/gorm"
)

// CredentialStore is the single system of record shared by the grant handler,
// the token service and the admin surface.
type CredentialStore interface {
	FindClient(ctx context.Context, id uint) (*models.Client, error)
	FindClientByClientID(ctx context.Context, clientID string) (*models.Client, error)
	FindClientByToken(ctx context.Context, clientToken string) (*models.Client, error)
	SetClientEnabled(ctx context.Context, id uint, enabled bool) error

	FindUpstreamAccount(ctx context.Context, id uint) (*models.UpstreamAccount, error)
	FindUpstreamAccountByEmail(ctx context.Context, email string) (*models.UpstreamAccount, error)
	DefaultUpstreamAccount(ctx context.Context, clientID uint) (*models.UpstreamAccount, error)
	ListSigningAccounts(ctx context.Context) ([]models.UpstreamAccount, error)
	SetUpstreamAccountEnabled(ctx context.Context, id uint, enabled bool) error

	CreateMapping(ctx context.Context, mapping *models.TokenMapping) error
	FindMappingByHash(ctx context.Context, hash string) (*models.TokenMapping, error)
	FindMappingByRefreshToken(ctx context.Context, refreshToken string) (*models.TokenMapping, error)
	RotateMapping(ctx context.Context, id uint, rotation MappingRotation) (*models.TokenMapping, error)
	RevokeMapping(ctx context.Context, hash, reason string, now time.Time) (*models.TokenMapping, error)
	RevokeMappingByID(ctx context.Context, id uint, reason string, now time.Time) (*models.TokenMapping, error)
	ExpireMapping(ctx context.Context, hash string, now time.Time) (*models.TokenMapping, error)
	ExpireMappings(ctx context.Context, now time.Time, limit int) ([]models.TokenMapping, error)
	TouchMapping(ctx context.Context, id uint, uses int64, lastUsed time.Time) error
	MappingStats(ctx context.Context, clientToken string) (*models.MappingStats, error)
}

// MappingRotation holds the columns replaced by a refresh.
type MappingRotation struct {
	AccessToken     string
	AccessTokenHash string
	RefreshToken    string
	ExpiresAt       time.Time
	GrantType       string
	RequestIP       string
	UserAgent       string
}

type credentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) CredentialStore {
	return &credentialStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *credentialStore) FindClient(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *credentialStore) FindClientByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *credentialStore) FindClientByToken(ctx context.Context, clientToken string) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("client_token = ?", clientToken).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *credentialStore) SetClientEnabled(ctx context.Context, id uint, enabled bool) error {
	result := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *credentialStore) FindUpstreamAccount(ctx context.Context, id uint) (*models.UpstreamAccount, error) {
	var account models.UpstreamAccount
	if err := s.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// FindUpstreamAccountByEmail returns the preferred enabled account for a service-account email.
func (s *credentialStore) FindUpstreamAccountByEmail(ctx context.Context, email string) (*models.UpstreamAccount, error) {
	var account models.UpstreamAccount
	err := s.db.WithContext(ctx).
		Where("client_email = ? AND enabled = ?", email, true).
		Order("key_weight asc, id asc").
		First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// DefaultUpstreamAccount picks the lowest-weight enabled account owned by the client,
// then falls back to the shared pool.
func (s *credentialStore) DefaultUpstreamAccount(ctx context.Context, clientID uint) (*models.UpstreamAccount, error) {
	var account models.UpstreamAccount
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND enabled = ?", clientID, true).
		Order("key_weight asc, id asc").
		First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("client_id IS NULL AND enabled = ?", true).
		Order("key_weight asc, id asc").
		First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// ListSigningAccounts returns enabled accounts that carry a public key.
func (s *credentialStore) ListSigningAccounts(ctx context.Context) ([]models.UpstreamAccount, error) {
	var accounts []models.UpstreamAccount
	err := s.db.WithContext(ctx).
		Where("enabled = ? AND public_key_pem <> ''", true).
		Order("id asc").
		Find(&accounts).Error
	return accounts, err
}

func (s *credentialStore) SetUpstreamAccountEnabled(ctx context.Context, id uint, enabled bool) error {
	result := s.db.WithContext(ctx).Model(&models.UpstreamAccount{}).Where("id = ?", id).Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *credentialStore) CreateMapping(ctx context.Context, mapping *models.TokenMapping) error {
	return s.db.WithContext(ctx).Create(mapping).Error
}

func (s *credentialStore) FindMappingByHash(ctx context.Context, hash string) (*models.TokenMapping, error) {
	var mapping models.TokenMapping
	if err := s.db.WithContext(ctx).Where("access_token_hash = ?", hash).First(&mapping).Error; err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

func (s *credentialStore) FindMappingByRefreshToken(ctx context.Context, refreshToken string) (*models.TokenMapping, error) {
	var mapping models.TokenMapping
	if err := s.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).First(&mapping).Error; err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

// transition applies updates to the row matched by where only while it is active,
// bumps cache_version and returns the row as written. ErrNotFound means the row
// was missing or already terminal.
func (s *credentialStore) transition(ctx context.Context, updates map[string]any, where string, args ...any) (*models.TokenMapping, error) {
	var mapping models.TokenMapping
	updates["cache_version"] = gorm.Expr("cache_version + ?", 1)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.TokenMapping
		if err := tx.Select("id").Where(where, args...).Where("status = ?", models.TokenStatusActive).First(&target).Error; err != nil {
			return translate(err)
		}
		// The condition is repeated on write so a row changed since the select is left alone.
		result := tx.Model(&models.TokenMapping{}).
			Where("id = ? AND status = ?", target.ID, models.TokenStatusActive).
			Where(where, args...).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&mapping, target.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (s *credentialStore) RotateMapping(ctx context.Context, id uint, rotation MappingRotation) (*models.TokenMapping, error) {
	return s.transition(ctx, map[string]any{
		"access_token":      rotation.AccessToken,
		"access_token_hash": rotation.AccessTokenHash,
		"refresh_token":     rotation.RefreshToken,
		"expires_at":        rotation.ExpiresAt,
		"grant_type":        rotation.GrantType,
		"request_ip":        rotation.RequestIP,
		"user_agent":        rotation.UserAgent,
	}, "id = ?", id)
}

func (s *credentialStore) RevokeMapping(ctx context.Context, hash, reason string, now time.Time) (*models.TokenMapping, error) {
	return s.transition(ctx, map[string]any{
		"status":        models.TokenStatusRevoked,
		"revoked_at":    now,
		"revoke_reason": reason,
	}, "access_token_hash = ?", hash)
}

func (s *credentialStore) RevokeMappingByID(ctx context.Context, id uint, reason string, now time.Time) (*models.TokenMapping, error) {
	return s.transition(ctx, map[string]any{
		"status":        models.TokenStatusRevoked,
		"revoked_at":    now,
		"revoke_reason": reason,
	}, "id = ?", id)
}

// ExpireMapping expires the row still holding hash, and only while it is past its
// expiry at now. A row rotated since it was read no longer matches.
func (s *credentialStore) ExpireMapping(ctx context.Context, hash string, now time.Time) (*models.TokenMapping, error) {
	return s.transition(ctx, map[string]any{
		"status": models.TokenStatusExpired,
	}, "access_token_hash = ? AND expires_at <= ?", hash, now)
}

// ExpireMappings marks up to limit active rows past their expiry as expired and
// returns them with their new cache_version.
func (s *credentialStore) ExpireMappings(ctx context.Context, now time.Time, limit int) ([]models.TokenMapping, error) {
	var expired []models.TokenMapping
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND expires_at < ?", models.TokenStatusActive, now).
			Order("id asc").
			Limit(limit).
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		// Each row is re-checked on write: a refresh may have pushed its expiry
		// forward since the select.
		updated := expired[:0]
		for _, m := range expired {
			result := tx.Model(&models.TokenMapping{}).
				Where("id = ? AND status = ? AND expires_at < ?", m.ID, models.TokenStatusActive, now).
				Updates(map[string]any{
					"status":        models.TokenStatusExpired,
					"cache_version": gorm.Expr("cache_version + ?", 1),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}
			m.Status = models.TokenStatusExpired
			m.CacheVersion++
			updated = append(updated, m)
		}
		expired = updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expire mappings: %w", err)
	}
	return expired, nil
}

// TouchMapping adds uses to the usage counter and records lastUsed.
func (s *credentialStore) TouchMapping(ctx context.Context, id uint, uses int64, lastUsed time.Time) error {
	return s.db.WithContext(ctx).Model(&models.TokenMapping{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"usage_count":  gorm.Expr("usage_count + ?", uses),
			"last_used_at": lastUsed,
		}).Error
}

func (s *credentialStore) MappingStats(ctx context.Context, clientToken string) (*models.MappingStats, error) {
	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.TokenMapping{})
		if clientToken != "" {
			q = q.Where("client_token = ?", clientToken)
		}
		return q
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := scoped().Select("status, count(*) as count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("count mappings by status: %w", err)
	}

	stats := &models.MappingStats{}
	for _, row := range byStatus {
		stats.Total += row.Count
		switch models.TokenStatus(row.Status) {
		case models.TokenStatusActive:
			stats.Active = row.Count
		case models.TokenStatusRevoked:
			stats.Revoked = row.Count
		case models.TokenStatusExpired:
			stats.Expired = row.Count
		}
	}

	var usage struct {
		AvgUsage float64
		MaxUsage int64
	}
	if err := scoped().Select("COALESCE(AVG(usage_count), 0) as avg_usage, COALESCE(MAX(usage_count), 0) as max_usage").Scan(&usage).Error; err != nil {
		return nil, fmt.Errorf("aggregate mapping usage: %w", err)
	}
	stats.AvgUsage = usage.AvgUsage
	stats.MaxUsage = usage.MaxUsage

	var latest models.TokenMapping
	err := scoped().Where("last_used_at IS NOT NULL").Order("last_used_at desc").First(&latest).Error
	switch {
	case err == nil:
		stats.LastActivity = latest.LastUsedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find last activity: %w", err)
	}
	return stats, nil
}
