package models

import (
	"time"
)

type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusExpired TokenStatus = "expired"
	TokenStatusRevoked TokenStatus = "revoked"
)

const TokenTypeBearer = "Bearer"

// TokenMapping binds a client's virtual token to a generated upstream credential pair.
// The raw access token is stored but only its hash is indexed for lookups.
type TokenMapping struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	ClientToken     string      `gorm:"index;size:128;not null" json:"client_token"`
	ServerAccountID uint        `gorm:"index;not null" json:"server_account_id"`
	AccessToken     string      `gorm:"type:text;not null" json:"-"`
	AccessTokenHash string      `gorm:"uniqueIndex;size:64;not null" json:"access_token_hash"`
	RefreshToken    string      `gorm:"uniqueIndex;size:512;not null" json:"-"`
	TokenType       string      `gorm:"size:16;not null" json:"token_type"`
	Scope           string      `gorm:"type:text" json:"scope"`
	ExpiresAt       time.Time   `gorm:"index;not null" json:"expires_at"`
	Status          TokenStatus `gorm:"index;size:16;not null" json:"status"`
	CacheVersion    int64       `gorm:"not null" json:"cache_version"`
	UsageCount      int64       `gorm:"not null" json:"usage_count"`
	LastUsedAt      *time.Time  `json:"last_used_at,omitempty"`
	GrantType       string      `gorm:"size:64" json:"grant_type"`
	RequestIP       string      `gorm:"size:64" json:"request_ip"`
	UserAgent       string      `json:"user_agent"`
	RevokedAt       *time.Time  `json:"revoked_at,omitempty"`
	RevokeReason    string      `json:"revoke_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (TokenMapping) TableName() string {
	return "token_mappings"
}

// IsExpired reports whether the access token is past its expiry at now.
func (m *TokenMapping) IsExpired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

func (m *TokenMapping) IsActive(now time.Time) bool {
	return m.Status == TokenStatusActive && !m.IsExpired(now)
}

// MappingStats summarises the mapping table, optionally for one client token.
type MappingStats struct {
	Total        int64      `json:"total"`
	Active       int64      `json:"active"`
	Revoked      int64      `json:"revoked"`
	Expired      int64      `json:"expired"`
	AvgUsage     float64    `json:"avg_usage"`
	MaxUsage     int64      `json:"max_usage"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}
