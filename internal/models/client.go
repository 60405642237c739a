package models

import (
	"time"
)

// Client is a tenant application holding a virtual token.
type Client struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClientID    string    `gorm:"uniqueIndex;size:128;not null" json:"client_id"`
	ClientToken string    `gorm:"uniqueIndex;size:128;not null" json:"client_token"`
	SecretHash  string    `gorm:"not null" json:"-"` // bcrypt hash of the client secret
	Name        string    `json:"name"`
	ServiceType string    `gorm:"size:32;not null" json:"service_type"`
	Enabled     bool      `gorm:"not null" json:"enabled"`
	RateLimit   int       `gorm:"not null" json:"rate_limit"` // grants per minute, 0 disables the ceiling
	RedirectURI string    `json:"redirect_uri"`
	Scopes      string    `json:"scopes"` // Space-separated list of allowed scopes
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
