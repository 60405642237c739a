package models

import (
	"time"
)

// UpstreamAccount is a real provider credential bundle. A nil ClientID places the
// account in the shared pool.
type UpstreamAccount struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ClientID       *uint     `gorm:"index" json:"client_id"`
	ProjectID      string    `gorm:"size:128;not null" json:"project_id"`
	ClientEmail    string    `gorm:"index;size:255;not null" json:"client_email"`
	GoogleClientID string    `json:"google_client_id"`
	PrivateKeyID   string    `gorm:"size:128" json:"private_key_id"`
	PublicKeyPEM   string    `gorm:"type:text" json:"-"`
	KeyWeight      int       `gorm:"not null" json:"key_weight"`
	Enabled        bool      `gorm:"not null" json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (UpstreamAccount) TableName() string {
	return "server_accounts"
}
