package models

import (
	"time"
)

type AuthorizationCode struct {
	Code            string `gorm:"primaryKey;size:64"`
	ClientID        string `gorm:"index;not null"`
	ServerAccountID uint   `gorm:"not null"`
	Scope           string
	RedirectURI     string
	ExpiresAt       time.Time `gorm:"not null"`
	CreatedAt       time.Time
}

func (AuthorizationCode) TableName() string {
	return "authorization_codes"
}
