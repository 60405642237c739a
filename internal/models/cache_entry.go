package models

import (
	"time"
)

// CacheEntry is the cached projection of an active TokenMapping joined with its
// client and upstream account. It is never authoritative.
type CacheEntry struct {
	MappingID       uint      `json:"mapping_id"`
	ClientToken     string    `json:"client_token"`
	ClientID        string    `json:"client_id"`
	ServiceType     string    `json:"service_type"`
	ServerAccountID uint      `json:"server_account_id"`
	ProjectID       string    `json:"project_id"`
	ClientEmail     string    `json:"client_email"`
	Scope           string    `json:"scope"`
	ExpiresAt       time.Time `json:"expires_at"`
	CacheVersion    int64     `json:"cache_version"`
}

// NewCacheEntry builds the projection for a mapping and its join rows.
func NewCacheEntry(m *TokenMapping, client *Client, account *UpstreamAccount) *CacheEntry {
	return &CacheEntry{
		MappingID:       m.ID,
		ClientToken:     m.ClientToken,
		ClientID:        client.ClientID,
		ServiceType:     client.ServiceType,
		ServerAccountID: account.ID,
		ProjectID:       account.ProjectID,
		ClientEmail:     account.ClientEmail,
		Scope:           m.Scope,
		ExpiresAt:       m.ExpiresAt,
		CacheVersion:    m.CacheVersion,
	}
}

// ExpiresIn returns the remaining lifetime in whole seconds, never negative.
func (e *CacheEntry) ExpiresIn(now time.Time) int64 {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining / time.Second)
}
