package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/franciscosanchezn/gin-token-exchange/internal/cache"
	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	usageUpdateTimeout = 5 * time.Second
	defaultSweepBatch  = 500
)

// TokenServiceConfig tunes mapping lifetimes and cache bounds.
type TokenServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration // grace window after access expiry during which refresh is allowed
	CacheTTL        time.Duration // ceiling for any cached mapping
	DefaultScope    string
	SweepBatchSize  int
}

func DefaultTokenServiceConfig() TokenServiceConfig {
	return TokenServiceConfig{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		CacheTTL:        time.Hour,
		DefaultScope:    "https://www.googleapis.com/auth/cloud-platform",
		SweepBatchSize:  defaultSweepBatch,
	}
}

// MappingOptions carries per-grant details for CreateMapping.
type MappingOptions struct {
	Scope     string
	GrantType string
	RequestIP string
	UserAgent string
	ExpiresIn time.Duration // overrides the configured access TTL when positive
}

// RefreshOptions carries per-request details for Refresh.
type RefreshOptions struct {
	ClientToken string // when set, the mapping must belong to this client
	RequestIP   string
	UserAgent   string
}

// IssuedToken is a freshly minted credential pair.
type IssuedToken struct {
	MappingID    uint
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
	ExpiresAt    time.Time
}

func (t *IssuedToken) Response() models.TokenResponse {
	return models.TokenResponse{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
		RefreshToken: t.RefreshToken,
		Scope:        t.Scope,
	}
}

// TokenService owns the mapping lifecycle and keeps the cache in step with the store.
type TokenService struct {
	store     CredentialStore
	cache     cache.Cache
	generator TokenGenerator
	cfg       TokenServiceConfig
	log       logrus.FieldLogger
	now       func() time.Time

	usage    *usageRecorder
	sweeps   singleflight.Group
	versions sync.Mutex // serialises marker read-modify-write so it never moves backwards
}

type Option func(*TokenService)

func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *TokenService) { s.log = logger }
}

func WithGenerator(generator TokenGenerator) Option {
	return func(s *TokenService) { s.generator = generator }
}

func NewTokenService(store CredentialStore, c cache.Cache, cfg TokenServiceConfig, opts ...Option) *TokenService {
	defaults := DefaultTokenServiceConfig()
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = defaults.AccessTokenTTL
	}
	if cfg.RefreshTokenTTL < 0 {
		cfg.RefreshTokenTTL = 0
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cfg.AccessTokenTTL
	}
	if cfg.DefaultScope == "" {
		cfg.DefaultScope = defaults.DefaultScope
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaults.SweepBatchSize
	}

	s := &TokenService{
		store:     store,
		cache:     c,
		generator: NewMockGoogleTokenGenerate(""),
		cfg:       cfg,
		log:       logrus.StandardLogger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "token_service")
	s.usage = newUsageRecorder(store, s.log)
	return s
}

// HashToken is the lookup key of an access token; raw tokens are never indexed.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MaskToken keeps the first 6 and last 4 characters for logs.
func MaskToken(token string) string {
	if len(token) <= 10 {
		return "****"
	}
	return token[:6] + "****" + token[len(token)-4:]
}

func clientCurrentKey(clientToken string) string {
	return "client:" + clientToken + ":current"
}

func versionKey(mappingID uint) string {
	return fmt.Sprintf("mapping:%d:version", mappingID)
}

// CreateMapping issues a new credential pair for clientToken backed by accountID.
func (s *TokenService) CreateMapping(ctx context.Context, clientToken string, accountID uint, opts MappingOptions) (*IssuedToken, error) {
	ctx = context.WithoutCancel(ctx)

	client, account, err := s.resolveParties(ctx, clientToken, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ttl := s.cfg.AccessTokenTTL
	if opts.ExpiresIn > 0 {
		ttl = opts.ExpiresIn
	}
	scope := opts.Scope
	if scope == "" {
		scope = s.cfg.DefaultScope
	}
	expiresAt := now.Add(ttl)

	access, refresh, err := s.generator.Generate(ctx, GenerateRequest{
		Client:    client,
		Account:   account,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("generate credential pair: %w", err)
	}

	mapping := &models.TokenMapping{
		ClientToken:     client.ClientToken,
		ServerAccountID: account.ID,
		AccessToken:     access,
		AccessTokenHash: HashToken(access),
		RefreshToken:    refresh,
		TokenType:       models.TokenTypeBearer,
		Scope:           scope,
		ExpiresAt:       expiresAt,
		Status:          models.TokenStatusActive,
		CacheVersion:    1,
		GrantType:       opts.GrantType,
		RequestIP:       opts.RequestIP,
		UserAgent:       opts.UserAgent,
	}
	if err := s.store.CreateMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("persist token mapping: %w", err)
	}

	s.setVersion(ctx, mapping.ID, mapping.CacheVersion)
	s.publishEntry(ctx, models.NewCacheEntry(mapping, client, account), mapping.AccessTokenHash, now)

	s.log.WithFields(logrus.Fields{
		"mapping_id":        mapping.ID,
		"client_id":         client.ClientID,
		"server_account_id": account.ID,
		"grant_type":        opts.GrantType,
		"access_token":      MaskToken(access),
	}).Info("Token mapping created")

	return issued(mapping, ttl), nil
}

// LookupByAccessToken resolves an access token, cache first.
func (s *TokenService) LookupByAccessToken(ctx context.Context, accessToken string) (*models.CacheEntry, error) {
	if accessToken == "" {
		return nil, exchangeError(ErrInvalidToken, "access token is required")
	}
	ctx = context.WithoutCancel(ctx)
	hash := HashToken(accessToken)
	now := s.now()

	var cached models.CacheEntry
	if tier := s.cache.Get(ctx, hash, &cached); tier.Hit() {
		switch {
		case !now.Before(cached.ExpiresAt):
			s.log.WithField("mapping_id", cached.MappingID).Debug("Cached mapping expired, evicting")
			s.cache.Delete(ctx, hash)
		case s.isStale(ctx, &cached):
			s.log.WithFields(logrus.Fields{
				"mapping_id":    cached.MappingID,
				"cache_version": cached.CacheVersion,
			}).Debug("Cached mapping superseded, evicting")
			s.cache.Delete(ctx, hash)
		default:
			s.usage.record(cached.MappingID, now)
			return &cached, nil
		}
	}

	mapping, err := s.store.FindMappingByHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return nil, exchangeError(ErrInvalidToken, "token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find mapping by hash: %w", err)
	}

	switch mapping.Status {
	case models.TokenStatusRevoked:
		return nil, exchangeError(ErrInvalidToken, "token has been revoked")
	case models.TokenStatusExpired:
		return nil, exchangeError(ErrTokenExpired, "token has expired")
	}
	if mapping.IsExpired(now) {
		s.expire(ctx, mapping, now)
		return nil, exchangeError(ErrTokenExpired, "token has expired")
	}

	client, err := s.store.FindClientByToken(ctx, mapping.ClientToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, exchangeError(ErrInvalidToken, "token owner no longer exists")
		}
		return nil, fmt.Errorf("load mapping client: %w", err)
	}
	account, err := s.store.FindUpstreamAccount(ctx, mapping.ServerAccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, exchangeError(ErrInvalidToken, "upstream account no longer exists")
		}
		return nil, fmt.Errorf("load mapping account: %w", err)
	}

	entry := models.NewCacheEntry(mapping, client, account)
	s.usage.record(mapping.ID, now)
	s.storeEntry(ctx, entry, hash, now)
	return entry, nil
}

// Refresh rotates the credential pair of the mapping that owns refreshToken.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string, opts RefreshOptions) (*IssuedToken, error) {
	if refreshToken == "" {
		return nil, InvalidGrant("refresh token is required")
	}
	ctx = context.WithoutCancel(ctx)

	mapping, err := s.store.FindMappingByRefreshToken(ctx, refreshToken)
	if errors.Is(err, ErrNotFound) {
		return nil, InvalidGrant("refresh token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find mapping by refresh token: %w", err)
	}
	if opts.ClientToken != "" && mapping.ClientToken != opts.ClientToken {
		return nil, InvalidGrant("refresh token was not issued to this client")
	}
	if mapping.Status != models.TokenStatusActive {
		return nil, InvalidGrant("refresh token is no longer valid")
	}

	now := s.now()
	if now.After(mapping.ExpiresAt.Add(s.cfg.RefreshTokenTTL)) {
		if revoked, err := s.store.RevokeMappingByID(ctx, mapping.ID, "refresh_expired", now); err == nil {
			s.invalidate(ctx, mapping.AccessTokenHash, revoked)
		} else if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).WithField("mapping_id", mapping.ID).Error("Failed to revoke mapping past its refresh window")
		}
		return nil, InvalidGrant("refresh token has expired")
	}

	client, account, err := s.resolveParties(ctx, mapping.ClientToken, mapping.ServerAccountID)
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.AccessTokenTTL
	expiresAt := now.Add(ttl)
	access, refresh, err := s.generator.Generate(ctx, GenerateRequest{
		Client:    client,
		Account:   account,
		Scope:     mapping.Scope,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("generate credential pair: %w", err)
	}

	oldHash := mapping.AccessTokenHash
	rotated, err := s.store.RotateMapping(ctx, mapping.ID, MappingRotation{
		AccessToken:     access,
		AccessTokenHash: HashToken(access),
		RefreshToken:    refresh,
		ExpiresAt:       expiresAt,
		GrantType:       "refresh_token",
		RequestIP:       opts.RequestIP,
		UserAgent:       opts.UserAgent,
	})
	if errors.Is(err, ErrNotFound) {
		return nil, InvalidGrant("refresh token is no longer valid")
	}
	if err != nil {
		return nil, fmt.Errorf("rotate token mapping: %w", err)
	}

	s.invalidate(ctx, oldHash, rotated)
	s.publishEntry(ctx, models.NewCacheEntry(rotated, client, account), rotated.AccessTokenHash, now)

	s.log.WithFields(logrus.Fields{
		"mapping_id":    rotated.ID,
		"cache_version": rotated.CacheVersion,
		"access_token":  MaskToken(access),
	}).Info("Token mapping refreshed")

	return issued(rotated, ttl), nil
}

// Revoke terminates the active mapping for accessToken.
func (s *TokenService) Revoke(ctx context.Context, accessToken, reason string) error {
	if accessToken == "" {
		return exchangeError(ErrInvalidToken, "access token is required")
	}
	if reason == "" {
		reason = "manual"
	}
	ctx = context.WithoutCancel(ctx)
	hash := HashToken(accessToken)

	revoked, err := s.store.RevokeMapping(ctx, hash, reason, s.now())
	if errors.Is(err, ErrNotFound) {
		return exchangeError(ErrInvalidToken, "token not found or already inactive")
	}
	if err != nil {
		return fmt.Errorf("revoke token mapping: %w", err)
	}

	s.invalidate(ctx, hash, revoked)
	s.log.WithFields(logrus.Fields{
		"mapping_id":   revoked.ID,
		"reason":       reason,
		"access_token": MaskToken(accessToken),
	}).Info("Token mapping revoked")
	return nil
}

// Stats summarises mappings, optionally for a single client token.
func (s *TokenService) Stats(ctx context.Context, clientToken string) (*models.MappingStats, error) {
	stats, err := s.store.MappingStats(ctx, clientToken)
	if err != nil {
		return nil, fmt.Errorf("mapping stats: %w", err)
	}
	return stats, nil
}

// Close flushes pending usage updates and stops the usage worker.
func (s *TokenService) Close() {
	s.usage.close()
}

func (s *TokenService) resolveParties(ctx context.Context, clientToken string, accountID uint) (*models.Client, *models.UpstreamAccount, error) {
	client, err := s.store.FindClientByToken(ctx, clientToken)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("load client: %w", err)
	}
	if client == nil || !client.Enabled {
		return nil, nil, InvalidClient("client token not found or disabled")
	}

	account, err := s.store.FindUpstreamAccount(ctx, accountID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("load upstream account: %w", err)
	}
	if account == nil || !account.Enabled {
		return nil, nil, exchangeError(ErrInvalidServerAccount, "server account not found or disabled")
	}
	return client, account, nil
}

func (s *TokenService) expire(ctx context.Context, mapping *models.TokenMapping, now time.Time) {
	expired, err := s.store.ExpireMapping(ctx, mapping.AccessTokenHash, now)
	switch {
	case err == nil:
		s.invalidate(ctx, mapping.AccessTokenHash, expired)
		s.log.WithField("mapping_id", mapping.ID).Info("Token mapping expired on lookup")
	case errors.Is(err, ErrNotFound):
		// Already terminal, or rotated to a fresh pair since it was read.
	default:
		s.log.WithError(err).WithField("mapping_id", mapping.ID).Error("Failed to mark mapping expired")
	}
}

// invalidate publishes the new version marker before evicting, so readers that
// race the eviction still detect the superseded entry.
func (s *TokenService) invalidate(ctx context.Context, hash string, mapping *models.TokenMapping) {
	s.setVersion(ctx, mapping.ID, mapping.CacheVersion)

	keys := []string{hash}
	var current models.CacheEntry
	if s.cache.Peek(ctx, clientCurrentKey(mapping.ClientToken), &current).Hit() && current.MappingID == mapping.ID {
		keys = append(keys, clientCurrentKey(mapping.ClientToken))
	}
	s.cache.Delete(ctx, keys...)
}

func (s *TokenService) publishEntry(ctx context.Context, entry *models.CacheEntry, hash string, now time.Time) {
	if ttl := s.storeEntry(ctx, entry, hash, now); ttl > 0 {
		if err := s.cache.Set(ctx, clientCurrentKey(entry.ClientToken), entry, ttl); err != nil {
			s.log.WithError(err).Warn("Failed to cache client current mapping")
		}
	}
}

// storeEntry caches entry for min(remaining lifetime, cache ceiling) unless a newer
// version has already been published. It returns the TTL used, or 0 when skipped.
func (s *TokenService) storeEntry(ctx context.Context, entry *models.CacheEntry, hash string, now time.Time) time.Duration {
	ttl := min(entry.ExpiresAt.Sub(now), s.cfg.CacheTTL)
	if ttl <= 0 {
		return 0
	}
	if s.isStale(ctx, entry) {
		s.log.WithField("mapping_id", entry.MappingID).Debug("Skipping cache write of superseded mapping")
		return 0
	}
	if err := s.cache.Set(ctx, hash, entry, ttl); err != nil {
		s.log.WithError(err).WithField("mapping_id", entry.MappingID).Warn("Failed to cache mapping")
		return 0
	}
	return ttl
}

func (s *TokenService) isStale(ctx context.Context, entry *models.CacheEntry) bool {
	var current int64
	if !s.cache.Peek(ctx, versionKey(entry.MappingID), &current).Hit() {
		return false
	}
	return current > entry.CacheVersion
}

func (s *TokenService) setVersion(ctx context.Context, mappingID uint, version int64) {
	s.versions.Lock()
	defer s.versions.Unlock()

	var current int64
	if s.cache.Peek(ctx, versionKey(mappingID), &current).Hit() && current >= version {
		return
	}
	if err := s.cache.Set(ctx, versionKey(mappingID), version, 2*s.cfg.CacheTTL); err != nil {
		s.log.WithError(err).WithField("mapping_id", mappingID).Warn("Failed to publish cache version")
	}
}

func issued(mapping *models.TokenMapping, ttl time.Duration) *IssuedToken {
	return &IssuedToken{
		MappingID:    mapping.ID,
		AccessToken:  mapping.AccessToken,
		RefreshToken: mapping.RefreshToken,
		TokenType:    mapping.TokenType,
		Scope:        mapping.Scope,
		ExpiresIn:    int64(ttl / time.Second),
		ExpiresAt:    mapping.ExpiresAt,
	}
}
