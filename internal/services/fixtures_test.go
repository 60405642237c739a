package services

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/franciscosanchezn/gin-token-exchange/internal/cache"
	"github.com/franciscosanchezn/gin-token-exchange/internal/database"
	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func seedClient(t *testing.T, db *gorm.DB, clientID string, enabled bool) *models.Client {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(clientID+"-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	client := &models.Client{
		ClientID:    clientID,
		ClientToken: "vt-" + clientID,
		SecretHash:  string(hash),
		Name:        clientID,
		ServiceType: "vertex",
		Enabled:     enabled,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

func seedAccount(t *testing.T, db *gorm.DB, owner *models.Client, email string, weight int, enabled bool) *models.UpstreamAccount {
	t.Helper()
	account := &models.UpstreamAccount{
		ProjectID:   "project-" + email,
		ClientEmail: email,
		KeyWeight:   weight,
		Enabled:     enabled,
	}
	if owner != nil {
		account.ClientID = &owner.ID
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

// instance is one process of the exchange: its own layer 1 over shared Redis and store.
type instance struct {
	cache   *cache.TieredCache
	service *TokenService
}

type fixture struct {
	db      *gorm.DB
	store   CredentialStore
	mr      *miniredis.Miniredis
	redis   redis.UniversalClient
	clock   *testClock
	cfg     TokenServiceConfig
	client  *models.Client
	account *models.UpstreamAccount
	*instance
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		db:    db,
		store: NewCredentialStore(db),
		mr:    mr,
		redis: client,
		clock: newTestClock(),
		cfg: TokenServiceConfig{
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: time.Hour,
			CacheTTL:        time.Hour,
		},
	}
	f.client = seedClient(t, db, "acme", true)
	f.account = seedAccount(t, db, f.client, "svc@acme.iam.gserviceaccount.com", 0, true)
	f.instance = f.newInstance(t)
	return f
}

func (f *fixture) newInstance(t *testing.T) *instance {
	t.Helper()
	return f.newInstanceWithStore(t, f.store)
}

func (f *fixture) newInstanceWithStore(t *testing.T, store CredentialStore) *instance {
	t.Helper()
	opts := cache.DefaultOptions()
	opts.MemoryTTL = time.Minute
	opts.Now = f.clock.Now
	c := cache.NewTieredCache(opts, f.redis)
	svc := NewTokenService(store, c, f.cfg, WithClock(f.clock.Now))
	t.Cleanup(svc.Close)
	return &instance{cache: c, service: svc}
}

func (f *fixture) mapping(t *testing.T, id uint) *models.TokenMapping {
	t.Helper()
	var m models.TokenMapping
	require.NoError(t, f.db.First(&m, id).Error)
	return &m
}

func (f *fixture) mappingCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.TokenMapping{}).Count(&n).Error)
	return n
}
