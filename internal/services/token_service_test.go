package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-token-exchange/internal/cache"
	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMappingThenLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{
		GrantType: "client_credentials",
		RequestIP: "10.0.0.1",
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(issued.AccessToken, "ya29.a0"))
	assert.True(t, strings.HasPrefix(issued.RefreshToken, "1//0"))
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.Equal(t, int64(3600), issued.ExpiresIn)
	assert.Equal(t, "https://www.googleapis.com/auth/cloud-platform", issued.Scope)

	entry, err := f.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.client.ClientToken, entry.ClientToken)
	assert.Equal(t, f.client.ClientID, entry.ClientID)
	assert.Equal(t, f.account.ID, entry.ServerAccountID)
	assert.Equal(t, f.account.ProjectID, entry.ProjectID)
	assert.Equal(t, f.account.ClientEmail, entry.ClientEmail)
	assert.Equal(t, int64(1), entry.CacheVersion)

	row := f.mapping(t, issued.MappingID)
	assert.Equal(t, models.TokenStatusActive, row.Status)
	assert.Equal(t, HashToken(issued.AccessToken), row.AccessTokenHash)
	assert.Equal(t, "client_credentials", row.GrantType)
	assert.Equal(t, "10.0.0.1", row.RequestIP)
	assert.Equal(t, "test-agent", row.UserAgent)

	// Both the primary and the client convenience keys are written.
	assert.True(t, f.mr.Exists("oauth2_cache:"+row.AccessTokenHash))
	assert.True(t, f.mr.Exists("oauth2_cache:client:"+f.client.ClientToken+":current"))
}

func TestCreateMappingValidatesParties(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	disabledClient := seedClient(t, f.db, "disabled", false)
	disabledAccount := seedAccount(t, f.db, f.client, "off@acme.iam.gserviceaccount.com", 0, false)

	testCases := []struct {
		name        string
		clientToken string
		accountID   uint
		expected    error
	}{
		{name: "unknown client", clientToken: "vt-nobody", accountID: f.account.ID, expected: oauth2errors.ErrInvalidClient},
		{name: "disabled client", clientToken: disabledClient.ClientToken, accountID: f.account.ID, expected: oauth2errors.ErrInvalidClient},
		{name: "unknown account", clientToken: f.client.ClientToken, accountID: 9999, expected: ErrInvalidServerAccount},
		{name: "disabled account", clientToken: f.client.ClientToken, accountID: disabledAccount.ID, expected: ErrInvalidServerAccount},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateMapping(ctx, tt.clientToken, tt.accountID, MappingOptions{})
			assert.ErrorIs(t, err, tt.expected)
		})
	}
	assert.Equal(t, int64(0), f.mappingCount(t))
}

func TestLookupRoundTripAcrossTiers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	key := "oauth2_cache:" + HashToken(issued.AccessToken)

	first, err := f.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)

	// Evict layer 1 only; layer 2 answers and refills layer 1.
	f.cache.Memory().Delete(key)
	before := f.cache.Stats()

	second, err := f.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.Greater(t, f.cache.Stats().SharedHits, before.SharedHits)

	var fromMemory models.CacheEntry
	assert.Equal(t, cache.TierMemory, f.cache.Get(ctx, HashToken(issued.AccessToken), &fromMemory))

	assert.Equal(t, first, second)
	assert.Equal(t, *second, fromMemory)
}

func TestLookupFallsBackToStoreAndRepopulates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	require.NoError(t, f.cache.Clear(ctx))

	entry, err := f.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, issued.MappingID, entry.MappingID)
	assert.True(t, f.mr.Exists("oauth2_cache:"+HashToken(issued.AccessToken)))
}

func TestLookupUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.LookupByAccessToken(context.Background(), "ya29.a0does-not-exist")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.service.LookupByAccessToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLookupRecordsUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.service.LookupByAccessToken(ctx, issued.AccessToken)
		require.NoError(t, err)
	}
	f.service.Close()

	row := f.mapping(t, issued.MappingID)
	assert.Equal(t, int64(3), row.UsageCount)
	require.NotNil(t, row.LastUsedAt)
}

func TestRevokeIsImmediateForFreshReaders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Revoke(ctx, issued.AccessToken, "compromised"))

	// Same instance: its own entries were evicted.
	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A fresh instance with an empty layer 1.
	fresh := f.newInstance(t)
	_, err = fresh.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	row := f.mapping(t, issued.MappingID)
	assert.Equal(t, models.TokenStatusRevoked, row.Status)
	assert.Equal(t, int64(2), row.CacheVersion)
	assert.Equal(t, "compromised", row.RevokeReason)
	assert.NotNil(t, row.RevokedAt)
	assert.False(t, f.mr.Exists("oauth2_cache:"+row.AccessTokenHash))
	assert.False(t, f.mr.Exists("oauth2_cache:client:"+f.client.ClientToken+":current"))
}

func TestRevokeStalenessIsBoundedByLayerOneTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reader := f.newInstance(t)

	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	// The reader warms its own layer 1 from layer 2.
	_, err = reader.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Revoke(ctx, issued.AccessToken, "manual"))

	// Within the reader's layer 1 TTL the stale entry may still be served.
	entry, err := reader.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, issued.MappingID, entry.MappingID)

	// Once that TTL elapses the reader observes the revocation.
	f.clock.Advance(time.Minute + time.Second)
	_, err = reader.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLateStaleCacheWriteIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	stale, err := f.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Revoke(ctx, issued.AccessToken, "manual"))

	// A writer that read the row before the revoke lands its entry afterwards.
	hash := HashToken(issued.AccessToken)
	require.NoError(t, f.cache.Set(ctx, hash, stale, time.Minute))

	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, f.mr.Exists("oauth2_cache:"+hash))
}

func TestRevokeTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	require.NoError(t, f.service.Revoke(ctx, issued.AccessToken, ""))
	assert.ErrorIs(t, f.service.Revoke(ctx, issued.AccessToken, ""), ErrInvalidToken)
	assert.Equal(t, "manual", f.mapping(t, issued.MappingID).RevokeReason)
}

func TestExpiryOnLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{ExpiresIn: time.Second})
	require.NoError(t, err)
	assert.Equal(t, int64(1), issued.ExpiresIn)

	f.clock.Advance(2 * time.Second)

	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	row := f.mapping(t, issued.MappingID)
	assert.Equal(t, models.TokenStatusExpired, row.Status)
	assert.Equal(t, int64(2), row.CacheVersion)

	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

// refreshingStore runs onFind after reading a mapping by hash but before handing the
// row back, so the caller acts on a snapshot that has since been rotated.
type refreshingStore struct {
	CredentialStore
	once   sync.Once
	onFind func()
}

func (s *refreshingStore) FindMappingByHash(ctx context.Context, hash string) (*models.TokenMapping, error) {
	mapping, err := s.CredentialStore.FindMappingByHash(ctx, hash)
	if err == nil && s.onFind != nil {
		s.once.Do(s.onFind)
	}
	return mapping, err
}

func TestLookupDoesNotExpireConcurrentlyRefreshedMapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := &refreshingStore{CredentialStore: f.store}
	inst := f.newInstanceWithStore(t, store)

	issued, err := inst.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	f.clock.Advance(time.Hour + 5*time.Second)

	var refreshed *IssuedToken
	store.onFind = func() {
		var err error
		refreshed, err = inst.service.Refresh(ctx, issued.RefreshToken, RefreshOptions{ClientToken: f.client.ClientToken})
		require.NoError(t, err)
	}

	_, err = inst.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	require.NotNil(t, refreshed)

	row := f.mapping(t, issued.MappingID)
	assert.Equal(t, models.TokenStatusActive, row.Status)
	assert.Equal(t, HashToken(refreshed.AccessToken), row.AccessTokenHash)
	assert.True(t, row.ExpiresAt.After(f.clock.Now()))

	entry, err := inst.service.LookupByAccessToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, issued.MappingID, entry.MappingID)
}

func TestCacheStatsCountOnlyTokenLookups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	stats := f.cache.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)

	for i := 0; i < 3; i++ {
		_, err := f.service.LookupByAccessToken(ctx, issued.AccessToken)
		require.NoError(t, err)
	}
	require.NoError(t, f.service.Revoke(ctx, issued.AccessToken, "manual"))

	stats = f.cache.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.InDelta(t, 1.0, stats.HitRate, 0.001)
}

func TestExpiryBySweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	short, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{ExpiresIn: time.Second})
	require.NoError(t, err)
	long, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Second)

	swept, err := f.service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	assert.Equal(t, models.TokenStatusExpired, f.mapping(t, short.MappingID).Status)
	assert.Equal(t, models.TokenStatusActive, f.mapping(t, long.MappingID).Status)
	assert.False(t, f.mr.Exists("oauth2_cache:"+HashToken(short.AccessToken)))

	_, err = f.service.LookupByAccessToken(ctx, short.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	_, err = f.service.LookupByAccessToken(ctx, long.AccessToken)
	assert.NoError(t, err)

	swept, err = f.service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestSweepProcessesEveryBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cfg.SweepBatchSize = 2
	inst := f.newInstance(t)

	for i := 0; i < 5; i++ {
		_, err := inst.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{ExpiresIn: time.Second})
		require.NoError(t, err)
	}
	f.clock.Advance(time.Minute)

	swept, err := inst.service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, swept)
}

func TestConcurrentSweepsDoNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{ExpiresIn: time.Second})
		require.NoError(t, err)
	}
	f.clock.Advance(time.Minute)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := f.service.SweepExpired(ctx)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if n > total {
				total = n
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, total)
	var expired int64
	require.NoError(t, f.db.Model(&models.TokenMapping{}).Where("status = ?", models.TokenStatusExpired).Count(&expired).Error)
	assert.Equal(t, int64(3), expired)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.service.RunSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{Scope: "scope-a"})
	require.NoError(t, err)
	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	refreshed, err := f.service.Refresh(ctx, issued.RefreshToken, RefreshOptions{ClientToken: f.client.ClientToken})
	require.NoError(t, err)

	assert.Equal(t, issued.MappingID, refreshed.MappingID)
	assert.NotEqual(t, issued.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, issued.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, "scope-a", refreshed.Scope)

	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "superseded access token must stop resolving")

	entry, err := f.service.LookupByAccessToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.CacheVersion)

	row := f.mapping(t, issued.MappingID)
	assert.Equal(t, int64(2), row.CacheVersion)
	assert.Equal(t, "refresh_token", row.GrantType)
	assert.Equal(t, int64(1), f.mappingCount(t))

	_, err = f.service.Refresh(ctx, issued.RefreshToken, RefreshOptions{})
	assert.ErrorIs(t, err, oauth2errors.ErrInvalidGrant, "old refresh token is single use")
}

func TestRefreshRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := seedClient(t, f.db, "other", true)

	revoked, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	require.NoError(t, f.service.Revoke(ctx, revoked.AccessToken, "manual"))

	live, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	before := f.mappingCount(t)

	testCases := []struct {
		name    string
		token   string
		options RefreshOptions
	}{
		{name: "revoked mapping", token: revoked.RefreshToken},
		{name: "unknown token", token: "1//0unknown"},
		{name: "empty token", token: ""},
		{name: "foreign client", token: live.RefreshToken, options: RefreshOptions{ClientToken: other.ClientToken}},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Refresh(ctx, tt.token, tt.options)
			assert.ErrorIs(t, err, oauth2errors.ErrInvalidGrant)
		})
	}
	assert.Equal(t, before, f.mappingCount(t))
	assert.Equal(t, int64(2), f.mapping(t, revoked.MappingID).CacheVersion)
}

func TestRefreshWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed shortly after expiry", func(t *testing.T) {
		f := newFixture(t)
		issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{ExpiresIn: time.Second})
		require.NoError(t, err)
		f.clock.Advance(10 * time.Second)

		refreshed, err := f.service.Refresh(ctx, issued.RefreshToken, RefreshOptions{})
		require.NoError(t, err)
		_, err = f.service.LookupByAccessToken(ctx, refreshed.AccessToken)
		assert.NoError(t, err)
	})

	t.Run("rejected and revoked past the window", func(t *testing.T) {
		f := newFixture(t)
		issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{ExpiresIn: time.Second})
		require.NoError(t, err)
		f.clock.Advance(2 * time.Hour)

		_, err = f.service.Refresh(ctx, issued.RefreshToken, RefreshOptions{})
		assert.ErrorIs(t, err, oauth2errors.ErrInvalidGrant)

		row := f.mapping(t, issued.MappingID)
		assert.Equal(t, models.TokenStatusRevoked, row.Status)
		assert.Equal(t, "refresh_expired", row.RevokeReason)
	})
}

func TestRefreshWithDisabledClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	require.NoError(t, f.store.SetClientEnabled(ctx, f.client.ID, false))

	_, err = f.service.Refresh(ctx, issued.RefreshToken, RefreshOptions{})
	assert.ErrorIs(t, err, oauth2errors.ErrInvalidClient)
}

func TestConcurrentRefreshLastWriteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*IssuedToken
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refreshed, err := f.service.Refresh(ctx, issued.RefreshToken, RefreshOptions{})
			if err != nil {
				assert.ErrorIs(t, err, oauth2errors.ErrInvalidGrant)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			results = append(results, refreshed)
		}()
	}
	wg.Wait()
	require.NotEmpty(t, results)

	row := f.mapping(t, issued.MappingID)
	valid := 0
	for _, r := range results {
		if _, err := f.service.LookupByAccessToken(ctx, r.AccessToken); err == nil {
			valid++
			assert.Equal(t, row.AccessTokenHash, HashToken(r.AccessToken))
		}
	}
	assert.Equal(t, 1, valid, "only the last rotation stays valid")
	assert.Equal(t, int64(1)+int64(len(results)), row.CacheVersion)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := seedClient(t, f.db, "other", true)

	a, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	b, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	_, err = f.service.CreateMapping(ctx, other.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := f.service.LookupByAccessToken(ctx, a.AccessToken)
		require.NoError(t, err)
	}
	require.NoError(t, f.service.Revoke(ctx, b.AccessToken, "manual"))
	f.service.Close()

	stats, err := f.service.Stats(ctx, f.client.ClientToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Revoked)
	assert.Equal(t, int64(0), stats.Expired)
	assert.Equal(t, int64(4), stats.MaxUsage)
	assert.InDelta(t, 2.0, stats.AvgUsage, 0.001)
	assert.NotNil(t, stats.LastActivity)

	all, err := f.service.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
}

func TestServiceWorksWithoutSharedLayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mr.Close()

	issued, err := f.service.CreateMapping(ctx, f.client.ClientToken, f.account.ID, MappingOptions{})
	require.NoError(t, err)
	_, err = f.service.LookupByAccessToken(ctx, issued.AccessToken)
	assert.NoError(t, err)
	assert.NoError(t, f.service.Revoke(ctx, issued.AccessToken, "manual"))
}

func TestHashAndMaskToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.Len(t, HashToken("abc"), 64)
	assert.Equal(t, "ya29.a****wxyz", MaskToken("ya29.a0long-tokenwxyz"))
	assert.Equal(t, "****", MaskToken("short"))
}
