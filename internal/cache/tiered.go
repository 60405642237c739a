package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Tier tells which layer answered a read.
type Tier int

const (
	TierMiss Tier = iota
	TierMemory
	TierShared
)

func (t Tier) Hit() bool {
	return t != TierMiss
}

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierShared:
		return "shared"
	default:
		return "miss"
	}
}

// Cache is the read-through/write-through contract used by the token service.
// Implementations never surface storage failures to the caller.
type Cache interface {
	Get(ctx context.Context, key string, dest any) Tier
	// Peek reads like Get but leaves the hit and miss counters alone. It is meant
	// for bookkeeping keys that should not skew lookup statistics.
	Peek(ctx context.Context, key string, dest any) Tier
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

// Options configures both layers. Either layer can be disabled independently.
type Options struct {
	Prefix string

	MemoryEnabled bool
	MemorySize    int
	MemoryTTL     time.Duration // ceiling for any layer 1 entry

	SharedEnabled bool
	DefaultTTL    time.Duration // used when Set is called without a TTL

	Now func() time.Time
}

// DefaultOptions mirrors the service defaults.
func DefaultOptions() Options {
	return Options{
		Prefix:        "oauth2_cache:",
		MemoryEnabled: true,
		MemorySize:    1000,
		MemoryTTL:     5 * time.Minute,
		SharedEnabled: true,
		DefaultTTL:    30 * time.Minute,
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	MemoryHits  int64   `json:"memory_hits"`
	SharedHits  int64   `json:"shared_hits"`
	Errors      int64   `json:"errors"`
	HitRate     float64 `json:"hit_rate"`
	MemorySize  int     `json:"memory_size"`
	MemoryLayer bool    `json:"memory_layer"`
	SharedLayer bool    `json:"shared_layer"`
}

type counters struct {
	hits, misses, memoryHits, sharedHits, errors atomic.Int64
}

// TieredCache layers a MemoryCache over a RedisCache.
type TieredCache struct {
	prefix     string
	memory     *MemoryCache
	shared     *RedisCache
	memoryTTL  time.Duration
	defaultTTL time.Duration
	stats      counters
}

// NewTieredCache builds the configured layers. A nil client disables the shared layer.
func NewTieredCache(opts Options, client redis.UniversalClient) *TieredCache {
	c := &TieredCache{
		prefix:     opts.Prefix,
		memoryTTL:  opts.MemoryTTL,
		defaultTTL: opts.DefaultTTL,
	}
	if c.memoryTTL <= 0 {
		c.memoryTTL = 5 * time.Minute
	}
	if c.defaultTTL <= 0 {
		c.defaultTTL = 30 * time.Minute
	}
	if opts.MemoryEnabled {
		c.memory = NewMemoryCache(opts.MemorySize, opts.Now)
	}
	if opts.SharedEnabled && client != nil {
		c.shared = NewRedisCache(client)
	}

	log.WithFields(logrus.Fields{
		"prefix":       c.prefix,
		"memory_layer": c.memory != nil,
		"shared_layer": c.shared != nil,
		"memory_ttl":   c.memoryTTL,
	}).Info("Multi-tier cache initialized")
	return c
}

// Memory exposes layer 1, mainly for its cleanup loop.
func (c *TieredCache) Memory() *MemoryCache {
	return c.memory
}

func (c *TieredCache) Get(ctx context.Context, key string, dest any) Tier {
	tier := c.get(ctx, key, dest)
	switch tier {
	case TierMemory:
		c.stats.hits.Add(1)
		c.stats.memoryHits.Add(1)
	case TierShared:
		c.stats.hits.Add(1)
		c.stats.sharedHits.Add(1)
	default:
		c.stats.misses.Add(1)
	}
	return tier
}

func (c *TieredCache) Peek(ctx context.Context, key string, dest any) Tier {
	return c.get(ctx, key, dest)
}

// get reads through both layers. Errors are counted here, hits and misses by Get.
func (c *TieredCache) get(ctx context.Context, key string, dest any) Tier {
	full := c.prefix + key

	if c.memory != nil {
		if raw, ok := c.memory.Get(full); ok {
			if err := json.Unmarshal(raw, dest); err == nil {
				return TierMemory
			}
			c.stats.errors.Add(1)
			c.memory.Delete(full)
		}
	}

	if c.shared != nil {
		raw, remaining, err := c.shared.Get(ctx, full)
		switch {
		case errors.Is(err, ErrCacheMiss):
		case err != nil:
			c.stats.errors.Add(1)
			log.WithError(err).WithField("key", full).Warn("Shared cache read failed, falling back")
		default:
			if err := json.Unmarshal(raw, dest); err != nil {
				c.stats.errors.Add(1)
				log.WithError(err).WithField("key", full).Warn("Discarding undecodable shared cache entry")
				c.deleteShared(ctx, full)
				break
			}
			if c.memory != nil {
				ttl := c.memoryTTL
				if remaining > 0 && remaining < ttl {
					ttl = remaining
				}
				c.memory.Set(full, raw, ttl)
			}
			return TierShared
		}
	}
	return TierMiss
}

// Set writes layer 1 with min(ttl, layer 1 ceiling) and layer 2 with the full ttl.
// Only an encoding failure is returned; layer 2 failures are logged and counted.
func (c *TieredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value for %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	full := c.prefix + key

	if c.memory != nil {
		c.memory.Set(full, raw, min(ttl, c.memoryTTL))
	}
	if c.shared != nil {
		if err := c.shared.Set(ctx, full, raw, ttl); err != nil {
			c.stats.errors.Add(1)
			log.WithError(err).WithField("key", full).Warn("Shared cache write failed, continuing with memory layer")
		}
	}
	return nil
}

func (c *TieredCache) Delete(ctx context.Context, keys ...string) {
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.prefix + key
	}
	if c.memory != nil {
		c.memory.Delete(full...)
	}
	c.deleteShared(ctx, full...)
}

// Clear drops every entry under the configured prefix from both layers.
func (c *TieredCache) Clear(ctx context.Context) error {
	if c.memory != nil {
		c.memory.Clear()
	}
	if c.shared == nil {
		return nil
	}
	removed, err := c.shared.DeletePrefix(ctx, c.prefix)
	if err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("clear shared cache: %w", err)
	}
	log.WithField("removed", removed).Info("Cache cleared")
	return nil
}

func (c *TieredCache) Stats() Stats {
	s := Stats{
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		MemoryHits:  c.stats.memoryHits.Load(),
		SharedHits:  c.stats.sharedHits.Load(),
		Errors:      c.stats.errors.Load(),
		MemoryLayer: c.memory != nil,
		SharedLayer: c.shared != nil,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	if c.memory != nil {
		s.MemorySize = c.memory.Len()
	}
	return s
}

func (c *TieredCache) deleteShared(ctx context.Context, keys ...string) {
	if c.shared == nil {
		return
	}
	if err := c.shared.Delete(ctx, keys...); err != nil {
		c.stats.errors.Add(1)
		log.WithError(err).Warn("Shared cache delete failed")
	}
}
