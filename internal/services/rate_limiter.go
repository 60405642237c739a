package services

import (
	"sync"
	"time"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	perMinute int
	limiter   *rate.Limiter
}

// RateLimiter enforces each client's grants-per-minute ceiling.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[uint]*clientLimiter
	now      func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limiters: make(map[uint]*clientLimiter),
		now:      now,
	}
}

// Allow consumes one grant for client. A zero ceiling never limits.
func (r *RateLimiter) Allow(client *models.Client) bool {
	if client == nil || client.RateLimit <= 0 {
		return true
	}

	r.mu.Lock()
	cl, ok := r.limiters[client.ID]
	if !ok || cl.perMinute != client.RateLimit {
		// Ceiling changed or first sight: start with a full bucket.
		cl = &clientLimiter{
			perMinute: client.RateLimit,
			limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(client.RateLimit)), client.RateLimit),
		}
		r.limiters[client.ID] = cl
	}
	r.mu.Unlock()

	return cl.limiter.AllowN(r.now(), 1)
}
