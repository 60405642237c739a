package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const sweepKey = "expiry-sweep"

// SweepExpired marks every active mapping past its expiry as expired and evicts
// its cache entries. Concurrent callers share a single pass.
func (s *TokenService) SweepExpired(ctx context.Context) (int, error) {
	result, err, shared := s.sweeps.Do(sweepKey, func() (any, error) {
		return s.sweepExpired(context.WithoutCancel(ctx))
	})
	if shared {
		s.log.Debug("Joined an expiry sweep already in progress")
	}
	count, _ := result.(int)
	return count, err
}

func (s *TokenService) sweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		batch, err := s.store.ExpireMappings(ctx, s.now(), s.cfg.SweepBatchSize)
		if err != nil {
			return total, err
		}
		// Rows rotated between select and update are left out of a batch, so a short
		// batch does not mean the backlog is drained.
		if len(batch) == 0 {
			return total, nil
		}
		for i := range batch {
			s.invalidate(ctx, batch[i].AccessTokenHash, &batch[i])
		}
		total += len(batch)
	}
}

// RunSweeper runs SweepExpired every interval until ctx is cancelled.
func (s *TokenService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.WithField("interval", interval).Info("Token expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Token expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *TokenService) sweepOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithError(fmt.Errorf("%v", r)).Error("Expiry sweep panicked")
		}
	}()

	start := time.Now()
	count, err := s.SweepExpired(ctx)
	fields := logrus.Fields{"expired": count, "duration": time.Since(start)}
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Expiry sweep failed")
		return
	}
	if count > 0 {
		s.log.WithFields(fields).Info("Expiry sweep completed")
	}
}
