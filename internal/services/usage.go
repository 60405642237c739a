package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type usageDelta struct {
	uses     int64
	lastUsed time.Time
}

// usageRecorder folds lookups into per-mapping deltas and writes them from a single
// worker, so store traffic stays bounded however many lookups arrive.
type usageRecorder struct {
	store CredentialStore
	log   logrus.FieldLogger

	mu      sync.Mutex
	pending map[uint]usageDelta
	closed  bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newUsageRecorder(store CredentialStore, logger logrus.FieldLogger) *usageRecorder {
	r := &usageRecorder{
		store:   store,
		log:     logger,
		pending: make(map[uint]usageDelta),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go r.run()
	return r
}

// record never blocks on the store while the worker is running. After close it
// writes through directly.
func (r *usageRecorder) record(mappingID uint, now time.Time) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.write(mappingID, usageDelta{uses: 1, lastUsed: now})
		return
	}
	d := r.pending[mappingID]
	d.uses++
	if now.After(d.lastUsed) {
		d.lastUsed = now
	}
	r.pending[mappingID] = d
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *usageRecorder) run() {
	defer close(r.stopped)
	for {
		select {
		case <-r.wake:
			r.flush()
		case <-r.done:
			r.flush()
			return
		}
	}
}

func (r *usageRecorder) flush() {
	r.mu.Lock()
	batch := r.pending
	r.pending = make(map[uint]usageDelta, len(batch))
	r.mu.Unlock()

	for id, d := range batch {
		r.write(id, d)
	}
}

func (r *usageRecorder) write(mappingID uint, d usageDelta) {
	ctx, cancel := context.WithTimeout(context.Background(), usageUpdateTimeout)
	defer cancel()
	if err := r.store.TouchMapping(ctx, mappingID, d.uses, d.lastUsed); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"mapping_id": mappingID,
			"uses":       d.uses,
		}).Warn("Failed to record token usage")
	}
}

// close flushes what is pending and stops the worker. Safe to call repeatedly.
func (r *usageRecorder) close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
	})
	<-r.stopped
}
