// Package invalidation notifies the external rebuild service that administrative
// state changed. Messages are opaque triggers, never deltas.
package invalidation

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultChannel = "oauth2:cmd:job:trigger"
	DefaultPayload = "db_sync_job"

	publishTimeout = 3 * time.Second
)

// Publisher emits a rebuild trigger after an administrative mutation.
// Publish must return immediately and never report failure to the caller.
type Publisher interface {
	Publish(ctx context.Context, source string)
}

// RedisPublisher sends triggers with Redis PUBLISH from a background goroutine.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	payload string
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

// NewRedisPublisher builds a publisher. Empty channel or payload use the defaults.
func NewRedisPublisher(client redis.UniversalClient, channel, payload string, logger logrus.FieldLogger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if payload == "" {
		payload = DefaultPayload
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		payload: payload,
		log:     logger.WithField("component", "invalidation"),
	}
}

func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish fires the trigger and returns. source only feeds the log line.
func (p *RedisPublisher) Publish(ctx context.Context, source string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		fields := logrus.Fields{"channel": p.channel, "source": source}
		receivers, err := p.client.Publish(ctx, p.channel, p.payload).Result()
		if err != nil {
			p.log.WithFields(fields).WithError(err).Error("Failed to publish rebuild trigger")
			return
		}
		if receivers == 0 {
			p.log.WithFields(fields).Warn("Rebuild trigger published but no subscriber is listening")
			return
		}
		p.log.WithFields(fields).WithField("receivers", receivers).Info("Rebuild trigger published")
	}()
}

// Close waits for in-flight publishes.
func (p *RedisPublisher) Close() {
	p.wg.Wait()
}

// NoopPublisher is used when no shared store is configured.
type NoopPublisher struct {
	Log logrus.FieldLogger
}

func (n NoopPublisher) Publish(_ context.Context, source string) {
	if n.Log != nil {
		n.Log.WithField("source", source).Debug("Invalidation disabled, dropping rebuild trigger")
	}
}
