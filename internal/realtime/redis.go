package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

// RedisBroker fans change events out across API instances over a Redis
// pub/sub channel.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker accepts either a redis:// URL or a bare host:port address.
func NewRedisBroker(redisURL, channel string) (*RedisBroker, error) {
	opts, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Redis broker initialized", "addr", opts.Addr, "channel", channel)
	return &RedisBroker{client: redis.NewClient(opts), channel: channel}, nil
}

func redisOptions(redisURL string) (*redis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	if !strings.Contains(redisURL, "://") {
		return &redis.Options{Addr: redisURL}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opts, nil
}

// Ping verifies the connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	logger.RealtimeEvent("publish", ev.Topic, ev.Table, string(ev.Kind), "broker", "redis")
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("Dropping malformed change event", "channel", b.channel, "error", err)
				continue
			}
			handler(ev)
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
