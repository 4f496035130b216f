package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mcxdesk/internal/config"
)

// RedisNotifier publishes notifications as JSON on a pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a publisher from a redis:// URL.
func NewRedisNotifier(cfg config.RedisConfig) (*RedisNotifier, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "mcxdesk:alerts"
	}
	return &RedisNotifier{
		client:  redis.NewClient(opt),
		channel: channel,
	}, nil
}

// Name returns the name of the notifier.
func (r *RedisNotifier) Name() string {
	return "redis"
}

// IsEnabled returns whether the notifier is enabled.
func (r *RedisNotifier) IsEnabled() bool {
	return r.client != nil
}

// Channel returns the pub/sub channel name.
func (r *RedisNotifier) Channel() string {
	return r.channel
}

// Notify publishes the notification.
func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling redis payload: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", r.channel, err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (r *RedisNotifier) Close() error {
	return r.client.Close()
}
