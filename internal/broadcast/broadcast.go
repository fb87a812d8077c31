// Package broadcast publishes real-time events to connected dashboards
// through redis pub/sub. Subscribers (websocket bridges, admin UIs) are
// external to this service; it only writes to channels.
package broadcast

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// Config carries the redis connection settings.
type Config struct {
	Addr     string `yaml:"addr" env:"ADDR" default:"localhost:6379"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// Redis publishes events to redis channels.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis broadcaster and verifies connectivity.
func NewRedis(ctx context.Context, cfg Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Redis{client: client}, nil
}

// Publish sends the payload to every subscriber of the channel.
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish to %q", channel)
	}
	return nil
}

// Close releases the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
