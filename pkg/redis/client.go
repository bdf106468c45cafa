package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/divbt/backend/pkg/config"
)

const connectTimeout = 3 * time.Second

// Client wraps the go-redis client. A disabled client turns every cache
// operation into a miss, so callers never branch on redis availability.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New connects to the server described by cfg.Redis.
// REDIS_ENABLED=false returns a disabled client without dialing.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return Disabled(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s:%s: %w", cfg.Redis.Host, cfg.Redis.Port, err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Disabled returns a client that caches nothing
func Disabled() *Client {
	return &Client{}
}

// Close closes the connection of an enabled client
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying go-redis client, nil when disabled
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Ping reports whether the server is reachable. A disabled client is always healthy.
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}
