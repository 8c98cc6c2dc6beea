package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fieldplot/internal/platform/config"
)

// Client wraps go-redis with a health check. Redis backs the shared
// identifier allocator; single-device installations run without it.
type Client struct {
	*redis.Client
}

// New connects using the provided configuration. An empty URL means Redis is
// not configured and returns a nil client, which callers treat as "fall back
// to the in-process allocator".
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the connection is usable.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
