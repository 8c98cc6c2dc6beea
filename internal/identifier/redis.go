package identifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for per-map-code sequences.
const sequenceKeyPrefix = "fieldplot:plotid:seq:"

// RedisAllocator draws identifiers from shared Redis counters so multiple
// devices allocating against the same map code never collide. INCR is
// atomic; a sequence number, once returned, is never issued again even if
// the caller subsequently fails.
type RedisAllocator struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisAllocator {
	return &RedisAllocator{client: client}
}

func (a *RedisAllocator) Allocate(ctx context.Context, mapCode string) (string, error) {
	seq, err := a.client.Incr(ctx, sequenceKeyPrefix+mapCode).Result()
	if err != nil {
		return "", fmt.Errorf("allocate plot identifier: %w", err)
	}
	return format(mapCode, seq), nil
}
