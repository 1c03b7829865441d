package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses platform re-deliveries of the same message.
type Deduper interface {
	// Claim returns true the first time key is seen within the TTL.
	Claim(ctx context.Context, key string) (bool, error)
}

type redisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (d *redisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return ok, nil
}

type noopDeduper struct{}

// NewNoopDeduper returns a Deduper that claims every key.
func NewNoopDeduper() Deduper {
	return noopDeduper{}
}

func (noopDeduper) Claim(context.Context, string) (bool, error) {
	return true, nil
}
