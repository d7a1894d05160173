// Package replay remembers webhook message ids so a redelivered message is
// acknowledged without being dispatched again.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "webhook:delivery:"

// Guard claims a message id for processing.
type Guard interface {
	// Claim returns true when id has not been claimed within the TTL.
	Claim(ctx context.Context, id string) (bool, error)
	// Release forgets id so a retry of the same message is processed.
	Release(ctx context.Context, id string) error
}

// NopGuard claims every id. Used when Redis is not configured.
type NopGuard struct{}

func (NopGuard) Claim(context.Context, string) (bool, error) { return true, nil }

func (NopGuard) Release(context.Context, string) error { return nil }

// RedisGuard stores claimed ids with SET NX and a TTL.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard keeps ids for ttl. Deliveries older than the verifier's
// tolerance are rejected anyway, so twice the tolerance is enough.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+id, time.Now().UTC().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay: claim %s: %w", id, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, id string) error {
	if err := g.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("replay: release %s: %w", id, err)
	}
	return nil
}
