// Package cache remembers which certificate a public verification code points to.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "certify:verify:"

// Verification caches verification code -> certificate id. Certificates are immutable once
// issued, so entries only expire to bound memory.
type Verification struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVerification connects using a redis:// URL.
func NewVerification(ctx context.Context, url string, ttl time.Duration) (*Verification, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewVerificationFromClient(client, ttl), nil
}

func NewVerificationFromClient(client *redis.Client, ttl time.Duration) *Verification {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Verification{client: client, ttl: ttl}
}

// Lookup reports ok=false on a miss.
func (v *Verification) Lookup(ctx context.Context, code string) (uuid.UUID, bool, error) {
	val, err := v.client.Get(ctx, keyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("cache get: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		// stale garbage, treat as a miss
		v.client.Del(ctx, keyPrefix+code)
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (v *Verification) Remember(ctx context.Context, code string, certificateID uuid.UUID) error {
	return v.client.Set(ctx, keyPrefix+code, certificateID.String(), v.ttl).Err()
}

func (v *Verification) Forget(ctx context.Context, code string) error {
	return v.client.Del(ctx, keyPrefix+code).Err()
}

func (v *Verification) Close() error { return v.client.Close() }
