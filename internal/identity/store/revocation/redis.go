package revocation

import (
	"context"
	"fmt"
	"time"

	platformredis "roster/internal/platform/redis"
)

const keyPrefix = "revoked_jti:"

// RedisList is a Redis-backed revocation list shared across instances.
// Entries expire with the token, so the set stays bounded.
type RedisList struct {
	client *platformredis.Client
}

func NewRedis(client *platformredis.Client) *RedisList {
	return &RedisList{client: client}
}

func (l *RedisList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *RedisList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// Verify interface compliance.
var _ List = (*RedisList)(nil)
