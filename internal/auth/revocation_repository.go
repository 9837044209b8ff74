package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationRepository marks rotated-out refresh token IDs in Redis.
// A marker only needs to outlive the token it blocks, so each key carries the
// token's remaining lifetime as its TTL.
type RedisRevocationRepository struct {
	client *redis.Client
}

func NewRedisRevocationRepository(client *redis.Client) *RedisRevocationRepository {
	return &RedisRevocationRepository{client: client}
}

func revokedKey(jti string) string {
	return fmt.Sprintf("refresh_token:revoked:%s", jti)
}

// Revoke marks a refresh token ID as no longer usable
func (r *RedisRevocationRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; keep the marker briefly anyway
		ttl = time.Minute
	}

	if err := r.client.Set(ctx, revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// IsRevoked reports whether a refresh token ID has been rotated out
func (r *RedisRevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return exists > 0, nil
}
