package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ipWindow      = 15 * time.Minute
	ipMaxRequests = 10
	emailCooldown = 2 * time.Minute
)

// Limiter implements fixed-window rate limiting on Redis: a counter per
// (purpose, ip) that expires with the window, plus a per-email cooldown key
// for endpoints that send mail.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func ipKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func cooldownKey(email string) string {
	return fmt.Sprintf("ratelimit:email:%s", email)
}

// CheckIPRateLimitWithPurpose reports whether the IP has exhausted its window
// for the given purpose.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(purpose, ip)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ip rate limit: %w", err)
	}

	return count >= ipMaxRequests, nil
}

// RecordIPRequestWithPurpose counts a request against the IP's window for the
// given purpose. The window starts with the first request.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(purpose, ip)

	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ipWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record ip request: %w", err)
	}

	return nil
}

// CheckIPRateLimit is CheckIPRateLimitWithPurpose with the default purpose.
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, "default")
}

// RecordIPRequest is RecordIPRequestWithPurpose with the default purpose.
func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, "default")
}

// CheckEmailCooldown reports whether the email address is still in its
// cooldown period.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	exists, err := l.client.Exists(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}

	return exists > 0, nil
}

// SetEmailCooldown starts the cooldown period for an email address.
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, cooldownKey(email), "1", emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}

	return nil
}
