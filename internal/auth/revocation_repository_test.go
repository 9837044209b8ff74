package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRevocationRepo(t *testing.T) (*RedisRevocationRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisRevocationRepository(client), mr
}

func TestRevocationRepository(t *testing.T) {
	repo, _ := newTestRevocationRepo(t)
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "some-jti", time.Hour))

	revoked, err = repo.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "other-jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationRepository_MarkerExpiresWithToken(t *testing.T) {
	repo, mr := newTestRevocationRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Revoke(ctx, "some-jti", time.Hour))

	mr.FastForward(time.Hour + time.Second)

	revoked, err := repo.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	assert.False(t, revoked, "marker should not outlive the token it blocks")
}

func TestRevocationRepository_ExpiredTokenStillGetsMarker(t *testing.T) {
	repo, _ := newTestRevocationRepo(t)
	ctx := context.Background()

	// A non-positive TTL is clamped instead of failing
	require.NoError(t, repo.Revoke(ctx, "expired-jti", -time.Minute))

	revoked, err := repo.IsRevoked(ctx, "expired-jti")
	require.NoError(t, err)
	assert.True(t, revoked)
}
