package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()

	svc, err := NewJWTService(testSecret, "auth-api", "auth-api-clients")
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTService([]byte("too-short"), "auth-api", "auth-api-clients")
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := newTestJWTService(t)
	userID := uuid.New()

	token, err := svc.CreateAccessToken(userID, "user@example.com", "user", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "auth-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	// Expiry should be exactly one TTL after issue
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, time.Hour, ttl)
}

func TestRefreshToken_OmitsIdentityClaims(t *testing.T) {
	svc := newTestJWTService(t)
	userID := uuid.New()

	token, err := svc.CreateRefreshToken(userID, 7*24*time.Hour)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.Role)
}

func TestRefreshTokens_HaveUniqueIDs(t *testing.T) {
	svc := newTestJWTService(t)
	userID := uuid.New()

	first, err := svc.CreateRefreshToken(userID, time.Hour)
	require.NoError(t, err)
	second, err := svc.CreateRefreshToken(userID, time.Hour)
	require.NoError(t, err)

	firstClaims, err := svc.VerifyToken(first)
	require.NoError(t, err)
	secondClaims, err := svc.VerifyToken(second)
	require.NoError(t, err)

	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestVerifyToken_RejectsTampered(t *testing.T) {
	svc := newTestJWTService(t)

	token, err := svc.CreateAccessToken(uuid.New(), "user@example.com", "user", time.Hour)
	require.NoError(t, err)

	// Flip a character in the signature part
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = svc.VerifyToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_RejectsWrongSecret(t *testing.T) {
	svc := newTestJWTService(t)

	other, err := NewJWTService([]byte("another-secret-another-secret-32"), "auth-api", "auth-api-clients")
	require.NoError(t, err)

	token, err := other.CreateAccessToken(uuid.New(), "user@example.com", "user", time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_RejectsWrongIssuerOrAudience(t *testing.T) {
	svc := newTestJWTService(t)

	otherIssuer, err := NewJWTService(testSecret, "someone-else", "auth-api-clients")
	require.NoError(t, err)
	token, err := otherIssuer.CreateAccessToken(uuid.New(), "user@example.com", "user", time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAudience, err := NewJWTService(testSecret, "auth-api", "someone-else")
	require.NoError(t, err)
	token, err = otherAudience.CreateAccessToken(uuid.New(), "user@example.com", "user", time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	svc := newTestJWTService(t)

	token, err := svc.CreateAccessToken(uuid.New(), "user@example.com", "user", -time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyToken_Garbage(t *testing.T) {
	svc := newTestJWTService(t)

	_, err := svc.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
