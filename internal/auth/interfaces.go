package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rbravo-MCR/auth-api/internal/user"
)

// TokenService defines the interface for token creation and validation.
// The concrete implementation is JWTService (HS256).
type TokenService interface {
	CreateAccessToken(userID uuid.UUID, email, role string, duration time.Duration) (string, error)
	CreateRefreshToken(userID uuid.UUID, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserRepository defines the user persistence operations the auth flow needs
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash, name string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// OneTimeCodeRepository stores and consumes login verification codes.
// Consume must be single-use: of N concurrent calls with the same valid code,
// exactly one may succeed.
type OneTimeCodeRepository interface {
	Create(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error
	Consume(ctx context.Context, userID uuid.UUID, code string, now time.Time) error
}

// ResetTokenRepository stores and consumes password reset tokens with the same
// single-use contract as OneTimeCodeRepository.
type ResetTokenRepository interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	Consume(ctx context.Context, token string, now time.Time) (uuid.UUID, error)
}

// RevocationRepository tracks refresh token IDs that were rotated out
type RevocationRepository interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendTwoFactorCode(ctx context.Context, toEmail, toName, code string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string) error
}
