package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Token type discriminator carried in the token_type claim. The bearer
// middleware only accepts access tokens; the refresh endpoint only accepts
// refresh tokens.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set carried by both token kinds. Refresh tokens
// omit email and role: the holder must re-derive identity from the subject.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
}

// JWTService handles JWT creation and validation using HS256
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTService(secret []byte, issuer, audience string) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("signing secret must be at least 32 bytes, got %d", len(secret))
	}

	return &JWTService{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
	}, nil
}

// CreateAccessToken generates a short-lived access token carrying the user's
// identity claims
func (s *JWTService) CreateAccessToken(userID uuid.UUID, email, role string, duration time.Duration) (string, error) {
	return s.createToken(TokenClaims{
		RegisteredClaims: s.registeredClaims(userID, duration),
		Email:            email,
		Role:             role,
		TokenType:        TokenTypeAccess,
	})
}

// CreateRefreshToken generates a long-lived refresh token carrying only the
// subject and a unique token ID used for rotation
func (s *JWTService) CreateRefreshToken(userID uuid.UUID, duration time.Duration) (string, error) {
	return s.createToken(TokenClaims{
		RegisteredClaims: s.registeredClaims(userID, duration),
		TokenType:        TokenTypeRefresh,
	})
}

func (s *JWTService) registeredClaims(userID uuid.UUID, duration time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		Subject:   userID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
	}
}

func (s *JWTService) createToken(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifyToken validates a token's signature, expiry, issuer and audience, and
// returns the claims. Signature mismatch, malformed payloads and wrong
// issuer/audience all collapse into ErrInvalidToken; only expiry is
// distinguished, for a clearer client message.
func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
