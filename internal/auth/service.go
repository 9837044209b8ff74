package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/rbravo-MCR/auth-api/internal/logging"
	"github.com/rbravo-MCR/auth-api/internal/user"
)

// Argon2id parameters - tuned for security vs performance balance
// Time: 3, Memory: 64MB, Threads: 4, KeyLen: 32 bytes
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

const (
	otpTTL        = 5 * time.Minute
	resetTokenTTL = 30 * time.Minute

	minPasswordLen = 6
)

// AuthTokens is the token pair returned after a successful OTP verification
// or refresh
type AuthTokens struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"type"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Service orchestrates the authentication flow: registration, credential
// login gated by an emailed one-time code, token issuance and rotation, and
// the password reset flow.
type Service struct {
	users                UserRepository
	codes                OneTimeCodeRepository
	resetTokens          ResetTokenRepository
	revocations          RevocationRepository
	tokenService         TokenService
	emailService         EmailService
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewService(
	users UserRepository,
	codes OneTimeCodeRepository,
	resetTokens ResetTokenRepository,
	revocations RevocationRepository,
	tokenService TokenService,
	emailService EmailService,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
) *Service {
	return &Service{
		users:                users,
		codes:                codes,
		resetTokens:          resetTokens,
		revocations:          revocations,
		tokenService:         tokenService,
		emailService:         emailService,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// Register creates a new user account, stores a verification code and emails
// it. Delivery failure at this stage is logged, not surfaced: the account is
// already durable and a new code is issued on first login.
func (s *Service) Register(ctx context.Context, email, password, name string) (*user.User, error) {
	email = normalizeEmail(email)

	if email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}

	// Checked before insert; the unique constraint still backstops races
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, passwordHash, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	code, err := generateNumericCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := s.codes.Create(ctx, newUser.ID, code, time.Now().Add(otpTTL)); err != nil {
		s.logger.Warn("failed to store registration verification code", "user_id", newUser.ID, "error", err)
		return newUser, nil
	}

	// Send in a goroutine; the user can always log in to get a fresh code
	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendTwoFactorCode(emailCtx, newUser.Email, newUser.Name, code); err != nil {
			s.logger.Warn("failed to send registration verification code", "email", newUser.Email, "error", err)
		}
	}()

	return newUser, nil
}

// Login verifies credentials and, on success, stores and emails a one-time
// code. Delivery here is synchronous and fail-closed: if the code cannot be
// sent the whole call fails, so the user is never left waiting for a code
// that will not arrive.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, error) {
	email = normalizeEmail(email)

	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.verifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	code, err := generateNumericCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := s.codes.Create(ctx, existingUser.ID, code, time.Now().Add(otpTTL)); err != nil {
		return nil, fmt.Errorf("failed to store verification code: %w", err)
	}

	if err := s.emailService.SendTwoFactorCode(ctx, existingUser.Email, existingUser.Name, code); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotificationFailed, err)
	}

	return existingUser, nil
}

// VerifyOTP consumes a one-time code for the user identified by email and
// issues an access+refresh token pair. This is the only path that produces
// tokens from credentials.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*AuthTokens, error) {
	email = normalizeEmail(email)

	if email == "" {
		return nil, ErrEmailRequired
	}
	if code == "" {
		return nil, ErrCodeRequired
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.verifyOTPForUser(ctx, existingUser, code)
}

// VerifyOTPByUserID is the alternate entry point keyed by user ID instead of
// email
func (s *Service) VerifyOTPByUserID(ctx context.Context, userID uuid.UUID, code string) (*AuthTokens, error) {
	if code == "" {
		return nil, ErrCodeRequired
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.verifyOTPForUser(ctx, existingUser, code)
}

func (s *Service) verifyOTPForUser(ctx context.Context, u *user.User, code string) (*AuthTokens, error) {
	if err := s.codes.Consume(ctx, u.ID, code, time.Now()); err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to consume verification code: %w", err)
	}

	return s.issueTokens(u)
}

// Refresh validates a refresh token and rotates it: the old token's ID is
// revoked for the remainder of its lifetime and a fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}

	claims, err := s.tokenService.VerifyToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Revoke before reissuing so a replayed old token cannot mint tokens
	if err := s.revocations.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	return s.issueTokens(existingUser)
}

// RequestPasswordReset starts the reset flow. Unknown emails return nil
// without touching the notifier, so callers can answer neutrally.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if email == "" {
		return ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmailFormat
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Don't reveal if user exists
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.resetTokens.Create(ctx, existingUser.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.emailService.SendPasswordResetEmail(ctx, existingUser.Email, existingUser.Name, token); err != nil {
		return fmt.Errorf("%w: %s", ErrNotificationFailed, err)
	}

	return nil
}

// ResetPassword consumes a reset token and overwrites the user's password
// hash
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)

	if token == "" {
		return ErrResetTokenRequired
	}
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < minPasswordLen {
		return ErrPasswordTooShort
	}

	userID, err := s.resetTokens.Consume(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	passwordHash, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

func (s *Service) issueTokens(u *user.User) (*AuthTokens, error) {
	accessToken, err := s.tokenService.CreateAccessToken(u.ID, u.Email, u.Role, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenService.CreateRefreshToken(u.ID, s.refreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}

// hashPassword creates an argon2id hash of the password
func (s *Service) hashPassword(password string) (string, error) {
	// Generate random salt
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	// Hash password with argon2id
	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)

	// Encode as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		encodedSalt,
		encodedHash,
	), nil
}

// verifyPassword checks if a password matches the stored hash
func (s *Service) verifyPassword(encodedHash, password string) bool {
	// Parse the encoded hash
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	// Parse parameters
	var version int
	var memory, time uint32
	var threads uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads)
	if err != nil {
		return false
	}
	_, err = fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return false
	}

	// Decode salt and hash
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Hash the input password with the same parameters
	inputHash := argon2.IDKey(
		[]byte(password),
		salt,
		time,
		memory,
		threads,
		uint32(len(decodedHash)),
	)

	// Compare hashes using constant-time comparison
	return subtle.ConstantTimeCompare(decodedHash, inputHash) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateNumericCode produces a 6-digit code with crypto/rand
func generateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// generateResetToken produces a 256-bit token encoded as 64 hex characters
func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
