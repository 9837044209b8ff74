package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/rbravo-MCR/auth-api/internal/database"
)

// PasswordResetRepository handles password reset token persistence
type PasswordResetRepository struct {
	db *bun.DB
}

func NewPasswordResetRepository(db *bun.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores a new reset token for the user
func (r *PasswordResetRepository) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	dbToken := &database.PasswordReset{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	_, err := r.db.NewInsert().
		Model(dbToken).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}

	return nil
}

// Consume resolves the token to its owner and marks it used. Absent, already
// used and expired tokens are indistinguishable to the caller. The mark-used
// step is conditional on the row still being unused.
func (r *PasswordResetRepository) Consume(ctx context.Context, token string, now time.Time) (uuid.UUID, error) {
	dbToken := new(database.PasswordReset)
	err := r.db.NewSelect().
		Model(dbToken).
		Where("token = ?", token).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrInvalidResetToken
		}
		return uuid.Nil, fmt.Errorf("failed to look up reset token: %w", err)
	}

	if dbToken.Used {
		return uuid.Nil, ErrInvalidResetToken
	}

	if !now.Before(dbToken.ExpiresAt) {
		return uuid.Nil, ErrInvalidResetToken
	}

	result, err := r.db.NewUpdate().
		Model((*database.PasswordReset)(nil)).
		Set("used = ?", true).
		Where("id = ?", dbToken.ID).
		Where("used = ?", false).
		Exec(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return uuid.Nil, ErrInvalidResetToken
	}

	return dbToken.UserID, nil
}
