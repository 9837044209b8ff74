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

// OTPRepository handles one-time login code persistence
type OTPRepository struct {
	db *bun.DB
}

func NewOTPRepository(db *bun.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create stores a new code for the user. Earlier codes are left in place;
// lookup is latest-row-wins.
func (r *OTPRepository) Create(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	dbCode := &database.TwoFactorCode{
		UserID:    userID,
		Code:      code,
		ExpiresAt: expiresAt,
	}

	_, err := r.db.NewInsert().
		Model(dbCode).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	return nil
}

// Consume validates the most recent matching code and marks it used.
// The mark-used step is conditional on the row still being unused, so two
// concurrent calls with the same code cannot both succeed.
func (r *OTPRepository) Consume(ctx context.Context, userID uuid.UUID, code string, now time.Time) error {
	dbCode := new(database.TwoFactorCode)
	err := r.db.NewSelect().
		Model(dbCode).
		Where("user_id = ?", userID).
		Where("code = ?", code).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to look up verification code: %w", err)
	}

	if dbCode.Used {
		return ErrInvalidCode
	}

	if !now.Before(dbCode.ExpiresAt) {
		return ErrInvalidCode
	}

	result, err := r.db.NewUpdate().
		Model((*database.TwoFactorCode)(nil)).
		Set("used = ?", true).
		Where("id = ?", dbCode.ID).
		Where("used = ?", false).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	// Another request won the race
	if rowsAffected == 0 {
		return ErrInvalidCode
	}

	return nil
}
