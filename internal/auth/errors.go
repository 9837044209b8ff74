package auth

import "errors"

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")

	// Same message for unknown email and wrong password to prevent enumeration
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrCodeRequired = errors.New("verification code is required")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidCode  = errors.New("invalid or expired verification code")

	ErrResetTokenRequired = errors.New("reset token is required")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")

	ErrRefreshTokenRequired = errors.New("refresh token is required")

	ErrNotificationFailed = errors.New("could not deliver the email")
)
