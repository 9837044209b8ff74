package httputil

// Machine-readable error codes returned alongside human-readable messages.
// Clients should branch on these, not on message text.
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeEmailRequired      = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodePasswordRequired   = "PASSWORD_REQUIRED"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"

	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeCodeRequired       = "CODE_REQUIRED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidCode        = "INVALID_CODE"

	CodeResetTokenRequired   = "RESET_TOKEN_REQUIRED"
	CodeInvalidResetToken    = "INVALID_RESET_TOKEN"
	CodeRefreshTokenRequired = "REFRESH_TOKEN_REQUIRED"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"

	CodeMissingAuth        = "MISSING_AUTHENTICATION"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidTokenUserID = "INVALID_TOKEN_USER_ID"

	CodeNotificationFailed = "NOTIFICATION_FAILED"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeCooldownActive     = "COOLDOWN_ACTIVE"
	CodeInternalError      = "INTERNAL_ERROR"
)
