package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rbravo-MCR/auth-api/internal/httputil"
	"github.com/rbravo-MCR/auth-api/internal/logging"
	"github.com/rbravo-MCR/auth-api/internal/ratelimit"
	"github.com/rbravo-MCR/auth-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest carries the one-time code plus either the email or the
// user ID returned by login. Email wins when both are present.
type VerifyOTPRequest struct {
	Email  string `json:"email,omitempty"`
	UserID string `json:"userId,omitempty"`
	Code   string `json:"code"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// MessageResponse is a plain confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}

// UserIDResponse confirms an operation on a specific account
type UserIDResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

// VerifyOTPResponse carries the issued token pair
type VerifyOTPResponse struct {
	Message string `json:"message"`
	AuthTokens
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new user account. A verification code is emailed for the first login.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} UserIDResponse
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.ipLimited(w, r, ip, "register") {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusUnprocessableEntity)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "register"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	newUser, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists")
			respondError(w, "email already registered", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrInvalidEmailFormat):
			respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusUnprocessableEntity)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			respondError(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	respondJSON(w, UserIDResponse{
		Message: "user registered successfully",
		UserID:  newUser.ID,
	}, http.StatusCreated)
}

// Login handles credential verification and sends the one-time code
// @Summary      User login (first factor)
// @Description  Verify email and password and email a one-time code. Tokens are only issued by verify-otp.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} UserIDResponse
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      500 {object} httputil.ErrorResponse "Code could not be delivered"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.ipLimited(w, r, ip, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusUnprocessableEntity)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	loggedInUser, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrNotificationFailed):
			logger.Error("login failed: could not send verification code", "error", err.Error())
			respondError(w, "could not send the verification code, please try again later", httputil.CodeNotificationFailed, http.StatusInternalServerError)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("verification code sent", "user_id", loggedInUser.ID)

	respondJSON(w, UserIDResponse{
		Message: "verification code sent",
		UserID:  loggedInUser.ID,
	}, http.StatusOK)
}

// VerifyOTP handles the second factor and issues tokens
// @Summary      Verify one-time code
// @Description  Consume the emailed code and receive an access and refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyOTPRequest true "Email or userId, plus the code"
// @Success      200 {object} VerifyOTPResponse
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired code"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /auth/verify-otp [post]
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verify-otp request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusUnprocessableEntity)
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		respondError(w, "verification code is required", httputil.CodeCodeRequired, http.StatusUnprocessableEntity)
		return
	}

	var tokens *AuthTokens
	var err error

	switch {
	case strings.TrimSpace(req.Email) != "":
		tokens, err = h.service.VerifyOTP(r.Context(), req.Email, req.Code)
	case strings.TrimSpace(req.UserID) != "":
		userID, parseErr := uuid.Parse(strings.TrimSpace(req.UserID))
		if parseErr != nil {
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		tokens, err = h.service.VerifyOTPByUserID(r.Context(), userID, req.Code)
	default:
		respondError(w, "email or userId is required", httputil.CodeEmailRequired, http.StatusUnprocessableEntity)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			logger.Warn("otp verification failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
		case errors.Is(err, ErrInvalidCode):
			logger.Warn("otp verification failed: invalid code")
			respondError(w, "invalid or expired verification code", httputil.CodeInvalidCode, http.StatusBadRequest)
		default:
			logger.Error("otp verification failed: internal error", "error", err.Error())
			respondError(w, "failed to verify code", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("otp verified, tokens issued")

	respondJSON(w, VerifyOTPResponse{
		Message:    "verification successful",
		AuthTokens: *tokens,
	}, http.StatusOK)
}

// Refresh handles access token refresh with rotation
// @Summary      Refresh tokens
// @Description  Exchange a valid refresh token for a new access and refresh token pair. The old refresh token is invalidated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      200 {object} AuthTokens
// @Failure      422 {object} httputil.ErrorResponse "Missing refresh token"
// @Failure      401 {object} httputil.ErrorResponse "Invalid, expired, or rotated refresh token"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusUnprocessableEntity)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenRequired):
			respondError(w, "refresh token required", httputil.CodeRefreshTokenRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken):
			logger.Warn("token refresh failed: invalid or expired token")
			respondError(w, "invalid or expired refresh token", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
		default:
			logger.Error("token refresh failed: internal error", "error", err.Error())
			respondError(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("tokens refreshed successfully")

	respondJSON(w, tokens, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Email a password reset link. The response does not reveal whether the address is registered.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Reset email could not be delivered"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusUnprocessableEntity)
		return
	}

	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		// Continue despite error to avoid blocking legitimate requests
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", req.Email)
		respondError(w, "please wait before requesting another reset", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrInvalidEmailFormat):
			respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrNotificationFailed):
			logger.Error("forgot password failed: could not send reset email", "error", err.Error())
			respondError(w, "could not send the reset email, please try again later", httputil.CodeNotificationFailed, http.StatusInternalServerError)
		default:
			logger.Error("forgot password failed: internal error", "error", err.Error())
			respondError(w, "failed to process request", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	// Same body whether or not the email exists
	respondJSON(w, MessageResponse{
		Message: "if the email exists, a reset link has been sent",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Consume a reset token and set a new password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} MessageResponse
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusUnprocessableEntity)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrResetTokenRequired):
			respondError(w, err.Error(), httputil.CodeResetTokenRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrInvalidResetToken):
			logger.Warn("password reset failed: invalid or expired token")
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")

	respondJSON(w, MessageResponse{
		Message: "password updated successfully",
	}, http.StatusOK)
}

// ipLimited enforces the per-IP window for a purpose and writes the 429 if
// the caller is over it
func (h *Handler) ipLimited(w http.ResponseWriter, r *http.Request, ip, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	return false
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (behind proxy/load balancer)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip := r.RemoteAddr
	// RemoteAddr format is "IP:port", extract just the IP
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
