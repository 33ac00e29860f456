package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jwayn/go-auth-api/internal/httputil"
	"github.com/jwayn/go-auth-api/internal/logging"
	"github.com/jwayn/go-auth-api/internal/ratelimit"
	"github.com/jwayn/go-auth-api/internal/user"
)

// Handler contains the HTTP handlers for the authentication endpoints.
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

// CredentialsRequest carries an email/password pair for register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest carries a verification token.
type VerifyRequest struct {
	Token string `json:"token"`
}

// EmailRequest carries just an email, for reset requests and resends.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest carries a reset token and the replacement password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// SessionResponse returns a signed session token.
type SessionResponse struct {
	Token string `json:"token"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register handles user sign-up: validates credentials, creates the account,
// kicks off verification delivery and returns an unverified session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, "register") {
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	session, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists")
			respondError(w, "user already exists", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			respondError(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered successfully")
	respondJSON(w, SessionResponse{Token: session}, http.StatusOK)
}

// Login authenticates an email/password pair. Unknown email and wrong
// password produce the same response; lockout is reported distinctly.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, "login") {
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid user credentials", httputil.CodeInvalidCredentials, http.StatusForbidden)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid user credentials", httputil.CodeInvalidCredentials, http.StatusForbidden)
		case errors.Is(err, ErrLockedOut):
			logger.Warn("login failed: account locked out")
			respondError(w, "too many failed login attempts", httputil.CodeAccountLocked, http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in successfully")
	respondJSON(w, SessionResponse{Token: session}, http.StatusOK)
}

// VerifyEmail redeems a verification token and returns a verified session.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verification request body", "error", err.Error())
		respondError(w, "invalid verification token", httputil.CodeInvalidToken, http.StatusNotAcceptable)
		return
	}

	session, err := h.service.Verify(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			logger.Warn("email verification failed: invalid token")
			respondError(w, "invalid verification token", httputil.CodeInvalidToken, http.StatusNotAcceptable)
		case errors.Is(err, ErrStaleToken):
			logger.Warn("email verification failed: stale token")
			respondError(w, "verification token is stale", httputil.CodeStaleToken, http.StatusForbidden)
		case errors.Is(err, ErrUserInconsistency):
			logger.Error("email verification failed: token references missing user")
			respondError(w, "user in verification record does not exist", httputil.CodeInternalError, http.StatusInternalServerError)
		default:
			logger.Error("email verification failed: internal error", "error", err.Error())
			respondError(w, "failed to verify email", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("email verified successfully")
	respondJSON(w, SessionResponse{Token: session}, http.StatusOK)
}

// ResendVerification reissues a verification token for an unverified account.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, "resend-verification") {
		return
	}

	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid resend verification request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ResendVerification(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("resend verification failed: unknown email")
			respondError(w, "user does not exist", httputil.CodeUnknownEmail, http.StatusBadRequest)
		case errors.Is(err, ErrAlreadyVerified):
			logger.Warn("resend verification failed: already verified")
			respondError(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		default:
			logger.Error("resend verification failed: internal error", "error", err.Error())
			respondError(w, "failed to resend verification", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, MessageResponse{Message: "Verification record created."}, http.StatusOK)
}

// ForgotPassword creates a reset record for the given email. Issuing a new
// record invalidates any previously issued one.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, "password-reset") {
		return
	}

	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid password reset request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("password reset request failed: unknown email")
			respondError(w, "user does not exist", httputil.CodeUnknownEmail, http.StatusBadRequest)
		default:
			logger.Error("password reset request failed: internal error", "error", err.Error())
			respondError(w, "failed to create password reset record", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, MessageResponse{Message: "Password reset record created."}, http.StatusOK)
}

// ResetPassword redeems a reset token and replaces the user's password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			logger.Warn("password reset failed: invalid token")
			respondError(w, "password reset record does not exist", httputil.CodeInvalidToken, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		case errors.Is(err, ErrStaleToken):
			logger.Warn("password reset failed: stale token")
			respondError(w, "password reset record is stale", httputil.CodeStaleToken, http.StatusForbidden)
		case errors.Is(err, ErrUserInconsistency):
			logger.Error("password reset failed: token references missing user")
			respondError(w, "user from password reset record does not exist", httputil.CodeInternalError, http.StatusInternalServerError)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")
	respondJSON(w, MessageResponse{Message: "User's password has been updated."}, http.StatusOK)
}

// throttled enforces the per-IP fixed-window limit for an endpoint. A limiter
// failure is logged and the request is let through; throttling is additive to
// the per-account strike lockout, not a substitute for it.
func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	allowed, err := h.rateLimiter.Allow(r.Context(), purpose, ip)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if !allowed {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	return false
}

func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP, preferring proxy headers.
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
