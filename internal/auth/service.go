package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jwayn/go-auth-api/internal/logging"
	"github.com/jwayn/go-auth-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLockedOut          = errors.New("too many failed login attempts")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrInvalidToken       = errors.New("invalid token")
	ErrStaleToken         = errors.New("token is stale")
	ErrAlreadyVerified    = errors.New("email already verified")

	// ErrUserInconsistency means a token references a user that no longer
	// resolves. Never expected; always surfaced as a server fault.
	ErrUserInconsistency = errors.New("token references a missing user")
)

const minPasswordLength = 8

// Service orchestrates the credential store, token ledger, strike tracker,
// hasher and session issuer into the user-facing auth flows.
type Service struct {
	users    UserRepository
	tokens   TokenRepository
	strikes  StrikeRepository
	hasher   PasswordHasher
	sessions TokenService
	notifier Notifier
	logger   *logging.Logger

	sessionDuration time.Duration
	tokenStaleness  time.Duration
	lockoutWindow   time.Duration
	maxStrikes      int64
}

func NewService(
	users UserRepository,
	tokens TokenRepository,
	strikes StrikeRepository,
	hasher PasswordHasher,
	sessions TokenService,
	notifier Notifier,
	logger *logging.Logger,
	sessionDuration time.Duration,
	tokenStaleness time.Duration,
	lockoutWindow time.Duration,
	maxStrikes int,
) *Service {
	return &Service{
		users:           users,
		tokens:          tokens,
		strikes:         strikes,
		hasher:          hasher,
		sessions:        sessions,
		notifier:        notifier,
		logger:          logger,
		sessionDuration: sessionDuration,
		tokenStaleness:  tokenStaleness,
		lockoutWindow:   lockoutWindow,
		maxStrikes:      int64(maxStrikes),
	}
}

// Register creates a new account, issues a verification token and returns a
// session token with verified=false. Format validation runs before the
// duplicate-email check so that malformed input cannot be used to probe which
// addresses are registered.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}

	// Pre-check for a friendlier failure; the store's unique constraint is
	// authoritative under races.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return "", user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return "", fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return "", user.ErrDuplicateEmail
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(ctx, newUser.ID, TokenKindVerification)
	if err != nil {
		// User row already exists at this point; not rolled back.
		return "", fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.notifyVerification(newUser.Email, token)

	session, err := s.sessions.CreateToken(newUser.ID, newUser.Email, false, s.sessionDuration)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}

	return session, nil
}

// Login authenticates a user and returns a session token carrying the user's
// current verification state. Unknown email and wrong password are
// indistinguishable to the caller; lockout is a distinct failure and is
// evaluated before the hash comparison.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	since := time.Now().Add(-s.lockoutWindow)
	count, err := s.strikes.CountSince(ctx, existing.ID, since)
	if err != nil {
		return "", fmt.Errorf("failed to count login strikes: %w", err)
	}
	if count >= s.maxStrikes {
		return "", ErrLockedOut
	}

	if !s.hasher.Verify(existing.PasswordHash, password) {
		if err := s.strikes.Record(ctx, existing.ID); err != nil {
			return "", fmt.Errorf("failed to record login strike: %w", err)
		}
		return "", ErrInvalidCredentials
	}

	session, err := s.sessions.CreateToken(existing.ID, existing.Email, existing.Verified, s.sessionDuration)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}

	return session, nil
}

// Verify redeems a verification token, marks the owning user verified,
// consumes the token and returns a session token with verified=true.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	record, err := s.tokens.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to look up verification token: %w", err)
	}
	if record.Kind != TokenKindVerification {
		return "", ErrInvalidToken
	}

	owner, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrUserInconsistency
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if s.isStale(record.CreatedAt) {
		return "", ErrStaleToken
	}

	if err := s.users.MarkVerified(ctx, owner.ID); err != nil {
		return "", fmt.Errorf("failed to mark user as verified: %w", err)
	}

	if err := s.tokens.Consume(ctx, token); err != nil {
		return "", fmt.Errorf("failed to consume verification token: %w", err)
	}

	session, err := s.sessions.CreateToken(owner.ID, owner.Email, true, s.sessionDuration)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}

	return session, nil
}

// ResendVerification reissues a verification token for an unverified account.
// The ledger invalidates any previously issued token.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existing.Verified {
		return ErrAlreadyVerified
	}

	token, err := s.tokens.Issue(ctx, existing.ID, TokenKindVerification)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.notifyVerification(existing.Email, token)

	return nil
}

// RequestPasswordReset issues a reset token for the user. The ledger's
// single-active-record invariant means repeated requests never accumulate
// usable tokens; only the newest one redeems.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.tokens.Issue(ctx, existing.ID, TokenKindReset)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	s.notifyPasswordReset(existing.Email, token)

	return nil
}

// ResetPassword redeems a reset token and replaces the user's password hash.
// All reset tokens for the user are purged afterwards, including ones never
// used. No session is issued; the caller must log in again.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	record, err := s.tokens.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if record.Kind != TokenKindReset {
		return ErrInvalidToken
	}

	if s.isStale(record.CreatedAt) {
		return ErrStaleToken
	}

	owner, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserInconsistency
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, owner.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.tokens.PurgeAllForUser(ctx, owner.ID, TokenKindReset); err != nil {
		return fmt.Errorf("failed to purge reset tokens: %w", err)
	}

	return nil
}

// isStale reports whether a token created at the given time has outlived the
// staleness window. A token aged exactly the window is still valid.
func (s *Service) isStale(createdAt time.Time) bool {
	return time.Since(createdAt) > s.tokenStaleness
}

// notifyVerification delivers the verification token in a goroutine. Delivery
// failure never blocks or fails the owning flow.
func (s *Service) notifyVerification(email, token string) {
	go func() {
		if err := s.notifier.SendVerificationEmail(context.Background(), email, token); err != nil {
			s.logger.Warn("failed to send verification email", "email", email, "error", err)
		}
	}()
}

// notifyPasswordReset delivers the reset token in a goroutine.
func (s *Service) notifyPasswordReset(email, token string) {
	go func() {
		if err := s.notifier.SendPasswordResetEmail(context.Background(), email, token); err != nil {
			s.logger.Warn("failed to send password reset email", "email", email, "error", err)
		}
	}()
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmailFormat
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordRequired
	}
	if len(strings.TrimSpace(password)) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
