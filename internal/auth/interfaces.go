package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwayn/go-auth-api/internal/user"
)

// UserRepository is the credential store contract. The bun implementation
// lives in the user package; tests substitute an in-memory fake.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// TokenRepository is the ledger for verification and reset tokens. Issue must
// atomically replace any live token of the same kind for the user.
type TokenRepository interface {
	Issue(ctx context.Context, userID uuid.UUID, kind TokenKind) (string, error)
	Lookup(ctx context.Context, token string) (*Token, error)
	Consume(ctx context.Context, token string) error
	PurgeAllForUser(ctx context.Context, userID uuid.UUID, kind TokenKind) error
}

// StrikeRepository records failed-login events and counts them over a
// trailing window.
type StrikeRepository interface {
	Record(ctx context.Context, userID uuid.UUID) error
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

// PasswordHasher wraps a salted one-way password hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenService defines the interface for session token creation and validation.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, verified bool, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*SessionClaims, error)
}

// Notifier delivers verification and reset tokens to users. Calls are
// fire-and-forget from the service's point of view; delivery failures must
// never fail the owning flow.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}
