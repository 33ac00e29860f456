package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrExpiredSession = errors.New("session token has expired")
)

// SessionClaims is what a signed session token asserts to downstream
// consumers: identity plus verification state, with an absolute expiry.
type SessionClaims struct {
	UserID    string    `json:"user_id"` // UUID stored as string in the token
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
