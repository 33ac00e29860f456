package auth

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// TokenKind distinguishes the two classes of single-use tokens in the ledger.
type TokenKind string

const (
	TokenKindVerification TokenKind = "verification"
	TokenKindReset        TokenKind = "reset"
)

// Token is a live verification or reset record. Validity is a function of
// CreatedAt; the service enforces the staleness window at redemption time.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      TokenKind
	Value     string
	CreatedAt time.Time
}

// generateRandomToken creates a cryptographically secure opaque token.
// 32 random bytes encode to 43 URL-safe characters.
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
