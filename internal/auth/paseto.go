package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoService is the alternative session backend, using PASETO v4.local
// (symmetric encryption with XChaCha20-Poly1305).
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{symmetricKey: key}, nil
}

// CreateToken generates a new PASETO v4.local token with the session claims.
func (s *PasetoService) CreateToken(userID uuid.UUID, email string, verified bool, duration time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(duration))
	token.SetString("user_id", userID.String())
	token.SetString("email", email)
	if err := token.Set("verified", verified); err != nil {
		return "", fmt.Errorf("failed to set verified claim: %w", err)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken validates a PASETO v4.local token and returns the claims.
func (s *PasetoService) VerifyToken(tokenStr string) (*SessionClaims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		// The parser checks expiration by default; distinguish expired from invalid
		if errors.Is(err, &paseto.RuleError{}) {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}

	userID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidSession
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidSession
	}

	var verified bool
	if err := token.Get("verified", &verified); err != nil {
		return nil, ErrInvalidSession
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidSession
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidSession
	}

	return &SessionClaims{
		UserID:    userID,
		Email:     email,
		Verified:  verified,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
