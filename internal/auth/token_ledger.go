package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/jwayn/go-auth-api/internal/database"
)

var ErrTokenNotFound = errors.New("token not found")

// Ledger persists verification and reset tokens in Postgres. Both kinds share
// one table; Issue keeps at most one live row per (user, kind).
type Ledger struct {
	db *bun.DB

	// generate is a seam for tests; defaults to the crypto/rand generator.
	generate func() (string, error)
}

func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{db: db, generate: generateRandomToken}
}

// Issue atomically deletes any existing tokens of the given kind for the user,
// persists a fresh one, and returns its opaque value. Running the delete and
// insert in one transaction upholds the single-active-token invariant under
// concurrent requests.
func (l *Ledger) Issue(ctx context.Context, userID uuid.UUID, kind TokenKind) (string, error) {
	token, err := l.generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	err = l.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*database.AuthToken)(nil)).
			Where("user_id = ?", userID).
			Where("kind = ?", string(kind)).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete existing tokens: %w", err)
		}

		record := &database.AuthToken{
			UserID: userID,
			Kind:   string(kind),
			Token:  token,
		}
		if _, err := tx.NewInsert().
			Model(record).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert token: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue %s token: %w", kind, err)
	}

	return token, nil
}

// Lookup retrieves a token record by its opaque value.
func (l *Ledger) Lookup(ctx context.Context, token string) (*Token, error) {
	record := new(database.AuthToken)
	err := l.db.NewSelect().
		Model(record).
		Where("token = ?", token).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	return &Token{
		ID:        record.ID,
		UserID:    record.UserID,
		Kind:      TokenKind(record.Kind),
		Value:     record.Token,
		CreatedAt: record.CreatedAt,
	}, nil
}

// Consume deletes a token record. Deleting an absent token is a no-op, so
// consumption is idempotent.
func (l *Ledger) Consume(ctx context.Context, token string) error {
	_, err := l.db.NewDelete().
		Model((*database.AuthToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}

	return nil
}

// PurgeAllForUser removes every token of the given kind belonging to the user.
func (l *Ledger) PurgeAllForUser(ctx context.Context, userID uuid.UUID, kind TokenKind) error {
	_, err := l.db.NewDelete().
		Model((*database.AuthToken)(nil)).
		Where("user_id = ?", userID).
		Where("kind = ?", string(kind)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge %s tokens: %w", kind, err)
	}

	return nil
}
