package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwayn/go-auth-api/internal/user"
)

// In-memory fakes for the store interfaces, used across the service and
// handler tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, email, passwordHash string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Verified:     false,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users[u.ID] = u

	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.Verified = true
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) delete(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*Token)}
}

func (r *fakeTokenRepo) Issue(ctx context.Context, userID uuid.UUID, kind TokenKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for value, t := range r.tokens {
		if t.UserID == userID && t.Kind == kind {
			delete(r.tokens, value)
		}
	}

	value, err := generateRandomToken()
	if err != nil {
		return "", err
	}

	r.tokens[value] = &Token{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Value:     value,
		CreatedAt: time.Now(),
	}
	return value, nil
}

func (r *fakeTokenRepo) Lookup(ctx context.Context, token string) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTokenRepo) Consume(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *fakeTokenRepo) PurgeAllForUser(ctx context.Context, userID uuid.UUID, kind TokenKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for value, t := range r.tokens {
		if t.UserID == userID && t.Kind == kind {
			delete(r.tokens, value)
		}
	}
	return nil
}

// age backdates a token's creation time for staleness tests.
func (r *fakeTokenRepo) age(token string, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[token]; ok {
		t.CreatedAt = t.CreatedAt.Add(-by)
	}
}

func (r *fakeTokenRepo) count(userID uuid.UUID, kind TokenKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.Kind == kind {
			n++
		}
	}
	return n
}

// insert adds a raw record, bypassing the single-active invariant.
func (r *fakeTokenRepo) insert(t Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Value] = &t
}

type fakeStrikeRepo struct {
	mu      sync.Mutex
	strikes map[uuid.UUID][]time.Time
}

func newFakeStrikeRepo() *fakeStrikeRepo {
	return &fakeStrikeRepo{strikes: make(map[uuid.UUID][]time.Time)}
}

func (r *fakeStrikeRepo) Record(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strikes[userID] = append(r.strikes[userID], time.Now())
	return nil
}

func (r *fakeStrikeRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, at := range r.strikes[userID] {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

// backdate shifts all recorded strikes for a user into the past.
func (r *fakeStrikeRepo) backdate(userID uuid.UUID, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, at := range r.strikes[userID] {
		r.strikes[userID][i] = at.Add(-by)
	}
}

type notification struct {
	email string
	token string
}

// fakeNotifier records deliveries on channels so tests can wait for the
// fire-and-forget goroutines.
type fakeNotifier struct {
	verifications chan notification
	resets        chan notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		verifications: make(chan notification, 16),
		resets:        make(chan notification, 16),
	}
}

func (n *fakeNotifier) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	n.verifications <- notification{email: toEmail, token: token}
	return nil
}

func (n *fakeNotifier) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	n.resets <- notification{email: toEmail, token: token}
	return nil
}
