package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// strikeRetention bounds how long strike entries are kept. Retention is a
// storage concern only; correctness comes from window-scoped counting, so the
// retention just has to exceed any lockout window in use.
const strikeRetention = 24 * time.Hour

// StrikeTracker records failed-login events in a Redis sorted set per user,
// scored by timestamp. Entries are append-only and decay out of relevance as
// they fall outside the counting window.
type StrikeTracker struct {
	client *redis.Client
}

func NewStrikeTracker(client *redis.Client) *StrikeTracker {
	return &StrikeTracker{client: client}
}

func strikeKey(userID uuid.UUID) string {
	return "strikes:" + userID.String()
}

// Record appends a strike at the current time.
func (t *StrikeTracker) Record(ctx context.Context, userID uuid.UUID) error {
	key := strikeKey(userID)

	pipe := t.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, strikeRetention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record strike: %w", err)
	}

	return nil
}

// CountSince returns the number of strikes recorded at or after the given time.
func (t *StrikeTracker) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	count, err := t.client.ZCount(
		ctx,
		strikeKey(userID),
		strconv.FormatInt(since.UnixMilli(), 10),
		"+inf",
	).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count strikes: %w", err)
	}

	return count, nil
}
