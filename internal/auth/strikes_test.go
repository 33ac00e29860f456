package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStrikeTracker(t *testing.T) *StrikeTracker {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStrikeTracker(client)
}

func TestStrikeTracker_RecordAndCount(t *testing.T) {
	tracker := newTestStrikeTracker(t)
	ctx := context.Background()
	userID := uuid.New()

	count, err := tracker.CountSince(ctx, userID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.Record(ctx, userID))
	}

	count, err = tracker.CountSince(ctx, userID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestStrikeTracker_WindowExcludesOldStrikes(t *testing.T) {
	tracker := newTestStrikeTracker(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, tracker.Record(ctx, userID))
	require.NoError(t, tracker.Record(ctx, userID))

	// A window starting after the strikes were recorded sees none of them.
	count, err := tracker.CountSince(ctx, userID, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStrikeTracker_UsersIndependent(t *testing.T) {
	tracker := newTestStrikeTracker(t)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	require.NoError(t, tracker.Record(ctx, first))

	count, err := tracker.CountSince(ctx, second, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
