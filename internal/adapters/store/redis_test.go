package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, zap.NewNop())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStoreFirstSightingReturnsNilPrior(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	prior, err := s.Record(ctx, "a@example.com", obsAt("A", "example.com", now))
	require.NoError(t, err)
	assert.Nil(t, prior)

	p, err := s.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(1), p.MessageCount)
	assert.True(t, p.FirstSeen.Equal(now))
	assert.Equal(t, []string{"A"}, p.DisplayNamesSeen)
	assert.Equal(t, []string{"example.com"}, p.ReplyToDomainsSeen)
}

func TestRedisStoreSecondSightingReturnsPrior(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	first := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Record(ctx, "a@example.com", obsAt("A", "x.com", first))
	require.NoError(t, err)

	prior, err := s.Record(ctx, "a@example.com", obsAt("B", "y.com", first.Add(time.Hour)))
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, int64(1), prior.MessageCount)
	assert.Equal(t, []string{"A"}, prior.DisplayNamesSeen)

	p, err := s.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, p.FirstSeen.Equal(first), "first_seen never changes")
	assert.Equal(t, int64(2), p.MessageCount)
	assert.ElementsMatch(t, []string{"A", "B"}, p.DisplayNamesSeen)
	assert.ElementsMatch(t, []string{"x.com", "y.com"}, p.ReplyToDomainsSeen)
}

func TestRedisStoreDuplicateObservationsDoNotGrowSets(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := s.Record(ctx, "a@example.com", obsAt("A", "x.com", now))
		require.NoError(t, err)
	}

	p, err := s.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.MessageCount)
	assert.Equal(t, []string{"A"}, p.DisplayNamesSeen)
	assert.Equal(t, []string{"x.com"}, p.ReplyToDomainsSeen)
}

func TestRedisStoreEmptyObservationFields(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, "b@example.com", obsAt("", "", time.Now().UTC()))
	require.NoError(t, err)
	_, err = s.Record(ctx, "b@example.com", obsAt("", "", time.Now().UTC()))
	require.NoError(t, err)

	p, err := s.Lookup(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.MessageCount)
	assert.Empty(t, p.DisplayNamesSeen)
}

func TestRedisStoreLookupUnknownSender(t *testing.T) {
	s := newTestRedisStore(t)
	p, err := s.Lookup(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, p)
}
