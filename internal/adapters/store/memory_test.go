package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

func obsAt(name, domain string, at time.Time) core.Observation {
	return core.Observation{DisplayName: name, ReplyToDomain: domain, SeenAt: at}
}

func TestMemoryStoreFirstSightingReturnsNilPrior(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	now := time.Now()

	prior, err := s.Record(context.Background(), "a@example.com", obsAt("A", "example.com", now))
	require.NoError(t, err)
	assert.Nil(t, prior)

	p, err := s.Lookup(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(1), p.MessageCount)
	assert.Equal(t, now, p.FirstSeen)
	assert.Equal(t, []string{"A"}, p.DisplayNamesSeen)
}

func TestMemoryStoreProfileIsMonotonic(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
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
	assert.Equal(t, first, p.FirstSeen, "first_seen never changes")
	assert.Equal(t, int64(2), p.MessageCount)
	assert.ElementsMatch(t, []string{"A", "B"}, p.DisplayNamesSeen)
	assert.ElementsMatch(t, []string{"x.com", "y.com"}, p.ReplyToDomainsSeen)

	// Re-observing known values does not grow the sets.
	_, err = s.Record(ctx, "a@example.com", obsAt("A", "x.com", first.Add(2*time.Hour)))
	require.NoError(t, err)
	p, err = s.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, p.DisplayNamesSeen, 2)
	assert.Len(t, p.ReplyToDomainsSeen, 2)
}

func TestMemoryStoreNewSenderObservedExactlyOnceUnderConcurrency(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	const goroutines = 64
	var nilPriors atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prior, err := s.Record(ctx, "race@example.com", obsAt("R", "", time.Now()))
			if assert.NoError(t, err) && prior == nil {
				nilPriors.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), nilPriors.Load(), "exactly one caller sees the sender as new")

	p, err := s.Lookup(ctx, "race@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines), p.MessageCount)
}

func TestMemoryStoreLookupUnknownSender(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	p, err := s.Lookup(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemoryStoreSnapshotsAreIsolated(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	_, err := s.Record(ctx, "a@example.com", obsAt("A", "", time.Now()))
	require.NoError(t, err)

	p1, err := s.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	p1.DisplayNamesSeen[0] = "mutated"

	p2, err := s.Lookup(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, p2.DisplayNamesSeen)
}
