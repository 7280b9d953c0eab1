package reaper

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	swept   int64
	err     error
	cutoffs []time.Time
	reasons []string
}

func (f *fakeStore) SweepStaleJobs(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.reasons = append(f.reasons, reason)
	return f.swept, f.err
}

func TestSweepOnceUsesGracePeriodCutoff(t *testing.T) {
	store := &fakeStore{swept: 3}
	r := NewReaper(&Config{
		Logger:        slog.Default(),
		Store:         store,
		SweepInterval: time.Minute,
		GracePeriod:   15 * time.Minute,
	})

	before := time.Now().Add(-15 * time.Minute)
	err := r.SweepOnce(context.Background())
	after := time.Now().Add(-15 * time.Minute)
	require.NoError(t, err)

	require.Len(t, store.cutoffs, 1)
	cutoff := store.cutoffs[0]
	assert.False(t, cutoff.Before(before))
	assert.False(t, cutoff.After(after))
	assert.Equal(t, []string{"worker stopped responding"}, store.reasons)
}

func TestSweepOncePropagatesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	r := NewReaper(&Config{
		Logger:        slog.Default(),
		Store:         store,
		SweepInterval: time.Minute,
		GracePeriod:   time.Minute,
	})

	err := r.SweepOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	r := NewReaper(&Config{
		Logger:        slog.Default(),
		Store:         store,
		SweepInterval: 5 * time.Millisecond,
		GracePeriod:   time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after context cancel")
	}

	assert.NotEmpty(t, store.cutoffs, "reaper should have swept at least once while running")
}
