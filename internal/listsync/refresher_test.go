package listsync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestRefresher_TicksTriggerRefresh(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	r := NewRefresher(time.Minute, clock, testLogger(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	r.Start(context.Background())
	defer r.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRefresher_PauseDropsTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	r := NewRefresher(time.Minute, clock, testLogger(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	r.Start(context.Background())
	defer r.Stop()

	clock.BlockUntil(1)
	r.Pause()
	clock.Advance(time.Minute)

	// The paused tick is dropped, not queued.
	require.Never(t, func() bool { return calls.Load() != 0 }, 100*time.Millisecond, 10*time.Millisecond)

	r.Resume()
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestRefresher_StopWaitsForLoopExit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRefresher(time.Minute, clock, testLogger(), func(ctx context.Context) error { return nil })

	r.Start(context.Background())
	r.Stop()

	// Stop is idempotent.
	r.Stop()
}

func TestRefresher_ZeroIntervalDisabled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRefresher(0, clock, testLogger(), func(ctx context.Context) error {
		t.Fatal("refresh must never run")
		return nil
	})

	r.Start(context.Background())
	r.Stop()
}
