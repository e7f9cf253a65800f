package debounce

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

func TestWrap_CollapsesBurst(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)

	var calls atomic.Int32
	var firedAt atomic.Int64
	start := clock.Now()
	fn := Wrap(func() {
		calls.Add(1)
		firedAt.Store(int64(clock.Now().Sub(start)))
	}, 10*time.Millisecond, WithClock(clock))

	fn() // t=0
	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	fn() // t=5

	// t=10: the first call would have fired here had it not been cancelled.
	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(0), calls.Load())

	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, int64(15*time.Millisecond), firedAt.Load())
}

func TestWrap_IndependentSlots(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)

	var a, b atomic.Int32
	fa := Wrap(func() { a.Add(1) }, 10*time.Millisecond, WithClock(clock))
	fb := Wrap(func() { b.Add(1) }, 10*time.Millisecond, WithClock(clock))

	fa()
	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	fb()

	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(1), a.Load())
	require.Equal(t, int32(0), b.Load())

	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(1), a.Load())
	require.Equal(t, int32(1), b.Load())
}

func TestWrap_FiresOncePerSettlingPeriod(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)

	var calls atomic.Int32
	fn := Wrap(func() { calls.Add(1) }, 10*time.Millisecond, WithClock(clock))

	fn()
	clock.Advance(10 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(1), calls.Load())

	fn()
	clock.Advance(10 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(2), calls.Load())
}

func TestDo_SharedSlotLastCallWins(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	prev := shared
	shared = &sharedSlot{clock: clock}
	t.Cleanup(func() { shared = prev })

	var first, second atomic.Int32
	Do(func() { first.Add(1) }, 10*time.Millisecond) // call site A, t=0
	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	Do(func() { second.Add(1) }, 10*time.Millisecond) // call site B, t=5

	clock.Advance(5 * time.Millisecond).MustWait(ctx)
	clock.Advance(5 * time.Millisecond).MustWait(ctx)

	require.Equal(t, int32(0), first.Load())
	require.Equal(t, int32(1), second.Load())
}

func TestDo_Cancel(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	prev := shared
	shared = &sharedSlot{clock: clock}
	t.Cleanup(func() { shared = prev })

	require.False(t, Cancel())

	var calls atomic.Int32
	Do(func() { calls.Add(1) }, 10*time.Millisecond)
	require.True(t, Cancel())

	clock.Advance(10 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(0), calls.Load())
}

func TestDebouncer_StopAndPending(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	d := New(10*time.Millisecond, WithClock(clock))

	require.False(t, d.Pending())
	require.False(t, d.Stop())

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	require.True(t, d.Pending())
	require.True(t, d.Stop())
	require.False(t, d.Pending())

	clock.Advance(10 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(0), calls.Load())

	d.Trigger(func() { calls.Add(1) })
	clock.Advance(10 * time.Millisecond).MustWait(ctx)
	require.Equal(t, int32(1), calls.Load())
	require.False(t, d.Pending())
}
