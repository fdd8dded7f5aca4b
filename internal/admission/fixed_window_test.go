package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docchat/internal/tester"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFixedWindowAdmitsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	fw := NewFixedWindow(10, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		d, err := fw.Check(ctx, "1.2.3.4")
		tester.NoErr(t, err)
		tester.True(t, d.Allowed, fmt.Sprintf("request %d should be admitted", i))
		tester.Eq(t, d.Remaining, 10-i, fmt.Sprintf("remaining after request %d", i))
		tester.Eq(t, d.RetryAfter, time.Duration(0))
		clock.Advance(500 * time.Millisecond)
	}
}

func TestFixedWindowRejectsEleventh(t *testing.T) {
	clock := newFakeClock()
	fw := NewFixedWindow(10, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _ = fw.Check(ctx, "1.2.3.4")
	}
	for i := 0; i < 3; i++ {
		d, err := fw.Check(ctx, "1.2.3.4")
		tester.NoErr(t, err)
		tester.False(t, d.Allowed, "request beyond the limit must be rejected")
		tester.Eq(t, d.Remaining, 0)
		tester.True(t, errors.Is(d.Err(), ErrRejected), "rejected decision should map to ErrRejected")
	}

	count, _, ok := fw.Snapshot("1.2.3.4")
	tester.True(t, ok, "window should exist")
	tester.Eq(t, count, 10, "count must not exceed the limit")
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	fw := NewFixedWindow(10, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		clock.Advance(500 * time.Millisecond)
		d, _ := fw.Check(ctx, "1.2.3.4")
		tester.True(t, d.Allowed, "first ten requests within five seconds are admitted")
	}
	d, _ := fw.Check(ctx, "1.2.3.4")
	tester.False(t, d.Allowed, "eleventh request is rejected")

	clock.Advance(61 * time.Second)
	d, _ = fw.Check(ctx, "1.2.3.4")
	tester.True(t, d.Allowed, "request after the window elapses is admitted")
	tester.Eq(t, d.Remaining, 9)

	count, resetAt, _ := fw.Snapshot("1.2.3.4")
	tester.Eq(t, count, 1, "fresh window starts at one")
	tester.Eq(t, resetAt, clock.Now().Add(time.Minute))
}

func TestFixedWindowBoundaryIsInclusive(t *testing.T) {
	clock := newFakeClock()
	fw := NewFixedWindow(1, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	d, _ := fw.Check(ctx, "a")
	tester.True(t, d.Allowed)
	tester.Eq(t, d.Remaining, 0)

	// now == resetAt is still inside the window
	clock.Advance(time.Minute)
	d, _ = fw.Check(ctx, "a")
	tester.False(t, d.Allowed, "request exactly at resetAt is still counted in the old window")

	clock.Advance(time.Millisecond)
	d, _ = fw.Check(ctx, "a")
	tester.True(t, d.Allowed, "request after resetAt opens a new window")
}

func TestFixedWindowRetryAfter(t *testing.T) {
	clock := newFakeClock()
	fw := NewFixedWindow(2, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = fw.Check(ctx, "c")
	clock.Advance(20 * time.Second)
	_, _ = fw.Check(ctx, "c")
	clock.Advance(15 * time.Second)

	d, _ := fw.Check(ctx, "c")
	tester.False(t, d.Allowed)
	tester.Eq(t, d.RetryAfter, 25*time.Second)
	tester.Eq(t, d.Limit, 2)
}

func TestFixedWindowClientsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	fw := NewFixedWindow(1, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	d, _ := fw.Check(ctx, "a")
	tester.True(t, d.Allowed)
	d, _ = fw.Check(ctx, "a")
	tester.False(t, d.Allowed)
	d, _ = fw.Check(ctx, "b")
	tester.True(t, d.Allowed, "a different client has its own window")
}

func TestFixedWindowEvictsLeastRecentlyUsed(t *testing.T) {
	clock := newFakeClock()
	fw := NewFixedWindow(1, time.Minute, WithClock(clock.Now), WithMaxClients(2))
	ctx := context.Background()

	_, _ = fw.Check(ctx, "a")
	_, _ = fw.Check(ctx, "b")
	_, _ = fw.Check(ctx, "c")

	tester.Eq(t, fw.Len(), 2, "map stays within the configured bound")
	_, _, ok := fw.Snapshot("a")
	tester.False(t, ok, "oldest client should be evicted")
}

func TestFixedWindowDefaults(t *testing.T) {
	fw := NewFixedWindow(0, 0)
	tester.Eq(t, fw.Limit(), DefaultLimit)
	tester.Eq(t, fw.Window(), DefaultWindow)
}

func TestFixedWindowConcurrentChecksDoNotOverAdmit(t *testing.T) {
	fw := NewFixedWindow(10, time.Minute)
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := fw.Check(ctx, "shared")
			if err == nil && d.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	tester.Eq(t, admitted.Load(), int64(10), "exactly the limit is admitted under contention")
}
