package admission

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultLimit      = 10
	DefaultWindow     = time.Minute
	DefaultMaxClients = 100_000
)

type clientWindow struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-process fixed-window counter keyed by client id.
//
// Windows live in an expiring LRU so the number of tracked clients stays
// bounded. An evicted client is treated like one that was never seen, which
// starts a fresh window exactly as an elapsed window would.
type FixedWindow struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxClients int
	now        func() time.Time
	windows    *expirable.LRU[string, *clientWindow]
}

type Option func(*FixedWindow)

// WithClock replaces time.Now. Tests use it to step through windows.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithMaxClients bounds the number of tracked client windows.
func WithMaxClients(n int) Option {
	return func(f *FixedWindow) {
		if n > 0 {
			f.maxClients = n
		}
	}
}

// NewFixedWindow allows limit requests per window for every client.
// Non-positive values fall back to 10 requests per minute.
func NewFixedWindow(limit int, window time.Duration, opts ...Option) *FixedWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	f := &FixedWindow{
		limit:      limit,
		window:     window,
		maxClients: DefaultMaxClients,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.windows = expirable.NewLRU[string, *clientWindow](f.maxClients, nil, window)
	return f
}

func (f *FixedWindow) Limit() int            { return f.limit }
func (f *FixedWindow) Window() time.Duration { return f.window }

// Check counts one request for clientID.
func (f *FixedWindow) Check(_ context.Context, clientID string) (Decision, error) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.windows.Get(clientID)
	if !ok || now.After(w.resetAt) {
		w = &clientWindow{count: 1, resetAt: now.Add(f.window)}
		f.windows.Add(clientID, w)
		return f.decide(true, w, now), nil
	}
	if w.count < f.limit {
		w.count++
		return f.decide(true, w, now), nil
	}
	return f.decide(false, w, now), nil
}

func (f *FixedWindow) decide(allowed bool, w *clientWindow, now time.Time) Decision {
	d := Decision{
		Allowed: allowed,
		Limit:   f.limit,
		ResetAt: w.resetAt,
	}
	if allowed {
		d.Remaining = f.limit - w.count
		return d
	}
	if wait := w.resetAt.Sub(now); wait > 0 {
		d.RetryAfter = wait
	}
	return d
}

// Snapshot reports the current window of clientID without counting a request.
func (f *FixedWindow) Snapshot(clientID string) (count int, resetAt time.Time, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows.Peek(clientID)
	if !ok {
		return 0, time.Time{}, false
	}
	return w.count, w.resetAt, true
}

// Len returns the number of tracked clients.
func (f *FixedWindow) Len() int {
	return f.windows.Len()
}
