// Package ratelimit bounds how many calls a single key may issue within
// a rolling time window.
package ratelimit

import (
	"context"
	"time"

	"github.com/strom-dev/strom/pkg/api"
)

// DefaultInterval is the rolling window applied when none is configured.
const DefaultInterval = time.Minute

// Result reports the outcome of one rate-limit check.
type Result struct {
	// Allowed is true when the call was admitted and its timestamp
	// recorded.
	Allowed bool

	// Limit is the maximum number of calls per window for this check.
	Limit int

	// Remaining is how many calls the key has left in the current window.
	Remaining int

	// RetryAfter is how long until the oldest in-window timestamp
	// expires. Zero when the call was admitted.
	RetryAfter time.Duration
}

// Store holds per-key windows of timestamps. Implementations must be
// safe for concurrent use.
type Store interface {
	// Take counts the timestamps for key newer than now-window. When the
	// count is below limit it records now and admits the call; otherwise
	// it reports how long until the oldest timestamp leaves the window.
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)

	Close() error
}

// Limiter applies a sliding window per key against a Store.
type Limiter struct {
	store    Store
	interval time.Duration
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithInterval sets the rolling window length.
func WithInterval(d time.Duration) Option {
	return func(l *Limiter) { l.interval = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter over store.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Interval returns the rolling window length.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Check admits or rejects one call for key. The returned error is non-nil
// only for store failures; a denied call is reported through
// Result.Allowed. Use Allow when a RateLimitExceeded error is wanted
// instead.
func (l *Limiter) Check(ctx context.Context, key string, limit int) (Result, error) {
	return l.store.Take(ctx, key, limit, l.interval, l.now())
}

// Allow wraps Check, turning a denial into a RateLimitExceeded error.
func (l *Limiter) Allow(ctx context.Context, key string, limit int) (Result, error) {
	res, err := l.Check(ctx, key, limit)
	if err != nil {
		return res, err
	}
	if !res.Allowed {
		return res, api.NewRateLimitExceeded(res.RetryAfter)
	}
	return res, nil
}

// Close releases the underlying store.
func (l *Limiter) Close() error {
	return l.store.Close()
}
