package ratelimit

import (
	"context"
	"sync"
	"time"
)

// janitorInterval is how often idle entries are swept.
const janitorInterval = 30 * time.Second

// entry is one key's window of admission timestamps.
type entry struct {
	stamps   []time.Time
	lastSeen time.Time
}

// MemoryStore keeps per-key windows in process memory. Entries idle
// longer than their window are evicted by a background janitor, bounding
// memory regardless of key cardinality.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	maxIdle time.Duration

	stop chan struct{}
	done chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose janitor evicts entries idle
// longer than maxIdle. maxIdle should be at least the limiter interval;
// zero falls back to DefaultInterval.
func NewMemoryStore(maxIdle time.Duration) *MemoryStore {
	if maxIdle <= 0 {
		maxIdle = DefaultInterval
	}
	s := &MemoryStore{
		entries: make(map[string]*entry),
		maxIdle: maxIdle,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Take implements Store.
func (s *MemoryStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.lastSeen = now

	// Lazy prune: drop timestamps that fell out of the window.
	cutoff := now.Add(-window)
	kept := e.stamps[:0]
	for _, ts := range e.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.stamps = kept

	if len(e.stamps) >= limit {
		retry := e.stamps[0].Add(window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: retry,
		}, nil
	}

	e.stamps = append(e.stamps, now)
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(e.stamps),
	}, nil
}

func (s *MemoryStore) janitor() {
	defer close(s.done)
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if now.Sub(e.lastSeen) > s.maxIdle {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	close(s.stop)
	<-s.done
	return nil
}
