// Package memory provides an in-memory usage recorder, used in tests and
// in deployments that only need process-local accounting.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/strom-dev/strom/pkg/usage"
)

// Recorder accumulates records in memory, oldest first, capped at a
// fixed number of entries.
type Recorder struct {
	mu      sync.Mutex
	records []usage.Record
	max     int
}

var _ usage.Recorder = (*Recorder)(nil)

// DefaultMaxRecords bounds the in-memory record list.
const DefaultMaxRecords = 10000

// New creates a Recorder. max <= 0 uses DefaultMaxRecords.
func New(max int) *Recorder {
	if max <= 0 {
		max = DefaultMaxRecords
	}
	return &Recorder{max: max}
}

// Record implements usage.Recorder. When full, the oldest entry is
// dropped.
func (r *Recorder) Record(ctx context.Context, rec usage.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) >= r.max {
		r.records = r.records[1:]
	}
	r.records = append(r.records, rec)
	return nil
}

// Records returns a copy of the accumulated records.
func (r *Recorder) Records() []usage.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]usage.Record, len(r.records))
	copy(out, r.records)
	return out
}

// TotalTokens sums total token counts across all records for provider.
// An empty provider sums everything.
func (r *Recorder) TotalTokens(provider string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum int
	for _, rec := range r.records {
		if provider == "" || rec.Provider == provider {
			sum += rec.TotalTokens
		}
	}
	return sum
}

// Close implements usage.Recorder.
func (r *Recorder) Close() error {
	return nil
}
