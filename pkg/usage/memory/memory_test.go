package memory

import (
	"context"
	"testing"

	"github.com/strom-dev/strom/pkg/usage"
)

func TestRecorderAccumulates(t *testing.T) {
	r := New(0)
	ctx := context.Background()

	r.Record(ctx, usage.Record{Provider: "openai", TotalTokens: 10})
	r.Record(ctx, usage.Record{Provider: "anthropic", TotalTokens: 5})
	r.Record(ctx, usage.Record{Provider: "openai", TotalTokens: 3})

	records := r.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be filled in")
	}
	if got := r.TotalTokens("openai"); got != 13 {
		t.Errorf("openai total: got %d, want 13", got)
	}
	if got := r.TotalTokens(""); got != 18 {
		t.Errorf("grand total: got %d, want 18", got)
	}
}

func TestRecorderCapsEntries(t *testing.T) {
	r := New(2)
	ctx := context.Background()

	r.Record(ctx, usage.Record{CompletionID: "a"})
	r.Record(ctx, usage.Record{CompletionID: "b"})
	r.Record(ctx, usage.Record{CompletionID: "c"})

	records := r.Records()
	if len(records) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(records))
	}
	if records[0].CompletionID != "b" || records[1].CompletionID != "c" {
		t.Errorf("expected oldest dropped, got %+v", records)
	}
}
