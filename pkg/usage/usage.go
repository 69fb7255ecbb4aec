// Package usage defines the sink for per-completion usage records.
// Recording is a side effect of the completion path and must never block
// or fail a caller's request.
package usage

import (
	"context"
	"log/slog"
	"time"
)

// Record is one completed (or failed) completion's accounting entry.
type Record struct {
	CompletionID     string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	FinishReason     string
	Streamed         bool
	CreatedAt        time.Time
}

// Recorder persists usage records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	Close() error
}

// SlogRecorder writes records to the structured log. It is the default
// sink when no durable store is configured.
type SlogRecorder struct {
	logger *slog.Logger
}

var _ Recorder = (*SlogRecorder)(nil)

// NewSlogRecorder creates a recorder over logger. A nil logger uses the
// default.
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *SlogRecorder) Record(ctx context.Context, rec Record) error {
	r.logger.InfoContext(ctx, "completion usage",
		"completion_id", rec.CompletionID,
		"provider", rec.Provider,
		"model", rec.Model,
		"prompt_tokens", rec.PromptTokens,
		"completion_tokens", rec.CompletionTokens,
		"total_tokens", rec.TotalTokens,
		"finish_reason", rec.FinishReason,
		"streamed", rec.Streamed,
	)
	return nil
}

// Close implements Recorder.
func (r *SlogRecorder) Close() error {
	return nil
}

// NopRecorder discards every record.
type NopRecorder struct{}

var _ Recorder = (*NopRecorder)(nil)

func (NopRecorder) Record(ctx context.Context, rec Record) error { return nil }
func (NopRecorder) Close() error                                 { return nil }
