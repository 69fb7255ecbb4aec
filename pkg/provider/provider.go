// Package provider defines the contract every LLM backend adapter
// implements, plus the capability checking performed before an adapter is
// admitted to the registry.
package provider

import (
	"context"

	"github.com/strom-dev/strom/pkg/api"
)

// DefaultContextWindow is the conservative fallback returned for models
// an adapter does not recognize.
const DefaultContextWindow = 4096

// Provider abstracts one LLM backend. Adapters handle their own wire
// protocol internally and surface only the unified event model.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the stable identifier used as the registry key.
	Name() string

	// AvailableModels lists the models this backend serves. Adapters
	// without a discovery endpoint return a static list without a
	// network call; adapters with one fail with BackendUnavailable when
	// the backend cannot be reached.
	AvailableModels(ctx context.Context) ([]api.ModelInfo, error)

	// SupportsTools reports whether the backend accepts tool definitions.
	SupportsTools() bool

	// ContextWindowSize returns the token window for the model, or a
	// conservative default for unrecognized models. It never fails.
	ContextWindowSize(model string) int

	// Complete performs a single blocking round trip.
	Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResult, error)

	// StreamComplete starts a streaming completion. The returned channel
	// delivers a lazy, finite, non-restartable event sequence and is
	// closed by the adapter after a terminal event. Cancelling ctx
	// terminates the sequence with a done or error event; consumers
	// never block on a closing event that does not arrive.
	StreamComplete(ctx context.Context, req *api.CompletionRequest) (<-chan api.StreamEvent, error)

	// Close releases adapter resources (HTTP clients, connections).
	Close() error
}
