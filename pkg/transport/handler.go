package transport

import (
	"context"

	"github.com/strom-dev/strom/pkg/api"
)

// Completer is the contract between the transport layer and the
// completion engine. The provider argument selects a registered backend;
// empty means the default provider.
type Completer interface {
	// Complete performs a blocking completion round trip.
	Complete(ctx context.Context, provider string, req *api.CompletionRequest) (*api.CompletionResult, error)

	// StreamComplete starts a streaming completion. The returned channel
	// delivers an ordered event sequence ending in a terminal event and
	// is closed by the engine.
	StreamComplete(ctx context.Context, provider string, req *api.CompletionRequest) (<-chan api.StreamEvent, error)

	// Models lists the models served by the named provider.
	Models(ctx context.Context, provider string) ([]api.ModelInfo, error)
}

// ModelList is the JSON shape of the model listing endpoint.
type ModelList struct {
	Object string          `json:"object"`
	Data   []api.ModelInfo `json:"data"`
}
