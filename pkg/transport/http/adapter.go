package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/transport"
)

// Adapter serves the completion API over HTTP. It routes requests to the
// completer and serializes results as JSON bodies or SSE streams.
type Adapter struct {
	completer transport.Completer
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// Ready is consulted by the readiness endpoint. Nil means always
	// ready.
	Ready func() error
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter backed by the given completer.
func NewAdapter(completer transport.Completer, cfg Config) *Adapter {
	a := &Adapter{
		completer: completer,
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("POST /v1/completions", a.handleCompletion)
	a.mux.HandleFunc("GET /v1/models", a.handleModels)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)

	return a
}

// Handler returns the http.Handler for this adapter. Middleware is
// applied by the server, not here, so tests can exercise the bare
// routes.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleCompletion handles POST /v1/completions. The body is either a
// canonical request object or a legacy bare message array; the stream
// field (or an SSE Accept header) selects the output mode. The provider
// query parameter picks a registered backend, defaulting when absent.
func (a *Adapter) handleCompletion(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		transport.WriteErrorStatus(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorStatus(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteError(w, api.NewInvalidRequestError("body", "reading request body: "+err.Error()))
		return
	}

	req, err := api.NormalizeLegacyRequest(body)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	provider := r.URL.Query().Get("provider")

	if req.Stream || acceptsSSE(r) {
		a.streamCompletion(w, r, provider, req)
		return
	}

	result, err := a.completer.Complete(r.Context(), provider, req)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// streamCompletion forwards engine events to the client as SSE. Errors
// before the first event become a JSON error body; after that the error
// travels as a terminal error event on the open stream.
func (a *Adapter) streamCompletion(w http.ResponseWriter, r *http.Request, provider string, req *api.CompletionRequest) {
	req.Stream = true

	events, err := a.completer.StreamComplete(r.Context(), provider, req)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	sse := newEventWriter(w)
	for ev := range events {
		if err := sse.WriteEvent(ev); err != nil {
			// Client went away; the request context cancellation stops
			// the engine, just drain what remains.
			for range events {
			}
			return
		}
	}
}

// handleModels handles GET /v1/models.
func (a *Adapter) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := a.completer.Models(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transport.ModelList{Object: "list", Data: models})
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.config.Ready != nil {
		if err := a.config.Ready(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func acceptsSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
