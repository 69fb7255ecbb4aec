package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/auth"
	"github.com/strom-dev/strom/pkg/observability"
	"github.com/strom-dev/strom/pkg/provider"
	"github.com/strom-dev/strom/pkg/provider/registry"
	"github.com/strom-dev/strom/pkg/ratelimit"
	"github.com/strom-dev/strom/pkg/usage"
)

// Engine orchestrates completions across registered providers.
type Engine struct {
	registry *registry.Registry
	limiter  *ratelimit.Limiter
	recorder usage.Recorder
	cfg      Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithRateLimiter attaches a sliding-window limiter keyed by the caller
// identity in the request context.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithUsageRecorder attaches a usage sink. Records are written without
// blocking or failing the caller's request.
func WithUsageRecorder(r usage.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New creates an Engine over reg. The registry must not be nil.
func New(reg *registry.Registry, cfg Config, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, fmt.Errorf("engine: registry must not be nil")
	}
	e := &Engine{
		registry: reg,
		recorder: usage.NopRecorder{},
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Complete performs a blocking completion against the named provider.
// An empty providerName resolves to the registry default.
func (e *Engine) Complete(ctx context.Context, providerName string, req *api.CompletionRequest) (*api.CompletionResult, error) {
	p, err := e.prepare(ctx, providerName, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.Complete(ctx, req)
	duration := time.Since(start)

	if err != nil {
		observability.CompletionsTotal.WithLabelValues(p.Name(), req.Model, "blocking", "error").Inc()
		observability.CompletionLatency.WithLabelValues(p.Name(), req.Model).Observe(duration.Seconds())
		return nil, err
	}

	observability.CompletionsTotal.WithLabelValues(p.Name(), req.Model, "blocking", "success").Inc()
	observability.CompletionLatency.WithLabelValues(p.Name(), req.Model).Observe(duration.Seconds())
	e.recordUsage(ctx, p.Name(), result, false)

	return result, nil
}

// StreamComplete starts a streaming completion against the named
// provider. An empty providerName resolves to the registry default.
// The returned channel delivers the provider's ordered event sequence
// and is closed after a terminal event.
func (e *Engine) StreamComplete(ctx context.Context, providerName string, req *api.CompletionRequest) (<-chan api.StreamEvent, error) {
	p, err := e.prepare(ctx, providerName, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	upstream, err := p.StreamComplete(ctx, req)
	if err != nil {
		observability.CompletionsTotal.WithLabelValues(p.Name(), req.Model, "stream", "error").Inc()
		return nil, err
	}

	out := make(chan api.StreamEvent, 16)
	go e.pumpStream(ctx, p.Name(), req.Model, start, upstream, out)
	return out, nil
}

// Models lists the models served by the named provider. An empty name
// resolves to the registry default.
func (e *Engine) Models(ctx context.Context, providerName string) ([]api.ModelInfo, error) {
	p, err := e.resolve(providerName)
	if err != nil {
		return nil, err
	}
	return p.AvailableModels(ctx)
}

// prepare runs the shared preamble: provider resolution, rate limiting,
// model defaulting, and validation.
func (e *Engine) prepare(ctx context.Context, providerName string, req *api.CompletionRequest) (provider.Provider, error) {
	p, err := e.resolve(providerName)
	if err != nil {
		return nil, err
	}

	if err := e.checkRateLimit(ctx); err != nil {
		return nil, err
	}

	if req.Model == "" {
		if e.cfg.DefaultModel == "" {
			return nil, api.NewInvalidRequestError("model", "model is required")
		}
		req.Model = e.cfg.DefaultModel
	}

	if apiErr := api.ValidateRequest(req, e.cfg.validation()); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := provider.ValidateRequestFor(p, req); apiErr != nil {
		return nil, apiErr
	}

	return p, nil
}

// resolve maps a provider name to a registered provider, falling back to
// the registry default for the empty name.
func (e *Engine) resolve(providerName string) (provider.Provider, error) {
	if providerName == "" {
		return e.registry.Default()
	}
	return e.registry.Get(providerName)
}

// checkRateLimit enforces the per-caller quota when a limiter is
// attached. The key is the authenticated identity in ctx; anonymous
// callers share one bucket.
func (e *Engine) checkRateLimit(ctx context.Context) error {
	if e.limiter == nil || e.cfg.RequestsPerWindow <= 0 {
		return nil
	}

	id := auth.IdentityFromContext(ctx)
	res, err := e.limiter.Check(ctx, id.RateLimitKey(), e.cfg.RequestsPerWindow)
	if err != nil {
		// A broken limiter store fails open.
		return nil
	}
	if !res.Allowed {
		observability.RateLimitRejectedTotal.WithLabelValues("engine").Inc()
		return api.NewRateLimitExceeded(res.RetryAfter)
	}
	return nil
}

// recordUsage writes a usage record for a finished completion. Failures
// are swallowed; accounting never fails a request.
func (e *Engine) recordUsage(ctx context.Context, providerName string, result *api.CompletionResult, streamed bool) {
	rec := usage.Record{
		CompletionID: result.ID,
		Provider:     providerName,
		Model:        result.Model,
		FinishReason: result.FinishReason,
		Streamed:     streamed,
		CreatedAt:    time.Now(),
	}
	if result.Usage != nil {
		rec.PromptTokens = result.Usage.PromptTokens
		rec.CompletionTokens = result.Usage.CompletionTokens
		rec.TotalTokens = result.Usage.TotalTokens

		observability.TokensTotal.WithLabelValues(providerName, result.Model, "input").Add(float64(result.Usage.PromptTokens))
		observability.TokensTotal.WithLabelValues(providerName, result.Model, "output").Add(float64(result.Usage.CompletionTokens))
	}

	// Recording survives caller cancellation; it describes work already
	// done.
	go func() {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := e.recorder.Record(recCtx, rec); err != nil {
			slog.Warn("usage recording failed",
				"completion_id", rec.CompletionID,
				"provider", rec.Provider,
				"error", err,
			)
		}
	}()
}
