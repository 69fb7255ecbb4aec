// Package anthropic implements the provider contract for the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/debug"
	"github.com/strom-dev/strom/pkg/provider"
)

const providerName = "anthropic"

// apiVersion is the anthropic-version header value pinned by this adapter.
const apiVersion = "2023-06-01"

// Config holds adapter configuration.
type Config struct {
	// BaseURL is the backend root. Defaults to "https://api.anthropic.com".
	BaseURL string

	// APIKey is sent as the x-api-key header.
	APIKey string

	// Headers are extra headers applied to every request.
	Headers map[string]string

	// Timeout applies to non-streaming requests. Defaults to 120s.
	// Streaming requests rely on context cancellation instead.
	Timeout time.Duration
}

// knownModels is the static model catalog. The Messages API has no
// discovery endpoint compatible with the listing contract, so the
// catalog ships with the adapter.
var knownModels = []api.ModelInfo{
	{ID: "claude-3-5-haiku-latest", OwnedBy: "anthropic"},
	{ID: "claude-3-5-sonnet-latest", OwnedBy: "anthropic"},
	{ID: "claude-3-7-sonnet-latest", OwnedBy: "anthropic"},
	{ID: "claude-3-opus-latest", OwnedBy: "anthropic"},
}

// claudeContextWindow is the token window shared by current claude models.
const claudeContextWindow = 200000

// Client is an Anthropic Messages API provider adapter.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a Client. APIKey is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: APIKey is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return providerName
}

// SupportsTools reports tool-calling capability.
func (c *Client) SupportsTools() bool {
	return true
}

// ContextWindowSize returns the token window for model. All current
// claude families share one window; anything else falls back to the
// contract default.
func (c *Client) ContextWindowSize(model string) int {
	if strings.HasPrefix(model, "claude") {
		return claudeContextWindow
	}
	return provider.DefaultContextWindow
}

// AvailableModels returns the static catalog.
func (c *Client) AvailableModels(ctx context.Context) ([]api.ModelInfo, error) {
	models := make([]api.ModelInfo, len(knownModels))
	copy(models, knownModels)
	return models, nil
}

// Complete performs a single blocking round trip.
func (c *Client) Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResult, error) {
	reqCopy := *req
	reqCopy.Stream = false

	body, err := json.Marshal(translateRequest(&reqCopy))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	debug.Log("providers", "anthropic request", "model", reqCopy.Model, "stream", false)
	debug.Raw("providers", string(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq, false)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var parsed messagesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, api.NewBackendUnavailable(providerName,
			fmt.Errorf("decoding response: %w", err))
	}

	return translateResponse(&parsed), nil
}

// StreamComplete starts a streaming completion. The returned channel is
// closed after a terminal event. The HTTP client timeout is not applied:
// a stream may legitimately outlive any fixed timeout, so lifecycle
// control relies on ctx.
func (c *Client) StreamComplete(ctx context.Context, req *api.CompletionRequest) (<-chan api.StreamEvent, error) {
	reqCopy := *req
	reqCopy.Stream = true

	body, err := json.Marshal(translateRequest(&reqCopy))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	debug.Log("providers", "anthropic request", "model", reqCopy.Model, "stream", true)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq, true)

	streamClient := &http.Client{Transport: c.client.Transport}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	ch := make(chan api.StreamEvent, 16)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		decodeStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) setHeaders(req *http.Request, streaming bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
}
