// Package openaicompat implements the provider contract for OpenAI and
// OpenAI-compatible Chat Completions backends (vLLM, LiteLLM, xAI, and
// friends).
package openaicompat

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

// Config holds adapter configuration.
type Config struct {
	// Name overrides the provider identifier. Defaults to "openai".
	Name string

	// BaseURL is the backend root (e.g. "https://api.openai.com").
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Headers are extra headers applied to every request.
	Headers map[string]string

	// Timeout applies to non-streaming requests. Defaults to 120s.
	// Streaming requests rely on context cancellation instead.
	Timeout time.Duration
}

// contextWindows maps known model prefixes to their token windows,
// longest prefix first so "gpt-4o" wins over "gpt-4". Unrecognized
// models fall back to provider.DefaultContextWindow.
var contextWindows = []struct {
	prefix string
	window int
}{
	{"gpt-4-turbo", 128000},
	{"gpt-4o", 128000},
	{"gpt-4.1", 1047576},
	{"gpt-3.5", 16385},
	{"gpt-4", 8192},
	{"o1", 200000},
	{"o3", 200000},
}

// Client is an OpenAI-compatible provider adapter.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a Client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
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
	return c.cfg.Name
}

// SupportsTools reports tool-calling capability.
func (c *Client) SupportsTools() bool {
	return true
}

// ContextWindowSize returns the token window for model, matching by
// prefix so dated snapshots ("gpt-4o-2024-08-06") resolve to their family.
// The table is ordered, so overlapping prefixes resolve deterministically.
func (c *Client) ContextWindowSize(model string) int {
	for _, e := range contextWindows {
		if strings.HasPrefix(model, e.prefix) {
			return e.window
		}
	}
	return provider.DefaultContextWindow
}

// AvailableModels queries the backend's model discovery endpoint. Fails
// with BackendUnavailable when the backend cannot be reached.
func (c *Client) AvailableModels(ctx context.Context) ([]api.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("building models request: %w", err)
	}
	c.setHeaders(req, false)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, mapNetworkError(c.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(c.cfg.Name, resp)
	}

	var parsed chatModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, api.NewBackendUnavailable(c.cfg.Name,
			fmt.Errorf("decoding models response: %w", err))
	}

	models := make([]api.ModelInfo, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, api.ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy})
	}
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

	debug.Log("providers", "chat completion request",
		"provider", c.cfg.Name, "model", reqCopy.Model, "stream", false)
	debug.Raw("providers", string(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq, false)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(c.cfg.Name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(c.cfg.Name, httpResp)
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewBackendUnavailable(c.cfg.Name,
			fmt.Errorf("decoding response: %w", err))
	}

	return translateResponse(&chatResp), nil
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

	debug.Log("providers", "chat completion request",
		"provider", c.cfg.Name, "model", reqCopy.Model, "stream", true)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq, true)

	streamClient := &http.Client{Transport: c.client.Transport}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(c.cfg.Name, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, mapHTTPError(c.cfg.Name, httpResp)
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
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
}
