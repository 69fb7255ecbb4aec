package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/strom-dev/strom/pkg/api"
)

// Result is the outcome of a routed tool invocation. Output holds the
// concatenated text content; IsError marks failures the tool itself
// reported, as opposed to transport errors.
type Result struct {
	CallID  string
	Output  string
	IsError bool
}

// Client wraps an MCP SDK client session for a single server. It handles
// connection lifecycle, tool discovery, and invocation routing.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu       sync.Mutex
	cached   []api.ToolDefinition
	resolved bool
}

// NewClient creates a Client for the given server configuration. Call
// Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the MCP connection, performing the protocol
// handshake.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport establishes the connection using the given
// transport. A nil transport is created from the server configuration;
// tests pass an in-memory transport.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "strom",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client injecting static headers and
// dynamically acquired credentials. Returns nil when neither is
// configured.
func (c *Client) buildHTTPClient() *http.Client {
	var provider TokenProvider
	if c.cfg.Auth.Type == "oauth_client_credentials" {
		provider = NewClientCredentials(
			c.cfg.Auth.TokenURL,
			c.cfg.Auth.ClientID,
			c.cfg.Auth.ClientSecret,
			c.cfg.Auth.Scopes,
		)
	}

	if len(c.cfg.Headers) == 0 && provider == nil {
		return nil
	}

	return &http.Client{
		Transport: &authTransport{
			base:     http.DefaultTransport,
			headers:  c.cfg.Headers,
			provider: provider,
		},
	}
}

// authTransport adds static headers and provider-acquired headers to
// every request. Provider headers win on conflict.
type authTransport struct {
	base     http.RoundTripper
	headers  map[string]string
	provider TokenProvider
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if t.provider != nil {
		dynamic, err := t.provider.Headers(req.Context())
		if err != nil {
			return nil, fmt.Errorf("getting auth headers: %w", err)
		}
		for k, v := range dynamic {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// Tools queries the server for its tools and caches the result.
// Subsequent calls return the cached definitions.
func (c *Client) Tools(ctx context.Context) ([]api.ToolDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return c.cached, nil
	}
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var defs []api.ToolDefinition
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		td, convErr := convertTool(tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		defs = append(defs, td)
	}

	c.cached = defs
	c.resolved = true
	return defs, nil
}

// Call executes a reconstructed tool invocation on the server. Tool-level
// failures come back as a Result with IsError set, not as an error.
func (c *Client) Call(ctx context.Context, inv api.ToolInvocationRequest) (*Result, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var args map[string]any
	if len(inv.Arguments) > 0 {
		if err := json.Unmarshal(inv.Arguments, &args); err != nil {
			return &Result{
				CallID:  inv.ID,
				Output:  fmt.Sprintf("invalid arguments JSON: %v", err),
				IsError: true,
			}, nil
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      inv.Name,
		Arguments: args,
	})
	if err != nil {
		return &Result{
			CallID:  inv.ID,
			Output:  fmt.Sprintf("MCP tool call error: %v", err),
			IsError: true,
		}, nil
	}

	return convertResult(inv.ID, result), nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func convertTool(t *mcp.Tool) (api.ToolDefinition, error) {
	var params json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return api.ToolDefinition{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		params = data
	}

	return api.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}, nil
}

func convertResult(callID string, result *mcp.CallToolResult) *Result {
	var output string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if output != "" {
				output += "\n"
			}
			output += tc.Text
		}
	}

	return &Result{
		CallID:  callID,
		Output:  output,
		IsError: result.IsError,
	}
}
