package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strom-dev/strom/pkg/api"
)

// Source aggregates tool definitions from multiple MCP servers and
// routes invocations to the server that provides each tool.
type Source struct {
	mu sync.RWMutex

	clients map[string]*Client

	// toolToServer maps tool name to the providing server name.
	toolToServer map[string]string
	resolved     bool
}

// NewSource creates a Source from server configurations. Call Connect
// before discovering tools.
func NewSource(cfgs []ServerConfig) *Source {
	clients := make(map[string]*Client, len(cfgs))
	for _, cfg := range cfgs {
		clients[cfg.Name] = NewClient(cfg)
	}
	return &Source{
		clients:      clients,
		toolToServer: make(map[string]string),
	}
}

// newSourceFromClients is the test seam for pre-connected clients.
func newSourceFromClients(clients map[string]*Client) *Source {
	return &Source{
		clients:      clients,
		toolToServer: make(map[string]string),
	}
}

// Connect establishes connections to all configured servers. A single
// unreachable server fails the whole call; partial tool catalogs are
// worse than a clean startup error.
func (s *Source) Connect(ctx context.Context) error {
	for name, client := range s.clients {
		if err := client.Connect(ctx); err != nil {
			return fmt.Errorf("MCP server %q: %w", name, err)
		}
	}
	return nil
}

// Tools returns all tools discovered across connected servers. The first
// call performs discovery and builds the routing table; duplicate tool
// names keep the first provider.
func (s *Source) Tools(ctx context.Context) ([]api.ToolDefinition, error) {
	if err := s.discover(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []api.ToolDefinition
	for _, client := range s.clients {
		defs, err := client.Tools(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, defs...)
	}
	return all, nil
}

// Provides reports whether any connected server offers the named tool.
func (s *Source) Provides(ctx context.Context, toolName string) bool {
	if err := s.discover(ctx); err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.toolToServer[toolName]
	return ok
}

// Call routes a tool invocation to the providing server.
func (s *Source) Call(ctx context.Context, inv api.ToolInvocationRequest) (*Result, error) {
	if err := s.discover(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	serverName, ok := s.toolToServer[inv.Name]
	client := s.clients[serverName]
	s.mu.RUnlock()

	if !ok {
		return &Result{
			CallID:  inv.ID,
			Output:  fmt.Sprintf("no MCP server provides tool %q", inv.Name),
			IsError: true,
		}, nil
	}

	return client.Call(ctx, inv)
}

// Close closes all server connections.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for name, client := range s.clients {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close MCP client", "server", name, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// discover builds the tool routing table once.
func (s *Source) discover(ctx context.Context) error {
	s.mu.RLock()
	done := s.resolved
	s.mu.RUnlock()
	if done {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return nil
	}

	for name, client := range s.clients {
		defs, err := client.Tools(ctx)
		if err != nil {
			return fmt.Errorf("discovering tools from %q: %w", name, err)
		}

		for _, td := range defs {
			if existing, dup := s.toolToServer[td.Name]; dup {
				slog.Warn("duplicate MCP tool name, keeping first provider",
					"tool", td.Name,
					"kept", existing,
					"ignored", name,
				)
				continue
			}
			s.toolToServer[td.Name] = name
		}

		slog.Info("discovered MCP tools", "server", name, "count", len(defs))
	}

	s.resolved = true
	return nil
}
