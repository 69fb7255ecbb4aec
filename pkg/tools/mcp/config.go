package mcp

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name is the logical name for this server, used for logging and
	// for routing tool invocations.
	Name string `json:"name"`

	// Transport is the transport type: "sse" or "streamable-http".
	// Empty defaults to "streamable-http".
	Transport string `json:"transport"`

	// URL is the MCP server endpoint.
	URL string `json:"url"`

	// Headers are sent with every request, typically for API key or
	// bearer token authentication.
	Headers map[string]string `json:"headers,omitempty"`

	// Auth configures dynamic credential acquisition. Zero value means
	// header-only auth.
	Auth AuthConfig `json:"auth,omitempty"`
}

// AuthConfig configures dynamic authentication for an MCP server.
type AuthConfig struct {
	// Type selects the auth scheme. Supported: "oauth_client_credentials".
	// Empty disables dynamic auth.
	Type string `json:"type,omitempty"`

	TokenURL     string   `json:"token_url,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}
