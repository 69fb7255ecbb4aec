// Package config provides unified configuration for the strom gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (STROM_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the strom gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Providers     []ProviderConfig    `yaml:"providers"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
	Auth          AuthConfig          `yaml:"auth"`
	Usage         UsageConfig         `yaml:"usage"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `yaml:"port"`         // default: 8080
	ReadTimeout time.Duration `yaml:"read_timeout"` // default: 30s

	// WriteTimeout must cover the longest expected stream. default: 300s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// EngineConfig holds completion orchestration settings.
type EngineConfig struct {
	DefaultModel        string `yaml:"default_model"`         // applied when a request omits model
	RequestsPerWindow   int    `yaml:"requests_per_window"`   // 0 disables engine-level limiting
	RepairToolArguments bool   `yaml:"repair_tool_arguments"` // attempt repair of truncated tool JSON
}

// ProviderConfig describes one upstream completion backend.
type ProviderConfig struct {
	// Name is the registry key. Defaults to Type when omitted.
	Name string `yaml:"name"`

	// Type selects the adapter: "anthropic" or "openai".
	Type string `yaml:"type"`

	BaseURL    string            `yaml:"base_url"`
	APIKey     string            `yaml:"api_key"`
	APIKeyFile string            `yaml:"api_key_file"` // _file variant for api_key
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"` // blocking request timeout

	// Default marks this provider as the fallback when a request names
	// none. At most one provider may be marked.
	Default bool `yaml:"default"`
}

// RateLimitConfig holds sliding-window limiter settings.
type RateLimitConfig struct {
	// Store selects the backing store: "memory" or "redis".
	Store        string         `yaml:"store"`
	Window       time.Duration  `yaml:"window"` // default: 1m
	Redis        RedisConfig    `yaml:"redis"`
	Tiers        map[string]int `yaml:"tiers"`         // requests per window by tier name
	DefaultLimit int            `yaml:"default_limit"` // for unknown tiers, 0 = unlimited
}

// RedisConfig holds Redis connection settings for the rate limiter.
type RedisConfig struct {
	Addr         string `yaml:"addr"` // default: localhost:6379
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
	DB           int    `yaml:"db"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string   `yaml:"key"`
	KeyFile string   `yaml:"key_file"` // _file variant for key
	Subject string   `yaml:"subject"`
	Tier    string   `yaml:"tier"`
	Scopes  []string `yaml:"scopes"`
}

// JWTConfig holds JWT verification settings.
type JWTConfig struct {
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
	JWKSURL   string `yaml:"jwks_url"`
	UserClaim string `yaml:"user_claim"` // default: "sub"
	TierClaim string `yaml:"tier_claim"` // default: "tier"
}

// UsageConfig holds token accounting settings.
type UsageConfig struct {
	// Recorder selects the sink: "log", "memory", "postgres" or "none".
	Recorder string         `yaml:"recorder"`
	MaxSize  int            `yaml:"max_size"` // for memory recorder, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	Auth      MCPAuthConfig     `yaml:"auth"`
}

// MCPAuthConfig configures dynamic credential acquisition for an MCP
// server. The zero value means header-only auth.
type MCPAuthConfig struct {
	Type             string   `yaml:"type"` // "oauth_client_credentials"
	TokenURL         string   `yaml:"token_url"`
	ClientID         string   `yaml:"client_id"`
	ClientIDFile     string   `yaml:"client_id_file"`     // _file variant for client_id
	ClientSecret     string   `yaml:"client_secret"`
	ClientSecretFile string   `yaml:"client_secret_file"` // _file variant for client_secret
	Scopes           []string `yaml:"scopes"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Store:  "memory",
			Window: time.Minute,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Usage: UsageConfig{
			Recorder: "log",
			MaxSize:  10000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
