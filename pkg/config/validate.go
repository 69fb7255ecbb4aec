package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if len(c.Providers) == 0 {
		errs = append(errs, fmt.Errorf("at least one provider is required"))
	}

	defaults := 0
	seen := map[string]bool{}
	for i, p := range c.Providers {
		switch p.Type {
		case "anthropic", "openai":
			// valid
		default:
			errs = append(errs, fmt.Errorf("providers[%d].type must be \"anthropic\" or \"openai\", got %q", i, p.Type))
		}

		name := p.Name
		if name == "" {
			name = p.Type
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate provider name %q", i, name))
		}
		seen[name] = true

		if p.APIKey == "" && p.APIKeyFile == "" {
			errs = append(errs, fmt.Errorf("providers[%d].api_key or providers[%d].api_key_file is required", i, i))
		}
		if p.Default {
			defaults++
		}
	}
	if defaults > 1 {
		errs = append(errs, fmt.Errorf("at most one provider may set default: true, got %d", defaults))
	}

	switch c.RateLimit.Store {
	case "memory", "redis":
		// valid
	default:
		errs = append(errs, fmt.Errorf("ratelimit.store must be \"memory\" or \"redis\", got %q", c.RateLimit.Store))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("ratelimit.window must be > 0, got %s", c.RateLimit.Window))
	}
	if c.RateLimit.Store == "redis" && c.RateLimit.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("ratelimit.redis.addr is required when ratelimit.store is \"redis\""))
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys is required when auth.type is \"apikey\""))
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	switch c.Usage.Recorder {
	case "none", "log", "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("usage.recorder must be \"none\", \"log\", \"memory\", or \"postgres\", got %q", c.Usage.Recorder))
	}
	if c.Usage.Recorder == "postgres" {
		if c.Usage.Postgres.DSN == "" && c.Usage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("usage.postgres.dsn or usage.postgres.dsn_file is required when usage.recorder is \"postgres\""))
		}
	}

	for i, s := range c.MCP.Servers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch s.Transport {
		case "sse", "streamable-http", "":
			// valid, empty defaults to streamable-http
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, s.Transport))
		}
	}

	return errors.Join(errs...)
}
