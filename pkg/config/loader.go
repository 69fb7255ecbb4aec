package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, STROM_CONFIG env, ./config.yaml, /etc/strom/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. STROM_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/strom/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("STROM_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/strom/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps STROM_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STROM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STROM_DEFAULT_MODEL"); v != "" {
		cfg.Engine.DefaultModel = v
	}
	if v := os.Getenv("STROM_REQUESTS_PER_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.RequestsPerWindow = n
		}
	}
	if v := os.Getenv("STROM_RATELIMIT_STORE"); v != "" {
		cfg.RateLimit.Store = v
	}
	if v := os.Getenv("STROM_RATELIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = d
		}
	}
	if v := os.Getenv("STROM_REDIS_ADDR"); v != "" {
		cfg.RateLimit.Redis.Addr = v
	}
	if v := os.Getenv("STROM_REDIS_PASSWORD"); v != "" {
		cfg.RateLimit.Redis.Password = v
	}
	if v := os.Getenv("STROM_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("STROM_USAGE_RECORDER"); v != "" {
		cfg.Usage.Recorder = v
	}
	if v := os.Getenv("STROM_POSTGRES_DSN"); v != "" {
		cfg.Usage.Postgres.DSN = v
	}

	// Single-provider shortcut for container deployments. A full
	// providers list still comes from the YAML file.
	if v := os.Getenv("STROM_PROVIDER"); v != "" {
		p := ProviderConfig{Type: v, Default: true}
		if u := os.Getenv("STROM_PROVIDER_URL"); u != "" {
			p.BaseURL = u
		}
		if k := os.Getenv("STROM_PROVIDER_API_KEY"); k != "" {
			p.APIKey = k
		}
		cfg.Providers = append(cfg.Providers, p)
	}

	// STROM_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("STROM_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	// STROM_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("STROM_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err == nil && len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]MCPServerConfig, error) {
	var servers []MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	for i := range cfg.Providers {
		if cfg.Providers[i].APIKeyFile != "" && cfg.Providers[i].APIKey == "" {
			val, err := readSecretFile(cfg.Providers[i].APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers[%d].api_key_file: %w", i, err)
			}
			cfg.Providers[i].APIKey = val
		}
	}

	if cfg.RateLimit.Redis.PasswordFile != "" && cfg.RateLimit.Redis.Password == "" {
		val, err := readSecretFile(cfg.RateLimit.Redis.PasswordFile)
		if err != nil {
			return fmt.Errorf("ratelimit.redis.password_file: %w", err)
		}
		cfg.RateLimit.Redis.Password = val
	}

	if cfg.Usage.Postgres.DSNFile != "" && cfg.Usage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Usage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("usage.postgres.dsn_file: %w", err)
		}
		cfg.Usage.Postgres.DSN = val
	}

	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	for i := range cfg.MCP.Servers {
		a := &cfg.MCP.Servers[i].Auth
		if a.ClientIDFile != "" && a.ClientID == "" {
			val, err := readSecretFile(a.ClientIDFile)
			if err != nil {
				return fmt.Errorf("mcp.servers[%d].auth.client_id_file: %w", i, err)
			}
			a.ClientID = val
		}
		if a.ClientSecretFile != "" && a.ClientSecret == "" {
			val, err := readSecretFile(a.ClientSecretFile)
			if err != nil {
				return fmt.Errorf("mcp.servers[%d].auth.client_secret_file: %w", i, err)
			}
			a.ClientSecret = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
