// Command strom runs the completion gateway.
//
// Configuration is loaded from a YAML file (-config flag, STROM_CONFIG
// env, ./config.yaml, /etc/strom/config.yaml) with STROM_* environment
// variable overrides. A local .env file is honored for development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/auth"
	"github.com/strom-dev/strom/pkg/auth/apikey"
	"github.com/strom-dev/strom/pkg/auth/jwt"
	"github.com/strom-dev/strom/pkg/auth/noop"
	"github.com/strom-dev/strom/pkg/config"
	"github.com/strom-dev/strom/pkg/debug"
	"github.com/strom-dev/strom/pkg/engine"
	"github.com/strom-dev/strom/pkg/provider"
	"github.com/strom-dev/strom/pkg/provider/anthropic"
	"github.com/strom-dev/strom/pkg/provider/openaicompat"
	"github.com/strom-dev/strom/pkg/provider/registry"
	"github.com/strom-dev/strom/pkg/ratelimit"
	"github.com/strom-dev/strom/pkg/tools/mcp"
	"github.com/strom-dev/strom/pkg/transport"
	transporthttp "github.com/strom-dev/strom/pkg/transport/http"
	"github.com/strom-dev/strom/pkg/usage"
	usagemem "github.com/strom-dev/strom/pkg/usage/memory"
	usagepg "github.com/strom-dev/strom/pkg/usage/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	debug.Init("", "")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()
	registry.Init(reg)

	limiter, err := buildLimiter(cfg)
	if err != nil {
		return err
	}
	defer limiter.Close()

	recorder, err := buildRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer recorder.Close()

	eng, err := engine.New(reg, engine.Config{
		DefaultModel:        cfg.Engine.DefaultModel,
		RequestsPerWindow:   cfg.Engine.RequestsPerWindow,
		RepairToolArguments: cfg.Engine.RepairToolArguments,
	},
		engine.WithRateLimiter(limiter),
		engine.WithUsageRecorder(recorder),
	)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	var completer transport.Completer = eng
	if len(cfg.MCP.Servers) > 0 {
		source, err := buildMCPSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer source.Close()
		completer = &toolSourcingCompleter{Completer: eng, source: source}
	}

	authMW := buildAuthMiddleware(cfg, limiter)

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	server := transporthttp.NewServer(completer,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithMiddleware(authMW),
		transporthttp.WithReadiness(func() error {
			if len(reg.Names()) == 0 {
				return fmt.Errorf("no providers registered")
			}
			return nil
		}),
	)

	slog.Info("gateway starting",
		"port", cfg.Server.Port,
		"providers", reg.Names(),
		"auth", cfg.Auth.Type,
		"ratelimit_store", cfg.RateLimit.Store,
		"usage_recorder", cfg.Usage.Recorder,
	)

	return server.ListenAndServe()
}

func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.New()

	hasDefault := false
	for _, pc := range cfg.Providers {
		hasDefault = hasDefault || pc.Default
	}

	for i, pc := range cfg.Providers {
		var (
			p   provider.Provider
			err error
		)
		switch pc.Type {
		case "anthropic":
			p, err = anthropic.New(anthropic.Config{
				BaseURL: pc.BaseURL,
				APIKey:  pc.APIKey,
				Headers: pc.Headers,
				Timeout: pc.Timeout,
			})
		case "openai":
			p, err = openaicompat.New(openaicompat.Config{
				Name:    pc.Name,
				BaseURL: pc.BaseURL,
				APIKey:  pc.APIKey,
				Headers: pc.Headers,
				Timeout: pc.Timeout,
			})
		default:
			err = fmt.Errorf("unknown provider type %q", pc.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}

		var opts []registry.RegisterOption
		if pc.Default || (!hasDefault && i == 0) {
			opts = append(opts, registry.AsDefault())
		}
		if err := reg.Register(p, opts...); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
	}

	return reg, nil
}

func buildLimiter(cfg *config.Config) (*ratelimit.Limiter, error) {
	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})
		store = ratelimit.NewRedisStore(client)
	default:
		// Idle entries linger a few windows before the janitor drops them.
		store = ratelimit.NewMemoryStore(3 * cfg.RateLimit.Window)
	}

	return ratelimit.New(store, ratelimit.WithInterval(cfg.RateLimit.Window)), nil
}

func buildRecorder(ctx context.Context, cfg *config.Config) (usage.Recorder, error) {
	switch cfg.Usage.Recorder {
	case "none":
		return usage.NopRecorder{}, nil
	case "memory":
		return usagemem.New(cfg.Usage.MaxSize), nil
	case "postgres":
		rec, err := usagepg.New(ctx, usagepg.Config{
			DSN:            cfg.Usage.Postgres.DSN,
			MaxConns:       cfg.Usage.Postgres.MaxConns,
			MigrateOnStart: cfg.Usage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting usage store: %w", err)
		}
		return rec, nil
	default:
		return usage.NewSlogRecorder(slog.Default()), nil
	}
}

func buildAuthMiddleware(cfg *config.Config, limiter *ratelimit.Limiter) transport.Middleware {
	chain := &auth.Chain{DefaultDecision: auth.No}

	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject: k.Subject,
					Tier:    k.Tier,
					Scopes:  k.Scopes,
				},
			})
		}
		chain.Authenticators = []auth.Authenticator{apikey.New(entries)}
	case "jwt":
		chain.Authenticators = []auth.Authenticator{jwt.New(jwt.Config{
			Issuer:    cfg.Auth.JWT.Issuer,
			Audience:  cfg.Auth.JWT.Audience,
			JWKSURL:   cfg.Auth.JWT.JWKSURL,
			UserClaim: cfg.Auth.JWT.UserClaim,
			TierClaim: cfg.Auth.JWT.TierClaim,
		})}
	default:
		chain.Authenticators = []auth.Authenticator{&noop.Authenticator{}}
		chain.DefaultDecision = auth.Yes
	}

	limits := auth.TierLimits{
		Tiers:   cfg.RateLimit.Tiers,
		Default: cfg.RateLimit.DefaultLimit,
	}

	return auth.Middleware(chain, limiter, limits, auth.DefaultBypassEndpoints)
}

func buildMCPSource(ctx context.Context, cfg *config.Config) (*mcp.Source, error) {
	servers := make([]mcp.ServerConfig, 0, len(cfg.MCP.Servers))
	for _, sc := range cfg.MCP.Servers {
		servers = append(servers, mcp.ServerConfig{
			Name:      sc.Name,
			Transport: sc.Transport,
			URL:       sc.URL,
			Headers:   sc.Headers,
			Auth: mcp.AuthConfig{
				Type:         sc.Auth.Type,
				TokenURL:     sc.Auth.TokenURL,
				ClientID:     sc.Auth.ClientID,
				ClientSecret: sc.Auth.ClientSecret,
				Scopes:       sc.Auth.Scopes,
			},
		})
	}

	source := mcp.NewSource(servers)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := source.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("connecting MCP servers: %w", err)
	}

	tools, err := source.Tools(connectCtx)
	if err != nil {
		return nil, fmt.Errorf("discovering MCP tools: %w", err)
	}
	slog.Info("MCP tools available", "count", len(tools))

	return source, nil
}

// toolSourcingCompleter injects MCP-discovered tool definitions into
// requests that bring none of their own. Execution stays with the
// caller; the gateway only advertises the tools.
type toolSourcingCompleter struct {
	transport.Completer
	source *mcp.Source
}

func (c *toolSourcingCompleter) Complete(ctx context.Context, providerName string, req *api.CompletionRequest) (*api.CompletionResult, error) {
	c.injectTools(ctx, req)
	return c.Completer.Complete(ctx, providerName, req)
}

func (c *toolSourcingCompleter) StreamComplete(ctx context.Context, providerName string, req *api.CompletionRequest) (<-chan api.StreamEvent, error) {
	c.injectTools(ctx, req)
	return c.Completer.StreamComplete(ctx, providerName, req)
}

func (c *toolSourcingCompleter) injectTools(ctx context.Context, req *api.CompletionRequest) {
	if len(req.Tools) > 0 {
		return
	}
	tools, err := c.source.Tools(ctx)
	if err != nil {
		slog.Warn("MCP tool discovery failed, continuing without tools", "error", err)
		return
	}
	req.Tools = tools
}
