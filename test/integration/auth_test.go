package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/strom-dev/strom/pkg/auth"
	"github.com/strom-dev/strom/pkg/auth/apikey"
	"github.com/strom-dev/strom/pkg/engine"
	"github.com/strom-dev/strom/pkg/provider/openaicompat"
	"github.com/strom-dev/strom/pkg/provider/registry"
	"github.com/strom-dev/strom/pkg/ratelimit"
	transporthttp "github.com/strom-dev/strom/pkg/transport/http"
)

// setupAuthServer builds a separate gateway with API key auth and a
// two-request tier limit, reusing the shared mock backend.
func setupAuthServer(t *testing.T) *httptest.Server {
	t.Helper()

	prov, err := openaicompat.New(openaicompat.Config{
		Name:    "openai",
		BaseURL: testEnv.MockOpenAI.URL,
	})
	if err != nil {
		t.Fatalf("creating provider: %v", err)
	}

	reg := registry.New()
	if err := reg.Register(prov, registry.AsDefault()); err != nil {
		t.Fatalf("registering provider: %v", err)
	}

	eng, err := engine.New(reg, engine.Config{DefaultModel: "mock-model"})
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	chain := &auth.Chain{
		Authenticators: []auth.Authenticator{
			apikey.New([]apikey.RawKeyEntry{
				{Key: "sk-valid", Identity: auth.Identity{Subject: "alice", Tier: "basic"}},
			}),
		},
		DefaultDecision: auth.No,
	}

	limiter := ratelimit.New(
		ratelimit.NewMemoryStore(time.Minute),
		ratelimit.WithInterval(time.Minute),
	)
	t.Cleanup(func() { limiter.Close() })

	limits := auth.TierLimits{
		Tiers:   map[string]int{"basic": 2},
		Default: 100,
	}

	server := transporthttp.NewServer(eng,
		transporthttp.WithMetricsPath(""),
		transporthttp.WithMiddleware(auth.Middleware(chain, limiter, limits, auth.DefaultBypassEndpoints)),
	)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func authedPost(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/v1/completions",
		jsonBody(t, completionRequest{Messages: userMessage("Say hello")}))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	return resp
}

func TestAuthRejectsMissingKey(t *testing.T) {
	ts := setupAuthServer(t)

	resp := authedPost(t, ts.URL, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthRejectsUnknownKey(t *testing.T) {
	ts := setupAuthServer(t)

	resp := authedPost(t, ts.URL, "sk-wrong")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthAcceptsValidKey(t *testing.T) {
	ts := setupAuthServer(t)

	resp := authedPost(t, ts.URL, "sk-valid")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, http.StatusOK, readBody(t, resp))
	}

	var result completionResult
	decodeJSON(t, resp, &result)
	if result.Content == "" {
		t.Error("authenticated request should produce a completion")
	}
}

func TestAuthBypassesHealthEndpoints(t *testing.T) {
	ts := setupAuthServer(t)

	resp := getURL(t, ts.URL+"/healthz")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want %d without credentials", resp.StatusCode, http.StatusOK)
	}
}

func TestTierRateLimitEnforced(t *testing.T) {
	ts := setupAuthServer(t)

	for i := 0; i < 2; i++ {
		resp := authedPost(t, ts.URL, "sk-valid")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, resp.StatusCode, http.StatusOK)
		}
		resp.Body.Close()
	}

	resp := authedPost(t, ts.URL, "sk-valid")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	if resp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("rejection should carry rate limit headers")
	}

	var env errorEnvelope
	decodeJSON(t, resp, &env)
	if env.Error.Code != "rate_limit_exceeded" {
		t.Errorf("error code = %q, want %q", env.Error.Code, "rate_limit_exceeded")
	}
}
