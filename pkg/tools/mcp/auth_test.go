package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, fetches *atomic.Int32, expiresIn int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant type", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + r.PostForm.Get("client_id"),
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCredentialsFetchesToken(t *testing.T) {
	var fetches atomic.Int32
	srv := newTokenServer(t, &fetches, 3600)

	provider := NewClientCredentials(srv.URL, "client-a", "secret", []string{"tools"})

	headers, err := provider.Headers(context.Background())
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	if headers["Authorization"] != "Bearer tok-client-a" {
		t.Errorf("authorization: got %q", headers["Authorization"])
	}
}

func TestClientCredentialsCachesToken(t *testing.T) {
	var fetches atomic.Int32
	srv := newTokenServer(t, &fetches, 3600)

	provider := NewClientCredentials(srv.URL, "client-a", "secret", nil)

	ctx := context.Background()
	for range 3 {
		if _, err := provider.Headers(ctx); err != nil {
			t.Fatalf("headers: %v", err)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("token endpoint hit %d times, want 1", n)
	}
}

func TestClientCredentialsRefreshesAt80Percent(t *testing.T) {
	var fetches atomic.Int32
	srv := newTokenServer(t, &fetches, 100)

	provider := NewClientCredentials(srv.URL, "client-a", "secret", nil)

	now := time.Now()
	provider.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := provider.Headers(ctx); err != nil {
		t.Fatalf("headers: %v", err)
	}

	// Still inside the refresh window.
	now = now.Add(79 * time.Second)
	if _, err := provider.Headers(ctx); err != nil {
		t.Fatalf("headers: %v", err)
	}
	if n := fetches.Load(); n != 1 {
		t.Fatalf("token refreshed too early, fetches = %d", n)
	}

	// Past 80% of the 100s lifetime.
	now = now.Add(2 * time.Second)
	if _, err := provider.Headers(ctx); err != nil {
		t.Fatalf("headers: %v", err)
	}
	if n := fetches.Load(); n != 2 {
		t.Errorf("expected proactive refresh, fetches = %d", n)
	}
}

func TestClientCredentialsFallsBackToCachedToken(t *testing.T) {
	var fetches atomic.Int32
	srv := newTokenServer(t, &fetches, 100)

	provider := NewClientCredentials(srv.URL, "client-a", "secret", nil)

	now := time.Now()
	provider.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := provider.Headers(ctx); err != nil {
		t.Fatalf("headers: %v", err)
	}

	// Token endpoint goes away mid-lifetime; the cached token is still
	// valid and must be served.
	srv.Close()
	now = now.Add(90 * time.Second)

	headers, err := provider.Headers(ctx)
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if headers["Authorization"] != "Bearer tok-client-a" {
		t.Errorf("authorization: got %q", headers["Authorization"])
	}

	// Once the token has fully expired the failure surfaces.
	now = now.Add(20 * time.Second)
	if _, err := provider.Headers(ctx); err == nil {
		t.Error("expected error after token expiry with unreachable endpoint")
	}
}
