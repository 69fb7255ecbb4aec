package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/transport"
)

func TestServerHandlerAppliesMiddleware(t *testing.T) {
	fake := &fakeCompleter{models: []api.ModelInfo{{ID: "m"}}}
	server := NewServer(fake)

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("request ID middleware not applied")
	}
}

func TestServerMountsMetricsEndpoint(t *testing.T) {
	server := NewServer(&fakeCompleter{})

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status: got %d", resp.StatusCode)
	}
}

func TestServerDisablesMetricsEndpoint(t *testing.T) {
	server := NewServer(&fakeCompleter{}, WithMetricsPath(""))

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Error("metrics endpoint should not be mounted")
	}
}

func TestServerExtraMiddlewareRunsInsideChain(t *testing.T) {
	var sawRequestID string
	marker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawRequestID = transport.RequestIDFromContext(r.Context())
			w.Header().Set("X-Marker", "yes")
			next.ServeHTTP(w, r)
		})
	}

	server := NewServer(&fakeCompleter{}, WithMiddleware(marker))
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.Header.Get("X-Marker") != "yes" {
		t.Error("extra middleware not applied")
	}
	if sawRequestID == "" {
		t.Error("extra middleware should run inside the request ID middleware")
	}
}

func TestServerRecoversFromPanics(t *testing.T) {
	boom := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/v1/") {
				panic("boom")
			}
			next.ServeHTTP(w, r)
		})
	}

	server := NewServer(&fakeCompleter{}, WithMiddleware(boom))
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d", resp.StatusCode)
	}
}
