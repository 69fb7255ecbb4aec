package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthz(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()
}

func TestReadyz(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()
}

func TestModelListing(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/v1/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, http.StatusOK, readBody(t, resp))
	}

	var list struct {
		Object string `json:"object"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &list)

	if list.Object != "list" {
		t.Errorf("object = %q, want %q", list.Object, "list")
	}
	if len(list.Data) != 2 {
		t.Fatalf("got %d models, want 2", len(list.Data))
	}
	if list.Data[0].ID != "mock-model" {
		t.Errorf("first model = %q, want %q", list.Data[0].ID, "mock-model")
	}
}

func TestModelListingForNamedProvider(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/v1/models?provider=anthropic")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, http.StatusOK, readBody(t, resp))
	}

	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &list)

	for _, m := range list.Data {
		if !strings.HasPrefix(m.ID, "claude") {
			t.Errorf("model %q does not belong to the anthropic catalog", m.ID)
		}
	}
	if len(list.Data) == 0 {
		t.Error("anthropic catalog should not be empty")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Generate at least one completion so counters exist.
	resp := postJSON(t, testEnv.BaseURL()+"/v1/completions", completionRequest{
		Messages: userMessage("Say hello"),
	})
	readBody(t, resp)

	resp = getURL(t, testEnv.BaseURL()+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body := readBody(t, resp)
	if !strings.Contains(body, "strom_completions_total") {
		t.Error("metrics output should include completion counters")
	}
	if !strings.Contains(body, "strom_requests_total") {
		t.Error("metrics output should include HTTP request counters")
	}
}
