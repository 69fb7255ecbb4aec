package api

import (
	"encoding/json"
	"testing"
)

func TestNormalizeLegacyRequestMessageArray(t *testing.T) {
	raw := json.RawMessage(`[{"role":"user","content":"hi"}]`)

	req, err := NormalizeLegacyRequest(raw)
	if err != nil {
		t.Fatalf("normalize array: %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	if req.Model != "" {
		t.Errorf("bare array should leave model empty, got %q", req.Model)
	}
}

func TestNormalizeLegacyRequestOptionsObject(t *testing.T) {
	raw := json.RawMessage(`  {"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"temperature":0.2}`)

	req, err := NormalizeLegacyRequest(raw)
	if err != nil {
		t.Fatalf("normalize object: %v", err)
	}
	if req.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", req.Model)
	}
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("temperature not carried over: %+v", req.Temperature)
	}
}

func TestNormalizeLegacyRequestRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{`"just a string"`, `42`, ``, `   `} {
		if _, err := NormalizeLegacyRequest(json.RawMessage(raw)); err == nil {
			t.Errorf("input %q should be rejected", raw)
		}
	}
}
