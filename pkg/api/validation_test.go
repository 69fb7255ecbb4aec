package api

import (
	"strings"
	"testing"
)

func validRequest() *CompletionRequest {
	return &CompletionRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []Message{
			{Role: RoleSystem, Content: "You are helpful."},
			{Role: RoleUser, Content: "hello"},
		},
	}
}

func TestValidateRequestAccepts(t *testing.T) {
	if err := ValidateRequest(validRequest(), DefaultValidationConfig()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestValidateRequestRejects(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CompletionRequest)
		wantParam string
	}{
		{
			name:      "empty messages",
			mutate:    func(r *CompletionRequest) { r.Messages = nil },
			wantParam: "messages",
		},
		{
			name: "unknown role",
			mutate: func(r *CompletionRequest) {
				r.Messages = append(r.Messages, Message{Role: "oracle", Content: "x"})
			},
			wantParam: "messages",
		},
		{
			name: "duplicate tool names",
			mutate: func(r *CompletionRequest) {
				r.Tools = []ToolDefinition{{Name: "getPrice"}, {Name: "getPrice"}}
			},
			wantParam: "tools",
		},
		{
			name: "nameless tool",
			mutate: func(r *CompletionRequest) {
				r.Tools = []ToolDefinition{{Description: "mystery"}}
			},
			wantParam: "tools",
		},
		{
			name: "non-positive max_tokens",
			mutate: func(r *CompletionRequest) {
				zero := 0
				r.MaxTokens = &zero
			},
			wantParam: "max_tokens",
		},
		{
			name: "temperature out of range",
			mutate: func(r *CompletionRequest) {
				temp := 2.5
				r.Temperature = &temp
			},
			wantParam: "temperature",
		},
		{
			name: "tool_choice references unknown tool",
			mutate: func(r *CompletionRequest) {
				r.Tools = []ToolDefinition{{Name: "getPrice"}}
				r.ToolChoice = &ToolChoice{Function: "getWeather"}
			},
			wantParam: "tool_choice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := ValidateRequest(req, DefaultValidationConfig())
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if err.Param != tt.wantParam {
				t.Errorf("param = %q, want %q (message: %s)", err.Param, tt.wantParam, err.Message)
			}
		})
	}
}

func TestValidateRequestContentSizeLimit(t *testing.T) {
	cfg := DefaultValidationConfig()
	cfg.MaxContentSize = 10

	req := validRequest()
	req.Messages = []Message{{Role: RoleUser, Content: strings.Repeat("a", 11)}}

	if err := ValidateRequest(req, cfg); err == nil {
		t.Fatal("expected content size violation")
	}
}
