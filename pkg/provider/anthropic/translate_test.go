package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/strom-dev/strom/pkg/api"
)

func TestTranslateRequestSystemExtraction(t *testing.T) {
	req := &api.CompletionRequest{
		Model: "claude-3-5-sonnet-latest",
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: "be terse"},
			{Role: api.RoleUser, Content: "hi"},
			{Role: api.RoleAssistant, Content: "hello"},
			{Role: api.RoleUser, Content: "bye"},
		},
	}

	out := translateRequest(req)
	if out.System != "be terse" {
		t.Errorf("system: got %q", out.System)
	}
	if len(out.Messages) != 3 {
		t.Fatalf("expected system message stripped, got %d messages", len(out.Messages))
	}
	if out.Messages[0].Role != "user" || out.Messages[0].Content != "hi" {
		t.Errorf("message 0: got %+v", out.Messages[0])
	}
	if out.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens default: got %d, want %d", out.MaxTokens, defaultMaxTokens)
	}
}

func TestTranslateRequestToolChoice(t *testing.T) {
	maxTokens := 256
	req := &api.CompletionRequest{
		Model:     "claude-3-5-sonnet-latest",
		MaxTokens: &maxTokens,
		Messages:  []api.Message{{Role: api.RoleUser, Content: "price?"}},
		Tools: []api.ToolDefinition{
			{Name: "getPrice", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
		ToolChoice: &api.ToolChoice{Function: "getPrice"},
	}

	out := translateRequest(req)
	if out.MaxTokens != 256 {
		t.Errorf("max_tokens: got %d", out.MaxTokens)
	}
	if len(out.Tools) != 1 || out.Tools[0].Name != "getPrice" {
		t.Fatalf("tools: got %+v", out.Tools)
	}
	tc, ok := out.ToolChoice.(map[string]string)
	if !ok {
		t.Fatalf("tool_choice: got %T", out.ToolChoice)
	}
	if tc["type"] != "tool" || tc["name"] != "getPrice" {
		t.Errorf("tool_choice: got %v", tc)
	}
}

func TestTranslateResponseMixedBlocks(t *testing.T) {
	resp := &messagesResponse{
		ID:         "msg_9",
		Model:      "claude-3-5-sonnet-latest",
		StopReason: "tool_use",
		Content: []contentBlock{
			{Type: "text", Text: "Checking "},
			{Type: "text", Text: "now."},
			{Type: "tool_use", ID: "toolu_9", Name: "getPrice", Input: json.RawMessage(`{"symbol":"SOL"}`)},
		},
		Usage: &anthropicUsage{InputTokens: 10, OutputTokens: 5},
	}

	result := translateResponse(resp)
	if result.Content != "Checking now." {
		t.Errorf("content: got %q", result.Content)
	}
	if result.FinishReason != "tool_calls" {
		t.Errorf("finish reason: got %q", result.FinishReason)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("tool calls: got %d", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.ID != "toolu_9" || call.Name != "getPrice" {
		t.Errorf("call: got %+v", call)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 15 {
		t.Errorf("usage: got %+v", result.Usage)
	}
}

func TestTranslateResponseGeneratesIDs(t *testing.T) {
	resp := &messagesResponse{
		StopReason: "end_turn",
		Content: []contentBlock{
			{Type: "tool_use", Name: "lookup"},
		},
	}

	result := translateResponse(resp)
	if result.ID == "" {
		t.Error("expected generated completion ID")
	}
	if result.ToolCalls[0].ID == "" {
		t.Error("expected generated tool call ID")
	}
	if string(result.ToolCalls[0].Arguments) != "{}" {
		t.Errorf("empty input should become {}, got %q", result.ToolCalls[0].Arguments)
	}
}
