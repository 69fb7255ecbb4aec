package openaicompat

import (
	"encoding/json"
	"log/slog"

	"github.com/strom-dev/strom/pkg/api"
)

// translateRequest converts the canonical request to Chat Completions
// wire format.
func translateRequest(req *api.CompletionRequest) *chatCompletionRequest {
	out := &chatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}

	out.Messages = make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	if tc := req.ToolChoice; tc != nil {
		if tc.Function != "" {
			out.ToolChoice = map[string]any{
				"type":     "function",
				"function": map[string]string{"name": tc.Function},
			}
		} else if tc.Mode != "" {
			out.ToolChoice = tc.Mode
		}
	}

	if req.Stream {
		out.StreamOptions = &chatStreamOptions{IncludeUsage: true}
	}

	return out
}

// translateResponse converts a non-streaming backend response to the
// canonical result.
func translateResponse(resp *chatCompletionResponse) *api.CompletionResult {
	result := &api.CompletionResult{
		ID:    resp.ID,
		Model: resp.Model,
	}
	if result.ID == "" {
		result.ID = api.NewCompletionID()
	}

	if resp.Usage != nil {
		result.Usage = &api.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	if len(resp.Choices) == 0 {
		result.FinishReason = "stop"
		return result
	}

	choice := resp.Choices[0]
	result.Content = choice.Message.Content
	result.FinishReason = normalizeFinishReason(choice.FinishReason)

	for _, tc := range choice.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			// One bad tool call does not fail the rest of the response.
			slog.Warn("dropping tool call with invalid argument JSON",
				"tool", tc.Function.Name,
			)
			continue
		}
		id := tc.ID
		if id == "" {
			id = api.NewToolCallID()
		}
		result.ToolCalls = append(result.ToolCalls, api.ToolInvocationRequest{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}

	return result
}

// normalizeFinishReason maps backend finish reasons onto the unified set:
// stop, length, tool_calls, content_filter.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "", "stop":
		return "stop"
	case "length", "tool_calls", "content_filter":
		return reason
	default:
		slog.Warn("unknown finish_reason, treating as stop", "finish_reason", reason)
		return "stop"
	}
}
