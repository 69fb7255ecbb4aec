package anthropic

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/strom-dev/strom/pkg/api"
)

// defaultMaxTokens is used when the caller does not set MaxTokens. The
// Messages API rejects requests without one.
const defaultMaxTokens = 4096

// translateRequest converts a canonical request into the Messages API
// shape. System messages move to the top-level system field; the
// Messages API does not accept them inline.
func translateRequest(req *api.CompletionRequest) *messagesRequest {
	out := &messagesRequest{
		Model:       req.Model,
		MaxTokens:   defaultMaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == api.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		out.Messages = append(out.Messages, anthropicMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	out.System = strings.Join(system, "\n\n")

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	if req.ToolChoice != nil {
		out.ToolChoice = translateToolChoice(req.ToolChoice)
	}
	return out
}

// translateToolChoice maps the canonical tool_choice onto the Messages
// API variants: auto, any, or a forced named tool. "none" has no direct
// equivalent, so the tools list should be omitted upstream; here it maps
// to auto to keep the request valid.
func translateToolChoice(tc *api.ToolChoice) any {
	if tc.Function != "" {
		return map[string]string{"type": "tool", "name": tc.Function}
	}
	switch tc.Mode {
	case "required":
		return map[string]string{"type": "any"}
	case "none":
		return map[string]string{"type": "auto"}
	default:
		return map[string]string{"type": "auto"}
	}
}

// translateResponse converts a blocking Messages API response into the
// canonical result. Text blocks concatenate into Content; tool_use
// blocks become tool calls.
func translateResponse(resp *messagesResponse) *api.CompletionResult {
	result := &api.CompletionResult{
		ID:           resp.ID,
		Model:        resp.Model,
		FinishReason: normalizeStopReason(resp.StopReason),
	}
	if result.ID == "" {
		result.ID = api.NewCompletionID()
	}

	var content strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			args := block.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			id := block.ID
			if id == "" {
				id = api.NewToolCallID()
			}
			result.ToolCalls = append(result.ToolCalls, api.ToolInvocationRequest{
				ID:        id,
				Name:      block.Name,
				Arguments: args,
			})
		default:
			slog.Warn("ignoring unknown content block type", "type", block.Type)
		}
	}
	result.Content = content.String()

	if resp.Usage != nil {
		result.Usage = &api.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}
	return result
}
