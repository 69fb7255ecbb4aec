package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
	MaxTools       int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 10 * 1024 * 1024, // 10MB
		MaxTools:       128,
	}
}

// ValidateRequest checks a CompletionRequest for validity. It returns an
// *Error describing the first failure, or nil if the request is valid.
func ValidateRequest(req *CompletionRequest, cfg ValidationConfig) *Error {
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one entry")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d entries", cfg.MaxMessages))
	}

	total := 0
	for i, m := range req.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return NewInvalidRequestError("messages",
				fmt.Sprintf("message %d has unknown role %q", i, m.Role))
		}
		total += len(m.Content)
	}
	if cfg.MaxContentSize > 0 && total > cfg.MaxContentSize {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("total content exceeds maximum of %d bytes", cfg.MaxContentSize))
	}

	if cfg.MaxTools > 0 && len(req.Tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools",
			fmt.Sprintf("tools exceeds maximum of %d", cfg.MaxTools))
	}

	// Tool names must be unique within a request.
	seen := make(map[string]bool, len(req.Tools))
	for _, t := range req.Tools {
		if t.Name == "" {
			return NewInvalidRequestError("tools", "tool definition is missing a name")
		}
		if seen[t.Name] {
			return NewInvalidRequestError("tools",
				fmt.Sprintf("duplicate tool name %q", t.Name))
		}
		seen[t.Name] = true
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	// tool_choice must reference a declared tool when forcing a function.
	if req.ToolChoice != nil && req.ToolChoice.Function != "" {
		if !seen[req.ToolChoice.Function] {
			return NewInvalidRequestError("tool_choice",
				fmt.Sprintf("tool_choice references unknown tool %q", req.ToolChoice.Function))
		}
	}

	return nil
}
