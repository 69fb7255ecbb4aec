package api

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantCode ErrorCode
		wantSub  string
	}{
		{
			name:     "backend unavailable",
			err:      NewBackendUnavailable("anthropic", errors.New("dial tcp: refused")),
			wantCode: CodeBackendUnavailable,
			wantSub:  "anthropic",
		},
		{
			name:     "provider not found",
			err:      NewProviderNotFound("missing"),
			wantCode: CodeProviderNotFound,
			wantSub:  `"missing"`,
		},
		{
			name:     "no default provider",
			err:      NewProviderNotFound(""),
			wantCode: CodeProviderNotFound,
			wantSub:  "default",
		},
		{
			name:     "rate limit exceeded",
			err:      NewRateLimitExceeded(7 * time.Second),
			wantCode: CodeRateLimitExceeded,
			wantSub:  "7s",
		},
		{
			name:     "malformed stream event",
			err:      NewMalformedStreamEvent(errors.New("invalid character 'x'")),
			wantCode: CodeMalformedStreamEvent,
			wantSub:  "not valid JSON",
		},
		{
			name:     "tool argument parse",
			err:      NewToolArgumentParseError("getPrice", errors.New("unexpected end of JSON input")),
			wantCode: CodeToolArgumentParse,
			wantSub:  "getPrice",
		},
		{
			name:     "invalid request",
			err:      NewInvalidRequestError("model", "model is required"),
			wantCode: CodeInvalidRequest,
			wantSub:  "param: model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if !strings.Contains(tt.err.Error(), tt.wantSub) {
				t.Errorf("Error() = %q, want substring %q", tt.err.Error(), tt.wantSub)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := NewRateLimitExceeded(time.Second)
	wrapped := fmt.Errorf("checking quota: %w", err)

	if !IsCode(wrapped, CodeRateLimitExceeded) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
	if IsCode(wrapped, CodeProviderNotFound) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), CodeRateLimitExceeded) {
		t.Error("IsCode matched a non-api error")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewBackendUnavailable("openai", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the underlying cause")
	}
}

func TestRetryAfterSurfaced(t *testing.T) {
	err := NewRateLimitExceeded(42 * time.Second)
	if err.RetryAfter != 42*time.Second {
		t.Errorf("RetryAfter = %v, want 42s", err.RetryAfter)
	}
}
