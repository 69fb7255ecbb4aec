package api

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a failure category. Structural errors propagate to
// the caller; recoverable ones (malformed event, single bad tool call) are
// contained where they occur and only logged or reported per item.
type ErrorCode string

const (
	CodeBackendUnavailable    ErrorCode = "backend_unavailable"
	CodeMalformedStreamEvent  ErrorCode = "malformed_stream_event"
	CodeToolArgumentParse     ErrorCode = "tool_argument_parse_error"
	CodeProviderNotFound      ErrorCode = "provider_not_found"
	CodeRateLimitExceeded     ErrorCode = "rate_limit_exceeded"
	CodeStreamTermination     ErrorCode = "unexpected_stream_termination"
	CodeInvalidRequest        ErrorCode = "invalid_request"
)

// Error is the structured error type surfaced by this layer. The Code
// lets external callers present a precise message without string matching.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	// Param names the request field at fault for invalid_request errors.
	Param string `json:"param,omitempty"`

	// RetryAfter is populated for rate_limit_exceeded errors.
	RetryAfter time.Duration `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorResponse wraps an Error for JSON serialization as the top-level
// error body on the HTTP surface.
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// NewBackendUnavailable reports a network or transport failure reaching a
// provider. Not retried internally; retry policy belongs to the caller.
func NewBackendUnavailable(provider string, cause error) *Error {
	return &Error{
		Code:    CodeBackendUnavailable,
		Message: fmt.Sprintf("backend %q unreachable: %v", provider, cause),
		cause:   cause,
	}
}

// NewProviderNotFound reports a registry lookup miss.
func NewProviderNotFound(name string) *Error {
	if name == "" {
		return &Error{Code: CodeProviderNotFound, Message: "no default provider registered"}
	}
	return &Error{
		Code:    CodeProviderNotFound,
		Message: fmt.Sprintf("provider %q is not registered", name),
	}
}

// NewRateLimitExceeded reports a quota violation with the time until the
// oldest in-window request expires.
func NewRateLimitExceeded(retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimitExceeded,
		Message:    fmt.Sprintf("rate limit exceeded, retry in %.0fs", retryAfter.Seconds()),
		RetryAfter: retryAfter,
	}
}

// NewMalformedStreamEvent reports a stream line that failed to parse.
// Recovered where it occurs: decoders log it and skip the line, so it
// never reaches a caller as a terminal failure.
func NewMalformedStreamEvent(cause error) *Error {
	return &Error{
		Code:    CodeMalformedStreamEvent,
		Message: fmt.Sprintf("stream event is not valid JSON: %v", cause),
		cause:   cause,
	}
}

// NewToolArgumentParseError reports that one tool call's concatenated
// arguments failed to parse as JSON. Sibling tool calls are unaffected.
func NewToolArgumentParseError(toolName string, cause error) *Error {
	return &Error{
		Code:    CodeToolArgumentParse,
		Message: fmt.Sprintf("tool call %q: arguments are not valid JSON: %v", toolName, cause),
		cause:   cause,
	}
}

// NewStreamTerminationError reports a stream that ended without any
// terminal event reaching the consumer.
func NewStreamTerminationError() *Error {
	return &Error{
		Code:    CodeStreamTermination,
		Message: "stream ended without a terminal event",
	}
}

// NewInvalidRequestError reports a malformed request, naming the field at
// fault.
func NewInvalidRequestError(param, message string) *Error {
	return &Error{
		Code:    CodeInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
