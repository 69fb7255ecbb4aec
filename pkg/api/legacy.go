package api

import (
	"encoding/json"
	"fmt"
)

// NormalizeLegacyRequest converts the two historical call shapes into a
// canonical CompletionRequest. Older clients send either a bare JSON
// array of messages or an options object whose fields match
// CompletionRequest. New code should construct CompletionRequest directly;
// this adapter exists only at the boundary.
func NormalizeLegacyRequest(raw json.RawMessage) (*CompletionRequest, error) {
	trimmed := firstNonSpace(raw)

	switch trimmed {
	case '[':
		var msgs []Message
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return nil, NewInvalidRequestError("messages",
				fmt.Sprintf("message array is not valid JSON: %v", err))
		}
		return &CompletionRequest{Messages: msgs}, nil

	case '{':
		var req CompletionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, NewInvalidRequestError("request",
				fmt.Sprintf("request object is not valid JSON: %v", err))
		}
		return &req, nil

	default:
		return nil, NewInvalidRequestError("request",
			"request must be a message array or an options object")
	}
}

// firstNonSpace returns the first non-whitespace byte of b, or 0.
func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}
