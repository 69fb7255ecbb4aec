package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/strom-dev/strom/pkg/api"
)

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 64 * 1024

// mapHTTPError converts a non-2xx backend response into an api error.
func mapHTTPError(providerName string, resp *http.Response) error {
	msg := extractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return api.NewBackendUnavailable(providerName,
			fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	default:
		return api.NewInvalidRequestError("request",
			fmt.Sprintf("backend rejected request (status %d): %s", resp.StatusCode, msg))
	}
}

// mapNetworkError converts a transport-level failure into an api error.
func mapNetworkError(providerName string, err error) error {
	return api.NewBackendUnavailable(providerName, err)
}

// extractErrorMessage pulls the error message from a backend error body,
// falling back to the raw body when it is not the expected JSON shape.
func extractErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}

	var parsed chatErrorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(raw)
}
