package transport

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/strom-dev/strom/pkg/api"
)

// StatusFromError maps an api.Error code to the corresponding HTTP
// status. Transport-level failures (body too large, unsupported content
// type) are handled separately by the HTTP adapter.
func StatusFromError(err *api.Error) int {
	switch err.Code {
	case api.CodeInvalidRequest:
		return http.StatusBadRequest
	case api.CodeProviderNotFound:
		return http.StatusNotFound
	case api.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case api.CodeBackendUnavailable, api.CodeStreamTermination:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the JSON error envelope for any error. Errors that
// are not *api.Error are reported as an opaque server error so internal
// details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		apiErr = &api.Error{Code: "server_error", Message: "internal server error"}
	}
	WriteErrorStatus(w, apiErr, StatusFromError(apiErr))
}

// WriteErrorStatus writes the JSON error envelope with an explicit
// status code. Rate-limit errors carry a Retry-After header.
func WriteErrorStatus(w http.ResponseWriter, apiErr *api.Error, status int) {
	if apiErr.Code == api.CodeRateLimitExceeded && apiErr.RetryAfter > 0 {
		secs := int(math.Ceil(apiErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}
