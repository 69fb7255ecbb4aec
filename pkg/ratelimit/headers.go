package ratelimit

import (
	"math"
	"net/http"
	"strconv"
)

// SetHeaders attaches the standard quota headers to h. Retry-After is
// added only on denial, rounded up to whole seconds.
func SetHeaders(h http.Header, res Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(retryAfterSeconds(res)))
	if !res.Allowed {
		h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(res)))
	}
}

func retryAfterSeconds(res Result) int {
	if res.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(res.RetryAfter.Seconds()))
}
