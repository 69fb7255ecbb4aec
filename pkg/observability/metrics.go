// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the strom completion layer.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strom_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strom_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// CompletionsTotal counts completions dispatched to backend providers.
	CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_completions_total",
			Help: "Provider completions",
		},
		[]string{"provider", "model", "mode", "status"},
	)

	// CompletionLatency records end-to-end completion latency in seconds.
	CompletionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strom_completion_latency_seconds",
			Help:    "Completion latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// TokensTotal counts tokens processed by direction (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ToolCallsTotal counts tool calls reconstructed from streams by outcome.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_tool_calls_total",
			Help: "Reconstructed tool calls",
		},
		[]string{"provider", "status"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		CompletionsTotal,
		CompletionLatency,
		TokensTotal,
		ToolCallsTotal,
		RateLimitRejectedTotal,
	)
}
