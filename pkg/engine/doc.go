// Package engine implements the completion orchestrator. It resolves the
// target provider from the registry, enforces the caller's rate limit,
// validates the request, and dispatches it as a blocking or streaming
// completion. Streaming events are tapped through a tool-call accumulator
// so reconstructed invocations and usage records fall out of the same
// pass that delivers events to the consumer.
package engine
