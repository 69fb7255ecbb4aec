// Package transport defines the handler contract and HTTP middleware for
// the strom transport layer.
//
// The transport layer bridges external clients and the completion engine.
// It deserializes incoming requests into the core protocol types defined
// in pkg/api, dispatches them, and serializes results back as either a
// complete JSON body or a Server-Sent Events stream.
//
// # Handler Contract
//
// The Completer interface is the contract between the HTTP adapter and
// the engine: blocking completion, streaming completion, and model
// listing. *engine.Engine satisfies it directly; tests substitute fakes.
//
// # Middleware
//
// Middleware here operates on plain http.Handler values and composes with
// Chain. Built-in middleware provides panic recovery, X-Request-ID
// propagation, and structured access logging via log/slog. Metrics and
// authentication middleware live in pkg/observability and pkg/auth and
// slot into the same chain.
package transport
