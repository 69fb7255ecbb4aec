// Package auth provides pluggable authentication for strom.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default decision
// applies when all authenticators abstain.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from the
// completion engine. The middleware also resolves the caller identity
// into the request context, where it feeds the rate-limit key.
package auth
