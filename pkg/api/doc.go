// Package api defines the data model shared by all layers of strom:
// messages, completion requests and results, stream events, tool
// definitions, and the error taxonomy. Types here are wire-stable and
// carry no behavior beyond validation and serialization.
package api
