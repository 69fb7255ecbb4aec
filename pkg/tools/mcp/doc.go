// Package mcp sources tool definitions from external MCP (Model Context
// Protocol) servers. It connects to configured servers, discovers their
// tools as api.ToolDefinition values that callers attach to completion
// requests, and routes reconstructed tool invocations back to the server
// that provides the tool.
//
// The package wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk). Completion backends never see
// MCP directly; they receive plain tool definitions and emit tool call
// events, and the caller decides whether to execute them here.
package mcp
