package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// startMockOpenAI creates an httptest server that mimics a Chat
// Completions backend with deterministic responses.
func startMockOpenAI() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat/completions", handleMockChatCompletions)
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "mock-model", "object": "model", "owned_by": "test"},
				{"id": "mock-model-large", "object": "model", "owned_by": "test"},
			},
		})
	})

	return httptest.NewServer(mux)
}

// handleMockChatCompletions inspects the request and picks a canned
// response. The user message "fail" triggers a backend error, tools in
// the request trigger a tool call, everything else gets plain text.
func handleMockChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Tools  []any `json:"tools"`
		Stream bool  `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	for _, msg := range req.Messages {
		if msg.Role == "user" && strings.Contains(strings.ToLower(msg.Content), "fail") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"backend exploded","type":"server_error"}}`)
			return
		}
	}

	if req.Stream {
		if len(req.Tools) > 0 {
			streamMockToolCall(w, model)
			return
		}
		streamMockText(w, model)
		return
	}

	if len(req.Tools) > 0 {
		writeMockToolCall(w, model)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-mock",
		"object": "chat.completion",
		"model":  model,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Hello from mock!"},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15,
		},
	})
}

// writeMockToolCall responds with a blocking get_weather tool call.
func writeMockToolCall(w http.ResponseWriter, model string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-mock-tool",
		"object": "chat.completion",
		"model":  model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": nil,
					"tool_calls": []map[string]any{
						{
							"id":   "call_mock_1",
							"type": "function",
							"function": map[string]any{
								"name":      "get_weather",
								"arguments": `{"location":"San Francisco"}`,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
		"usage": map[string]any{
			"prompt_tokens": 20, "completion_tokens": 15, "total_tokens": 35,
		},
	})
}

// streamMockText sends SSE chunks for a plain text streaming response.
func streamMockText(w http.ResponseWriter, model string) {
	flusher := beginSSE(w)

	for _, token := range []string{"Hello", " from", " mock", "!"} {
		writeChunk(w, flusher, map[string]any{
			"id": "chatcmpl-mock-stream", "object": "chat.completion.chunk", "model": model,
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]any{"content": token}},
			},
		})
	}

	writeChunk(w, flusher, map[string]any{
		"id": "chatcmpl-mock-stream", "object": "chat.completion.chunk", "model": model,
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]any{}, "finish_reason": "stop"},
		},
		"usage": map[string]any{
			"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14,
		},
	})

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// streamMockToolCall sends SSE chunks containing one incremental tool call.
func streamMockToolCall(w http.ResponseWriter, model string) {
	flusher := beginSSE(w)

	writeChunk(w, flusher, map[string]any{
		"id": "chatcmpl-mock-tc", "object": "chat.completion.chunk", "model": model,
		"choices": []map[string]any{
			{
				"index": 0,
				"delta": map[string]any{
					"tool_calls": []map[string]any{
						{
							"index": 0, "id": "call_mock_1", "type": "function",
							"function": map[string]any{"name": "get_weather", "arguments": ""},
						},
					},
				},
			},
		},
	})

	for _, fragment := range []string{`{"location":`, `"San Francisco"}`} {
		writeChunk(w, flusher, map[string]any{
			"id": "chatcmpl-mock-tc", "object": "chat.completion.chunk", "model": model,
			"choices": []map[string]any{
				{
					"index": 0,
					"delta": map[string]any{
						"tool_calls": []map[string]any{
							{"index": 0, "function": map[string]any{"arguments": fragment}},
						},
					},
				},
			},
		})
	}

	writeChunk(w, flusher, map[string]any{
		"id": "chatcmpl-mock-tc", "object": "chat.completion.chunk", "model": model,
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]any{}, "finish_reason": "tool_calls"},
		},
	})

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func beginSSE(w http.ResponseWriter) http.Flusher {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	return w.(http.Flusher)
}

func writeChunk(w http.ResponseWriter, flusher http.Flusher, chunk map[string]any) {
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// startMockAnthropic creates an httptest server that mimics the
// Messages API, streaming and blocking.
func startMockAnthropic() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", handleMockMessages)
	return httptest.NewServer(mux)
}

func handleMockMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"type":"invalid_request_error","message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	if req.Stream {
		streamMockMessages(w, req.Model)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":    "msg_mock",
		"model": req.Model,
		"content": []map[string]any{
			{"type": "text", "text": "Hello from claude mock!"},
		},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 12, "output_tokens": 6},
	})
}

func streamMockMessages(w http.ResponseWriter, model string) {
	flusher := beginSSE(w)

	writeAnthropicEvent := func(eventType string, payload map[string]any) {
		payload["type"] = eventType
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
		flusher.Flush()
	}

	writeAnthropicEvent("message_start", map[string]any{
		"message": map[string]any{
			"id": "msg_mock_stream", "model": model,
			"usage": map[string]any{"input_tokens": 12},
		},
	})
	writeAnthropicEvent("content_block_start", map[string]any{
		"index":         0,
		"content_block": map[string]any{"type": "text", "text": ""},
	})
	for _, token := range []string{"Hi", " there"} {
		writeAnthropicEvent("content_block_delta", map[string]any{
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": token},
		})
	}
	writeAnthropicEvent("content_block_stop", map[string]any{"index": 0})
	writeAnthropicEvent("message_delta", map[string]any{
		"delta": map[string]any{"stop_reason": "end_turn"},
		"usage": map[string]any{"output_tokens": 2},
	})
	writeAnthropicEvent("message_stop", map[string]any{})
}
