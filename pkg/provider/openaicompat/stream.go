package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/debug"
	"github.com/strom-dev/strom/pkg/sse"
)

// decodeState is the per-stream decoder state: accumulated text, which
// tool call indexes have been announced, and the finish reason captured
// from the terminal chunk.
type decodeState struct {
	content      strings.Builder
	started      map[int]bool
	finishReason string
	usage        *api.Usage
}

// decodeStream reads Chat Completions SSE payloads from body, maps them
// to stream events, and sends them on ch. The channel is NOT closed here;
// the caller owns it.
//
// A line that fails to parse as JSON is logged and skipped: one corrupt
// event never aborts the stream. If the transport ends without a [DONE]
// sentinel or finish_reason, a done event with reason "stop" is
// synthesized so consumers never hang.
func decodeStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := sse.NewScanner(body)
	state := &decodeState{started: make(map[int]bool)}

	for {
		if ctx.Err() != nil {
			ch <- api.StreamEvent{Kind: api.EventError, Err: ctx.Err()}
			return
		}

		payload, err := scanner.Next()
		if err != nil {
			switch {
			case errors.Is(err, sse.ErrDone):
				// Explicit sentinel: clean termination.
			case errors.Is(err, io.EOF):
				// Transport ended without a terminal signal. Recover by
				// synthesizing the done event rather than propagating.
				slog.Warn("stream ended without terminal signal, synthesizing done")
			default:
				if ctx.Err() != nil {
					ch <- api.StreamEvent{Kind: api.EventError, Err: ctx.Err()}
					return
				}
				ch <- api.StreamEvent{Kind: api.EventError, Err: err}
				return
			}
			ch <- doneEvent(state)
			return
		}

		debug.Raw("streaming", payload)

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed stream chunk",
				"error", api.NewMalformedStreamEvent(err).Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		for _, ev := range translateChunk(&chunk, state) {
			ch <- ev
		}
	}
}

// translateChunk maps a single parsed chunk to zero or more stream
// events, updating the decoder state. Unrecognized shapes are dropped
// without error.
func translateChunk(chunk *chatCompletionChunk, state *decodeState) []api.StreamEvent {
	// Usage-only final chunk (stream_options.include_usage).
	if len(chunk.Choices) == 0 {
		if chunk.Usage != nil {
			state.usage = &api.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		return nil
	}

	choice := chunk.Choices[0]

	if chunk.Usage != nil {
		state.usage = &api.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}

	if choice.FinishReason != nil {
		state.finishReason = normalizeFinishReason(*choice.FinishReason)
	}

	var events []api.StreamEvent

	for _, tc := range choice.Delta.ToolCalls {
		if !state.started[tc.Index] {
			state.started[tc.Index] = true
			events = append(events, api.StreamEvent{
				Kind:      api.EventToolStart,
				ToolIndex: tc.Index,
				ToolID:    tc.ID,
				ToolName:  tc.Function.Name,
			})
		}
		if tc.Function.Arguments != "" {
			events = append(events, api.StreamEvent{
				Kind:        api.EventToolArgDelta,
				ToolIndex:   tc.Index,
				ArgFragment: tc.Function.Arguments,
			})
		}
	}

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		state.content.WriteString(*choice.Delta.Content)
		events = append(events, api.StreamEvent{
			Kind: api.EventTextDelta,
			Text: *choice.Delta.Content,
		})
	}

	return events
}

// doneEvent builds the terminal event from the accumulated state.
func doneEvent(state *decodeState) api.StreamEvent {
	reason := state.finishReason
	if reason == "" {
		reason = "stop"
	}
	return api.StreamEvent{
		Kind:         api.EventDone,
		FinishReason: reason,
		Content:      state.content.String(),
		Usage:        state.usage,
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
