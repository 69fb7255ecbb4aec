package anthropic

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

// decodeState carries per-stream decoder state across SSE events.
// Anthropic numbers content blocks, but tool calls get their own dense
// index sequence so a stream like [text, tool_use, tool_use] yields tool
// indexes 0 and 1.
type decodeState struct {
	content      strings.Builder
	toolCounter  int
	openToolIdx  int  // tool index of the currently open tool_use block
	inToolBlock  bool // whether the open content block is a tool_use
	finishReason string
	inputTokens  int
	outputTokens int
	sawUsage     bool
}

// decodeStream reads Messages API SSE payloads from body and sends the
// mapped events on ch. The channel is NOT closed here; the caller owns it.
//
// One unparsable line is logged and skipped, never fatal. A stream that
// ends without message_stop (or a [DONE] sentinel, which some proxies
// append) gets a synthesized done event with reason "stop".
func decodeStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := sse.NewScanner(body)
	state := &decodeState{openToolIdx: -1}

	for {
		if ctx.Err() != nil {
			ch <- api.StreamEvent{Kind: api.EventError, Err: ctx.Err()}
			return
		}

		payload, err := scanner.Next()
		if err != nil {
			switch {
			case errors.Is(err, sse.ErrDone):
			case errors.Is(err, io.EOF):
				slog.Warn("stream ended without message_stop, synthesizing done")
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

		var env streamEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			slog.Warn("skipping malformed stream event",
				"error", api.NewMalformedStreamEvent(err).Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		events, terminal := translateEnvelope(&env, state)
		for _, ev := range events {
			ch <- ev
		}
		if terminal {
			return
		}
	}
}

// translateEnvelope maps one parsed SSE envelope to stream events. The
// second return value reports whether the stream is finished.
// Unrecognized envelope types are dropped without error.
func translateEnvelope(env *streamEnvelope, state *decodeState) ([]api.StreamEvent, bool) {
	switch env.Type {

	case "message_start":
		if env.Message != nil && env.Message.Usage != nil {
			state.inputTokens = env.Message.Usage.InputTokens
			state.sawUsage = true
		}
		return nil, false

	case "content_block_start":
		if env.ContentBlock == nil {
			return nil, false
		}
		if env.ContentBlock.Type == "tool_use" {
			idx := state.toolCounter
			state.toolCounter++
			state.openToolIdx = idx
			state.inToolBlock = true
			return []api.StreamEvent{{
				Kind:      api.EventToolStart,
				ToolIndex: idx,
				ToolID:    env.ContentBlock.ID,
				ToolName:  env.ContentBlock.Name,
			}}, false
		}
		state.inToolBlock = false
		return nil, false

	case "content_block_delta":
		if env.Delta == nil {
			return nil, false
		}
		switch env.Delta.Type {
		case "text_delta":
			if env.Delta.Text == "" {
				return nil, false
			}
			state.content.WriteString(env.Delta.Text)
			return []api.StreamEvent{{
				Kind: api.EventTextDelta,
				Text: env.Delta.Text,
			}}, false
		case "input_json_delta":
			if env.Delta.PartialJSON == "" || !state.inToolBlock {
				return nil, false
			}
			return []api.StreamEvent{{
				Kind:        api.EventToolArgDelta,
				ToolIndex:   state.openToolIdx,
				ArgFragment: env.Delta.PartialJSON,
			}}, false
		}
		return nil, false

	case "content_block_stop":
		state.inToolBlock = false
		return nil, false

	case "message_delta":
		if env.Usage != nil {
			state.outputTokens = env.Usage.OutputTokens
			state.sawUsage = true
		}
		if env.Delta != nil && env.Delta.StopReason != "" {
			state.finishReason = normalizeStopReason(env.Delta.StopReason)
		}
		return nil, false

	case "message_stop":
		return []api.StreamEvent{doneEvent(state)}, true

	case "error":
		msg := "unknown stream error"
		if env.Error != nil {
			msg = env.Error.Message
		}
		return []api.StreamEvent{{
			Kind: api.EventError,
			Err:  api.NewBackendUnavailable(providerName, errors.New(msg)),
		}}, true

	case "ping":
		return nil, false
	}

	// Unknown envelope type: drop.
	return nil, false
}

// doneEvent builds the terminal event from accumulated state.
func doneEvent(state *decodeState) api.StreamEvent {
	reason := state.finishReason
	if reason == "" {
		reason = "stop"
	}
	ev := api.StreamEvent{
		Kind:         api.EventDone,
		FinishReason: reason,
		Content:      state.content.String(),
	}
	if state.sawUsage {
		ev.Usage = &api.Usage{
			PromptTokens:     state.inputTokens,
			CompletionTokens: state.outputTokens,
			TotalTokens:      state.inputTokens + state.outputTokens,
		}
	}
	return ev
}

// normalizeStopReason maps Messages API stop reasons onto the unified
// set shared with the Chat Completions adapter.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	default:
		slog.Warn("unknown stop_reason, treating as stop", "stop_reason", reason)
		return "stop"
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
