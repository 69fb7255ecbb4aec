// Package toolcall reconstructs complete tool invocations from the
// fragmented deltas a streaming backend emits. A tool call's name arrives
// on a tool_start event and its JSON arguments arrive as any number of
// tool_arg_delta fragments; only the full concatenation is ever parsed.
package toolcall

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/strom-dev/strom/pkg/api"
)

// buffer tracks one tool call's incremental assembly, keyed by block index.
type buffer struct {
	id   string
	name string
	args strings.Builder
}

// Accumulator consumes stream events and yields ToolInvocationRequests
// once their argument JSON is complete. Not safe for concurrent use; one
// accumulator serves exactly one stream.
type Accumulator struct {
	buffers map[int]*buffer
	order   []int

	// repair enables salvage of near-JSON arguments (single quotes,
	// trailing commas) before reporting a parse failure.
	repair bool
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithRepair enables jsonrepair salvage of malformed argument JSON.
func WithRepair() Option {
	return func(a *Accumulator) { a.repair = true }
}

// New creates an empty Accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{buffers: make(map[int]*buffer)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Observe feeds one stream event into the accumulator. Events other than
// tool_start and tool_arg_delta are ignored, so callers may pipe an
// entire stream through without filtering.
func (a *Accumulator) Observe(ev api.StreamEvent) {
	switch ev.Kind {
	case api.EventToolStart:
		if _, exists := a.buffers[ev.ToolIndex]; exists {
			// A second start for an open index replaces nothing; the
			// backend numbered its blocks, trust the first announcement.
			slog.Warn("duplicate tool_start for block index, keeping first",
				"index", ev.ToolIndex,
				"name", ev.ToolName,
			)
			return
		}
		a.buffers[ev.ToolIndex] = &buffer{id: ev.ToolID, name: ev.ToolName}
		a.order = append(a.order, ev.ToolIndex)

	case api.EventToolArgDelta:
		buf, ok := a.buffers[ev.ToolIndex]
		if !ok {
			// Fragment for an unannounced block. Start an anonymous
			// buffer so the data is not lost; the parse step will
			// report it if the name never arrives.
			buf = &buffer{}
			a.buffers[ev.ToolIndex] = buf
			a.order = append(a.order, ev.ToolIndex)
		}
		buf.args.WriteString(ev.ArgFragment)
	}
}

// Pending reports how many tool call blocks are currently open.
func (a *Accumulator) Pending() int {
	return len(a.buffers)
}

// Finish parses every accumulated block and returns the completed
// invocations in block order. A block whose concatenated arguments fail
// to parse yields a ToolArgumentParseError in errs without discarding its
// siblings. The accumulator is reset and may not be reused afterwards.
func (a *Accumulator) Finish() (calls []api.ToolInvocationRequest, errs []error) {
	sort.Ints(a.order)

	for _, idx := range a.order {
		buf := a.buffers[idx]
		raw := buf.args.String()
		if raw == "" {
			// A tool call with no arguments is legal: empty object.
			raw = "{}"
		}

		parsed, err := parseArguments(raw, a.repair)
		if err != nil {
			errs = append(errs, api.NewToolArgumentParseError(buf.name, err))
			continue
		}

		id := buf.id
		if id == "" {
			id = api.NewToolCallID()
		}
		calls = append(calls, api.ToolInvocationRequest{
			ID:        id,
			Name:      buf.name,
			Arguments: parsed,
		})
	}

	a.buffers = make(map[int]*buffer)
	a.order = nil
	return calls, errs
}

// parseArguments validates raw as JSON, optionally attempting repair.
// The returned value is compacted canonical JSON.
func parseArguments(raw string, repair bool) (json.RawMessage, error) {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw), nil
	}

	if repair {
		fixed, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr == nil && json.Valid([]byte(fixed)) {
			slog.Warn("repaired malformed tool call arguments",
				"original_len", len(raw),
			)
			return json.RawMessage(fixed), nil
		}
	}

	// Surface the underlying JSON error for the report.
	var v any
	err := json.Unmarshal([]byte(raw), &v)
	return nil, err
}
