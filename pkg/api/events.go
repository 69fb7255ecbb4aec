package api

// StreamEventKind classifies a decoded stream event.
type StreamEventKind string

const (
	// EventTextDelta carries an incremental piece of assistant text.
	EventTextDelta StreamEventKind = "text_delta"

	// EventToolStart announces a new tool call block. The name (and ID,
	// when the backend assigns one) are only present on this event.
	EventToolStart StreamEventKind = "tool_start"

	// EventToolArgDelta carries a fragment of a tool call's JSON
	// arguments. Fragments are not individually parseable.
	EventToolArgDelta StreamEventKind = "tool_arg_delta"

	// EventDone terminates the stream. It carries the finish reason and
	// the full accumulated text content.
	EventDone StreamEventKind = "done"

	// EventError terminates the stream with a structural failure.
	EventError StreamEventKind = "error"
)

// StreamEvent is one discrete unit decoded from a provider's incremental
// response. Exactly one group of fields is meaningful per kind.
type StreamEvent struct {
	Kind StreamEventKind `json:"kind"`

	// Text is set for text_delta events.
	Text string `json:"text,omitempty"`

	// ToolIndex identifies the tool call block this event belongs to.
	// Set for tool_start and tool_arg_delta events.
	ToolIndex int `json:"tool_index,omitempty"`

	// ToolID is the backend-assigned call identifier, when available.
	ToolID string `json:"tool_id,omitempty"`

	// ToolName is set on tool_start events.
	ToolName string `json:"tool_name,omitempty"`

	// ArgFragment is set on tool_arg_delta events.
	ArgFragment string `json:"arg_fragment,omitempty"`

	// FinishReason and Content are set on done events. Content is the
	// concatenation of every text delta observed before termination.
	FinishReason string `json:"finish_reason,omitempty"`
	Content      string `json:"content,omitempty"`

	// Usage is set on done events when the backend reported token counts.
	Usage *Usage `json:"usage,omitempty"`

	// Err is set on error events.
	Err error `json:"-"`
}

// IsTerminal reports whether the event ends the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}
