package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/strom-dev/strom/pkg/api"
)

// wireEvent is the serialized form of a stream event. Err is an error
// value and does not marshal; error events carry a structured body
// instead.
type wireEvent struct {
	api.StreamEvent
	Error *api.Error `json:"error,omitempty"`
}

// eventWriter emits api.StreamEvents in SSE framing:
//
//	event: {kind}\n
//	data: {json}\n
//	\n
//
// After a terminal event it also emits the [DONE] sentinel. Writes after
// a terminal event are rejected.
type eventWriter struct {
	w        http.ResponseWriter
	rc       *http.ResponseController
	started  bool
	finished bool
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	return &eventWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteEvent sends a single SSE event and flushes it to the client.
func (s *eventWriter) WriteEvent(ev api.StreamEvent) error {
	if s.finished {
		return errors.New("cannot write event: stream is finished")
	}

	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.started = true
	}

	we := wireEvent{StreamEvent: ev}
	if ev.Kind == api.EventError {
		var apiErr *api.Error
		if !errors.As(ev.Err, &apiErr) {
			apiErr = &api.Error{Code: "server_error", Message: "internal server error"}
		}
		we.Error = apiErr
	}

	data, err := json.Marshal(we)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flushing event: %w", err)
	}

	if ev.IsTerminal() {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("writing done sentinel: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("flushing done sentinel: %w", err)
		}
		s.finished = true
	}

	return nil
}

// Started reports whether SSE output has begun. Once headers are out,
// errors must be delivered as error events rather than JSON bodies.
func (s *eventWriter) Started() bool {
	return s.started
}
