// Package sse reads server-sent-event streams. The scanner tolerates
// chunk boundaries that split lines or JSON payloads arbitrarily: bytes
// are buffered until a complete newline-terminated line is available, and
// a trailing partial line is held back for the next read.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineSize is the maximum size of a single SSE line (1 MB). The
// default bufio.Scanner limit of 64 KiB is too small for large events
// such as long tool-call arguments.
const maxLineSize = 1 * 1024 * 1024

// doneSentinel is the literal end-of-stream marker used by
// OpenAI-compatible and Anthropic-compatible backends.
const doneSentinel = "[DONE]"

// ErrDone is returned by Next when the stream ends with an explicit
// [DONE] sentinel, as opposed to io.EOF for a silent transport close.
var ErrDone = errors.New("sse: done sentinel")

// Scanner extracts data payloads from an SSE byte stream. Blank lines and
// comment lines (":" prefix) are skipped; "event:", "id:" and "retry:"
// fields are ignored; consecutive data lines of one event are joined with
// newlines.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{scanner: sc}
}

// Next returns the next data payload. It returns ErrDone when the [DONE]
// sentinel is observed and io.EOF when the underlying stream ends without
// one. Callers use the distinction to decide whether a terminal event
// must be synthesized.
func (s *Scanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Blank line ends the current event; flush accumulated data.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		// SSE comments.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == doneSentinel {
				return "", ErrDone
			}
			dataLines = append(dataLines, data)
			continue
		}

		// Other fields (event:, id:, retry:) carry no payload.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("sse read: %w", err)
	}

	// Stream ended mid-event: deliver what we have before reporting EOF.
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.EOF
}
