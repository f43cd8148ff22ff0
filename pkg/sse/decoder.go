// Package sse decodes text/event-stream bodies carrying JSON completion deltas.
package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

// DoneMarker terminates a stream.
const DoneMarker = "[DONE]"

const maxLineSize = 1 << 20

// Event is a single `data:` line.
type Event struct {
	Data string
}

// Done reports whether the event is the terminal marker.
func (e Event) Done() bool {
	return strings.TrimSpace(e.Data) == DoneMarker
}

// Decoder splits a stream into data events. Lines may straddle read boundaries.
type Decoder struct {
	scanner *bufio.Scanner
	done    bool
}

func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next data event. Once the terminal marker has been returned,
// or the underlying reader is exhausted, Next returns io.EOF.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return Event{}, io.EOF
	}

	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		event := Event{Data: strings.TrimPrefix(data, " ")}
		if event.Done() {
			d.done = true
		}
		return event, nil
	}

	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	d.done = true
	return Event{}, io.EOF
}

// UpstreamError is an error event relayed inside the stream.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("stream error: %s", e.Message)
}

// Consume feeds the payload of every non-terminal event to handle until the
// terminal marker, EOF, or an error from handle. completed is true only when
// the marker was seen.
func Consume(r io.Reader, handle func(data []byte) error) (completed bool, err error) {
	dec := NewDecoder(r)
	for {
		event, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if event.Done() {
			return true, nil
		}
		if err := handle([]byte(event.Data)); err != nil {
			return false, err
		}
	}
}

// ReadDeltas decodes `{"content": "..."}` events and passes each non-empty
// content to onDelta in arrival order. Malformed events are skipped.
func ReadDeltas(r io.Reader, onDelta func(content string) error) (completed bool, err error) {
	return Consume(r, func(data []byte) error {
		var delta completion.Delta
		if err := json.Unmarshal(data, &delta); err != nil {
			log.Printf("[sse] skipping malformed event %q: %v", truncate(string(data), 80), err)
			return nil
		}
		if delta.Error != "" {
			return &UpstreamError{Message: delta.Error}
		}
		if delta.Content == "" {
			return nil
		}
		return onDelta(delta.Content)
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
