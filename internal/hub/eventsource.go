package hub

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Event is one dispatched server-sent event.
type Event struct {
	// Type is the event field, "message" when the server sent none.
	Type string
	ID   string
	Data []byte
}

// EventReader decodes a text/event-stream body.
type EventReader struct {
	scanner *bufio.Scanner
	lastID  string
}

// NewEventReader wraps r. Lines longer than 1 MiB fail the stream.
func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	return &EventReader{scanner: scanner}
}

// Next blocks until the next complete event. It returns io.EOF when the
// stream ends; a partially received event at EOF is discarded.
func (r *EventReader) Next() (Event, error) {
	var (
		data      bytes.Buffer
		eventType string
		hasData   bool
	)
	for r.scanner.Scan() {
		line := r.scanner.Bytes()

		if len(line) == 0 {
			if !hasData {
				eventType = ""
				continue
			}
			ev := Event{Type: eventType, ID: r.lastID, Data: bytes.TrimSuffix(data.Bytes(), []byte("\n"))}
			if ev.Type == "" {
				ev.Type = "message"
			}
			return ev, nil
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		switch string(field) {
		case "data":
			data.Write(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			eventType = string(value)
		case "id":
			if !bytes.ContainsRune(value, 0) {
				r.lastID = string(value)
			}
		}
		// "retry" and unknown fields are ignored.
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// LastEventID returns the most recent id field seen.
func (r *EventReader) LastEventID() string {
	return r.lastID
}

// scanLines splits on \n, \r\n or a lone \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// \r: need one more byte to know whether \n follows.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// IsEventStream reports whether a Content-Type header names an event stream.
func IsEventStream(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "text/event-stream")
}
