// Package stream decodes server-sent event streams produced by streaming
// model backends into result fragments.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Kind classifies a decoded stream line.
type Kind int

const (
	// Data carries a decoded JSON payload.
	Data Kind = iota
	// Done marks the end of the stream.
	Done
	// Malformed is a line that could not be decoded; it is skipped.
	Malformed
)

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
)

// Event is a single decoded stream line.
type Event struct {
	Kind    Kind
	Line    string
	Payload map[string]interface{}
	Err     error
}

// Text returns the result fragment carried by a Data event.
func (e *Event) Text() string {
	if e.Kind != Data {
		return ""
	}
	return ExtractResult(e.Payload)
}

// Decode turns a chunk of complete lines into events. Blank lines, SSE
// comments and non data fields are ignored.
func Decode(chunk []byte) []Event {
	var ret []Event
	for _, line := range bytes.Split(chunk, []byte("\n")) {
		if event, ok := decodeLine(string(line)); ok {
			ret = append(ret, event)
		}
	}
	return ret
}

func decodeLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "", strings.HasPrefix(line, ":"),
		strings.HasPrefix(line, "event:"), strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"):
		return Event{}, false
	}
	body := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if body == doneMarker {
		return Event{Kind: Done, Line: line}, true
	}
	payload := map[string]interface{}{}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return Event{Kind: Malformed, Line: line, Err: fmt.Errorf("malformed stream line: %w", err)}, true
	}
	return Event{Kind: Data, Line: line, Payload: payload}, true
}

// ExtractResult returns choices[0].delta.content, choices[0].text or
// choices[0].message.content, whichever is present.
func ExtractResult(payload map[string]interface{}) string {
	choices, ok := payload["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return ""
	}
	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return ""
	}
	if delta, ok := choice["delta"].(map[string]interface{}); ok {
		if content, ok := delta["content"].(string); ok {
			return content
		}
	}
	if text, ok := choice["text"].(string); ok {
		return text
	}
	if message, ok := choice["message"].(map[string]interface{}); ok {
		if content, ok := message["content"].(string); ok {
			return content
		}
	}
	return ""
}

// Relay reads r line by line and hands every decoded event to emit until
// the stream ends, a Done event is seen, emit fails or ctx is done.
func Relay(ctx context.Context, r io.Reader, emit func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, ok := decodeLine(scanner.Text())
		if !ok {
			continue
		}
		if err := emit(event); err != nil {
			return err
		}
		if event.Kind == Done {
			return nil
		}
	}
	return scanner.Err()
}
