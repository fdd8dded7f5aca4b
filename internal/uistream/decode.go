package uistream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ReadAll decodes an SSE body produced by SSE. It reports whether the
// terminator was seen.
func ReadAll(r io.Reader) ([]Event, bool, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			return events, false, fmt.Errorf("uistream: unexpected line %q", line)
		}
		if payload == DoneMarker {
			return events, true, nil
		}
		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return events, false, fmt.Errorf("uistream: decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, false, sc.Err()
}

// Text concatenates every text-delta in events.
func Text(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == EventTextDelta {
			b.WriteString(ev.Delta)
		}
	}
	return b.String()
}

// Types lists the event types in order.
func Types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
