package uistream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SSE writes events as server-sent events. Headers and the 200 status are
// committed on the first write, so a caller can still answer with a plain
// error response until then.
type SSE struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	committed bool
}

func NewSSE(w http.ResponseWriter) *SSE {
	return &SSE{w: w, rc: http.NewResponseController(w)}
}

// Committed reports whether the status line has been written.
func (s *SSE) Committed() bool { return s.committed }

func (s *SSE) open() {
	if s.committed {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(HeaderName, HeaderValue)
	s.w.WriteHeader(http.StatusOK)
	s.committed = true
}

func (s *SSE) Send(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("uistream: encode %s: %w", ev.Type, err)
	}
	return s.write(b)
}

func (s *SSE) Done() error {
	return s.write([]byte(DoneMarker))
}

func (s *SSE) write(payload []byte) error {
	s.open()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("uistream: write: %w", err)
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("uistream: flush: %w", err)
	}
	return nil
}
