package uistream

import (
	"github.com/google/uuid"
)

// Stream sequences one assistant message over a Transport:
//
//	start, start-step, text-start, text-delta..., text-end, finish-step, finish, [DONE]
//
// The opening events are sent lazily with the first delta. Once a write
// fails the stream goes quiet and every later call is a no-op.
type Stream struct {
	t         Transport
	messageID string
	textID    string

	started  bool
	textOpen bool
	closed   bool
	err      error
}

func New(t Transport) *Stream {
	return &Stream{
		t:         t,
		messageID: "msg-" + uuid.NewString(),
		textID:    uuid.NewString(),
	}
}

func (s *Stream) MessageID() string { return s.messageID }

// Started reports whether any event has been sent.
func (s *Stream) Started() bool { return s.started }

// Err returns the first transport failure, if any.
func (s *Stream) Err() error { return s.err }

// Delta appends text to the message. The returned error is the transport
// failure that stopped the stream; callers use it to stop producing.
func (s *Stream) Delta(text string) error {
	if s.closed || s.err != nil {
		return s.err
	}
	if text == "" {
		return nil
	}
	s.begin()
	if !s.textOpen {
		s.send(Event{Type: EventTextStart, ID: s.textID})
		s.textOpen = true
	}
	s.send(Event{Type: EventTextDelta, ID: s.textID, Delta: text})
	return s.err
}

// Finish closes the message normally and terminates the stream.
func (s *Stream) Finish() error {
	if s.closed || s.err != nil {
		return s.err
	}
	s.begin()
	if s.textOpen {
		s.send(Event{Type: EventTextEnd, ID: s.textID})
		s.textOpen = false
	}
	s.send(Event{Type: EventFinishStep})
	s.send(Event{Type: EventFinish})
	s.done()
	return s.err
}

// Fail reports errText to the caller and terminates the stream.
func (s *Stream) Fail(errText string) error {
	if s.closed || s.err != nil {
		return s.err
	}
	s.send(Event{Type: EventError, ErrorText: errText})
	s.done()
	return s.err
}

func (s *Stream) begin() {
	if s.started {
		return
	}
	s.send(Event{Type: EventStart, MessageID: s.messageID})
	s.send(Event{Type: EventStartStep})
}

func (s *Stream) send(ev Event) {
	if s.err != nil {
		return
	}
	s.started = true
	s.err = s.t.Send(ev)
}

func (s *Stream) done() {
	s.closed = true
	if s.err != nil {
		return
	}
	s.err = s.t.Done()
}
