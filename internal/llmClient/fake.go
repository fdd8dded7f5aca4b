package llmclient

import (
	"context"
	"strings"
	"sync"
	"time"
)

// FakeReply scripts one streamed answer.
type FakeReply struct {
	Chunks []string
	// Err is returned after Chunks were emitted.
	Err error
	// Hang blocks after Chunks until the context is done.
	Hang bool
	// Delay is slept before every chunk.
	Delay time.Duration
}

type FakeScript func(Session) FakeReply

// FakeClient returns deterministic, scripted streams for offline/testing.
type FakeClient struct {
	script FakeScript

	mu       sync.Mutex
	sessions []Session
}

func NewFakeClient(script FakeScript) *FakeClient {
	if script == nil {
		script = FakeEcho()
	}
	return &FakeClient{script: script}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) StreamChat(ctx context.Context, s Session, onChunk func(chunk string) error) error {
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()

	reply := f.script(s)
	for _, c := range reply.Chunks {
		if reply.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reply.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(c); err != nil {
			return err
		}
	}
	if reply.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return reply.Err
}

// Calls returns how many streams were started.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// LastSession returns the most recent session passed to StreamChat.
func (f *FakeClient) LastSession() (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return Session{}, false
	}
	return f.sessions[len(f.sessions)-1], true
}

// FakeEcho streams the last user message back word by word.
func FakeEcho() FakeScript {
	return func(s Session) FakeReply {
		last := ""
		for i := len(s.Messages) - 1; i >= 0; i-- {
			if s.Messages[i].Role == RoleUser {
				last = s.Messages[i].Content
				break
			}
		}
		words := strings.Fields(last)
		chunks := make([]string, 0, len(words))
		for i, w := range words {
			if i > 0 {
				w = " " + w
			}
			chunks = append(chunks, w)
		}
		return FakeReply{Chunks: chunks}
	}
}

func FakeChunks(chunks ...string) FakeScript {
	return func(Session) FakeReply { return FakeReply{Chunks: chunks} }
}

func FakeFailAfter(err error, chunks ...string) FakeScript {
	return func(Session) FakeReply { return FakeReply{Chunks: chunks, Err: err} }
}

func FakeHang(chunks ...string) FakeScript {
	return func(Session) FakeReply { return FakeReply{Chunks: chunks, Hang: true} }
}
