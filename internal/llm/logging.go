package llm

import (
	"context"
	"log"
	"time"

	llmclient "docchat/internal/llmClient"
)

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.StreamClient) llmclient.StreamClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.StreamClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) StreamChat(ctx context.Context, s llmclient.Session, onChunk func(chunk string) error) error {
	size := len(s.System)
	for _, m := range s.Messages {
		size += len(m.Content)
	}
	l.log.Printf("LLM stream request (%s): %d messages, %d bytes", l.next.Name(), len(s.Messages), size)

	start := time.Now()
	chunks := 0
	err := l.next.StreamChat(ctx, s, func(c string) error {
		chunks++
		return onChunk(c)
	})
	if err != nil {
		l.log.Printf("LLM stream error (%s) after %d chunks in %s: %v", l.next.Name(), chunks, time.Since(start).Round(time.Millisecond), err)
		return err
	}
	l.log.Printf("LLM stream done (%s): %d chunks in %s", l.next.Name(), chunks, time.Since(start).Round(time.Millisecond))
	return nil
}
