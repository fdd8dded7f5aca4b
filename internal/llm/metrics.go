package llm

import (
	"context"
	"time"

	llmclient "docchat/internal/llmClient"
	"docchat/internal/observability"
)

// WithMetrics records stream latency, chunk counts and upstream failures.
func WithMetrics(m *observability.Metrics) Middleware {
	return func(next llmclient.StreamClient) llmclient.StreamClient {
		if m == nil {
			return next
		}
		return &metered{next: next, m: m}
	}
}

type metered struct {
	next llmclient.StreamClient
	m    *observability.Metrics
}

func (c *metered) Name() string { return c.next.Name() }
func (c *metered) Close() error { return c.next.Close() }

func (c *metered) StreamChat(ctx context.Context, s llmclient.Session, onChunk func(chunk string) error) error {
	provider := c.next.Name()
	start := time.Now()
	chunks := 0
	c.m.StreamStarted()

	err := c.next.StreamChat(ctx, s, func(chunk string) error {
		if chunks == 0 {
			c.m.FirstChunk(provider, time.Since(start).Seconds())
		}
		chunks++
		c.m.Chunk(provider)
		return onChunk(chunk)
	})

	c.m.StreamEnded(provider, time.Since(start).Seconds(), chunks, err)
	return err
}
