package llm

import (
	"context"

	"golang.org/x/time/rate"

	llmclient "docchat/internal/llmClient"
)

// Throttle paces calls to the upstream provider at rps with the given burst.
// It waits instead of failing, so the caller's deadline still bounds the
// exchange. If rps <= 0, the limiter is disabled.
func Throttle(rps float64, burst int) Middleware {
	return func(next llmclient.StreamClient) llmclient.StreamClient {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &throttled{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type throttled struct {
	next llmclient.StreamClient
	rl   *rate.Limiter
}

func (c *throttled) Name() string { return c.next.Name() }
func (c *throttled) Close() error { return c.next.Close() }

func (c *throttled) StreamChat(ctx context.Context, s llmclient.Session, onChunk func(chunk string) error) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	return c.next.StreamChat(ctx, s, onChunk)
}
