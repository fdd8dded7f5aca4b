package llm

import (
	llmclient "docchat/internal/llmClient"
)

// Middleware decorates a StreamClient to inject cross-cutting concerns
// (throttling, logging, metrics).
type Middleware func(llmclient.StreamClient) llmclient.StreamClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.StreamClient, mws ...Middleware) llmclient.StreamClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}
