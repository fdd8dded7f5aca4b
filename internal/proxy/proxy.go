// Package proxy relays a validated chat request to a streaming model and
// hands the output back chunk by chunk.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"docchat/internal/chat"
	llmclient "docchat/internal/llmClient"
)

const (
	DocumentPreamble = "You are a helpful document assistant. The user has uploaded a document. " +
		"Answer their questions based on the following document content. " +
		"If the answer is not in the document, say so clearly.\n\nDocument content:\n"
	GenericPreamble = "You are a helpful assistant."

	DefaultMaxDuration = 30 * time.Second
)

// ErrorMessage is the only failure text callers ever receive.
const ErrorMessage = "An unexpected error occurred. Please try again."

// UpstreamError is a failed exchange with the provider, including setup
// failures such as message conversion.
type UpstreamError struct {
	Err error
	// Started reports whether any chunk reached the caller before the failure.
	Started bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("proxy: upstream failed (started=%t): %v", e.Started, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Sink receives text chunks in provider order. A non-nil error stops the
// exchange.
type Sink func(chunk string) error

// Proxy forwards chat requests to one provider client.
type Proxy struct {
	client      llmclient.StreamClient
	maxDuration time.Duration
	log         *log.Logger
}

type Option func(*Proxy)

func WithMaxDuration(d time.Duration) Option {
	return func(p *Proxy) {
		if d > 0 {
			p.maxDuration = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Proxy) {
		if l != nil {
			p.log = l
		}
	}
}

func New(client llmclient.StreamClient, opts ...Option) *Proxy {
	p := &Proxy{
		client:      client,
		maxDuration: DefaultMaxDuration,
		log:         log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SystemPrompt builds the system instruction for documentContext.
func SystemPrompt(documentContext string) string {
	if documentContext == "" {
		return GenericPreamble
	}
	return DocumentPreamble + documentContext
}

// BuildSession turns a validated request into the provider-facing session.
func BuildSession(req chat.Request) (llmclient.Session, error) {
	msgs, err := ConvertMessages(req.Messages)
	if err != nil {
		return llmclient.Session{}, err
	}
	return llmclient.Session{
		System:   SystemPrompt(chat.Truncate(req.DocumentContext, chat.MaxDocumentContext)),
		Messages: msgs,
	}, nil
}

// Stream runs one exchange and calls onChunk for each text fragment as soon
// as the provider emits it. Any failure comes back as *UpstreamError after
// being logged in full.
func (p *Proxy) Stream(ctx context.Context, req chat.Request, onChunk Sink) error {
	sess, err := BuildSession(req)
	if err != nil {
		p.log.Printf("chat proxy: build session: %v", err)
		return &UpstreamError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.maxDuration)
	defer cancel()

	started := false
	err = p.client.StreamChat(ctx, sess, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		started = true
		return onChunk(chunk)
	})
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("exchange exceeded %s: %w", p.maxDuration, err)
	}
	p.log.Printf("chat proxy: stream via %s failed (started=%t): %v", p.client.Name(), started, err)
	return &UpstreamError{Err: err, Started: started}
}
