package llmclient

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderFake      = "fake"
)

// Config selects and configures one provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// Providers lists the names accepted by New.
func Providers() []string {
	return []string{ProviderGemini, ProviderAnthropic, ProviderOpenAI, ProviderGroq, ProviderFake}
}

// NormalizeProvider lower-cases the name and defaults to gemini.
func NormalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return ProviderGemini
	}
	return p
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg Config) (StreamClient, error) {
	switch p := NormalizeProvider(cfg.Provider); p {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderGroq:
		return NewGroqClient(cfg.APIKey, cfg.Model)
	case ProviderFake:
		return NewFakeClient(FakeEcho()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
}
