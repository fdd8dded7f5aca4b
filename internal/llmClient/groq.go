package llmclient

import (
	"os"
	"strings"
)

const (
	DefaultGroqModel = "llama-3.3-70b-versatile"
	groqBaseURL      = "https://api.groq.com/openai/v1"
)

// NewGroqClient returns a client for Groq's OpenAI-compatible API.
// If apiKey is empty, it falls back to GROQ_API_KEY env var.
func NewGroqClient(apiKey, model string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	return newOpenAICompatible("Groq", apiKey, model, groqBaseURL, DefaultGroqModel)
}
