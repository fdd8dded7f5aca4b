package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"docchat/internal/admission"
	llmclient "docchat/internal/llmClient"
	"docchat/internal/proxy"
)

const (
	DefaultMaxBodyBytes   = 8 << 20
	DefaultMaxUploadBytes = 20 << 20
)

type Config struct {
	Port string
	Env  string

	Admission AdmissionConfig
	LLM       LLMConfig

	// TrustProxyHeaders takes client identity from X-Forwarded-For.
	TrustProxyHeaders bool
	MaxBodyBytes      int64
	MaxUploadBytes    int64
	ChatMaxDuration   time.Duration
}

type AdmissionConfig struct {
	Limit      int
	Window     time.Duration
	MaxClients int
}

type LLMConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	// RPS paces upstream calls; zero disables pacing.
	RPS   float64
	Burst int
}

// Client returns the provider factory config.
func (c LLMConfig) Client() llmclient.Config {
	return llmclient.Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		MaxTokens: c.MaxTokens,
	}
}

// Load reads .env (when present), then flags from args, then environment
// overrides.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8080", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{Port: *port, Env: env}
	var err error
	if cfg.Admission, err = loadAdmissionConfig(); err != nil {
		return nil, err
	}
	if cfg.LLM, err = loadLLMConfig(); err != nil {
		return nil, err
	}
	if cfg.TrustProxyHeaders, err = envBool("TRUST_PROXY_HEADERS", true); err != nil {
		return nil, err
	}
	if cfg.MaxBodyBytes, err = envInt64("MAX_BODY_BYTES", DefaultMaxBodyBytes); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = envInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes); err != nil {
		return nil, err
	}
	if cfg.ChatMaxDuration, err = envDuration("CHAT_MAX_DURATION", proxy.DefaultMaxDuration); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAdmissionConfig() (AdmissionConfig, error) {
	var (
		ac  AdmissionConfig
		err error
	)
	if ac.Limit, err = envInt("RATE_LIMIT_MAX", admission.DefaultLimit); err != nil {
		return ac, err
	}
	if ac.Window, err = envDuration("RATE_LIMIT_WINDOW", admission.DefaultWindow); err != nil {
		return ac, err
	}
	if ac.MaxClients, err = envInt("RATE_LIMIT_MAX_CLIENTS", admission.DefaultMaxClients); err != nil {
		return ac, err
	}
	if ac.Limit <= 0 || ac.Window <= 0 || ac.MaxClients <= 0 {
		return ac, fmt.Errorf("config: rate limit values must be positive (max=%d window=%s clients=%d)", ac.Limit, ac.Window, ac.MaxClients)
	}
	return ac, nil
}

func loadLLMConfig() (LLMConfig, error) {
	provider := llmclient.NormalizeProvider(os.Getenv("LLM_PROVIDER"))
	lc := LLMConfig{
		Provider: provider,
		Model:    strings.TrimSpace(os.Getenv("LLM_MODEL")),
		APIKey:   firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_API_KEY")), providerAPIKey(provider)),
		BaseURL:  strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
	}
	var err error
	if lc.MaxTokens, err = envInt("LLM_MAX_TOKENS", 0); err != nil {
		return lc, err
	}
	if lc.RPS, err = envFloat("LLM_RPS", 0); err != nil {
		return lc, err
	}
	if lc.Burst, err = envInt("LLM_BURST", 1); err != nil {
		return lc, err
	}
	return lc, nil
}

func providerAPIKey(provider string) string {
	switch provider {
	case llmclient.ProviderGemini:
		return firstNonEmpty(
			strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			strings.TrimSpace(os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY")),
		)
	case llmclient.ProviderAnthropic:
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case llmclient.ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case llmclient.ProviderGroq:
		return strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	}
	return ""
}

// envDuration accepts Go durations ("90s") or bare milliseconds ("60000").
func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func envInt64(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
