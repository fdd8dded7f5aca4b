package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"docchat/internal/admission"
	"docchat/internal/extract"
	"docchat/internal/gateway/config"
	"docchat/internal/gateway/handler"
	"docchat/internal/gateway/server"
	"docchat/internal/llm"
	llmclient "docchat/internal/llmClient"
	"docchat/internal/observability"
	"docchat/internal/proxy"
)

type App struct {
	server  *server.Server
	handler http.Handler
	client  llmclient.StreamClient
	limiter *admission.FixedWindow
	metrics *observability.Metrics
}

// New loads configuration from args and the environment and wires the
// gateway.
func New(ctx context.Context, args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return Build(ctx, cfg, nil)
}

// Build wires the gateway from cfg. A nil client is created from cfg.LLM.
func Build(ctx context.Context, cfg *config.Config, client llmclient.StreamClient) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	if client == nil {
		var err error
		client, err = llmclient.New(ctx, cfg.LLM.Client())
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
		}
	}

	// Dependencies
	metrics := observability.NewMetrics()
	limiter := admission.NewFixedWindow(cfg.Admission.Limit, cfg.Admission.Window,
		admission.WithMaxClients(cfg.Admission.MaxClients))
	metrics.TrackClients(limiter.Len)

	upstream := llm.Wrap(client,
		llm.WithLogging(logger),
		llm.WithMetrics(metrics),
		llm.Throttle(cfg.LLM.RPS, cfg.LLM.Burst),
	)
	px := proxy.New(upstream,
		proxy.WithMaxDuration(cfg.ChatMaxDuration),
		proxy.WithLogger(logger),
	)

	svc := handler.NewService(handler.Deps{
		Admission:      limiter,
		Streamer:       px,
		Extractor:      extract.NewPDF(),
		Metrics:        metrics,
		Logger:         logger,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// Routing & Server
	mux := server.NewMux(svc, metrics.Handler(), cfg.TrustProxyHeaders)
	srv := server.New(cfg.Port, mux)

	log.Printf("chat gateway: provider=%s admission=%d/%s", upstream.Name(), limiter.Limit(), limiter.Window())
	return &App{
		server:  srv,
		handler: mux,
		client:  client,
		limiter: limiter,
		metrics: metrics,
	}, nil
}

// Handler returns the routed handler without the h2c wrapper.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.client.Close(); cerr != nil {
		log.Printf("chat gateway: close provider client: %v", cerr)
	}
	return err
}
