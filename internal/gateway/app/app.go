package app

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"repofix/internal/fixer"
	"repofix/internal/gateway/config"
	"repofix/internal/gateway/handler"
	"repofix/internal/gateway/middleware"
	"repofix/internal/gateway/server"
	"repofix/internal/llm"
	llmclient "repofix/internal/llmClient"
)

type App struct {
	server  *server.Server
	client  llmclient.LLMClient
	limiter *middleware.ClientLimiter
	log     *zap.Logger
}

// New wires the model client, the fix pipeline and the HTTP server from cfg.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := llm.New(ctx, LLMOptions(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build llm client: %w", err)
	}
	limiter, err := middleware.NewClientLimiter(
		cfg.Server.ClientRPS, cfg.Server.ClientBurst, cfg.Server.ClientCacheSize, cfg.Server.TrustForwarded)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to build client limiter: %w", err)
	}

	svc := fixer.New(client, FixerLimits(cfg), logger)
	fixHandler := handler.NewFixHandler(svc, cfg.Limits.MaxUploadBytes, logger)

	mux := server.NewMux(fixHandler, limiter, logger)
	srv := server.New(cfg.Port, mux, logger)

	logger.Info("app ready",
		zap.String("env", cfg.Env),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", client.Name()),
	)
	return &App{server: srv, client: client, limiter: limiter, log: logger}, nil
}

// LLMOptions maps config onto the model client chain.
func LLMOptions(cfg config.Config) llm.Options {
	return llm.Options{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
		RetryBase:   cfg.LLM.RetryBase,
		RPS:         cfg.LLM.RPS,
		Burst:       cfg.LLM.Burst,
		FakeReply:   cfg.LLM.FakeReply,
	}
}

// FixerLimits maps config onto the pipeline ceilings.
func FixerLimits(cfg config.Config) fixer.Limits {
	return fixer.Limits{
		MaxFiles:        cfg.Limits.MaxFiles,
		MaxTotalBytes:   cfg.Limits.MaxTotalBytes,
		MaxPromptTokens: cfg.Limits.MaxPromptTokens,
	}
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Serve(ln net.Listener) error {
	return a.server.Serve(ln)
}

// Shutdown drains the server, then releases the limiters and the model client.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.limiter.Close()
	if cerr := a.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
