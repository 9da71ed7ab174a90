package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zentra/internal/apperr"
	"zentra/internal/catalog"
	"zentra/internal/gateway/config"
	"zentra/internal/gateway/handler"
	"zentra/internal/gateway/middleware"
	userrepo "zentra/internal/gateway/repository/user"
	"zentra/internal/gateway/server"
	"zentra/internal/gateway/service/advisor"
	"zentra/internal/llm"
	"zentra/internal/logging"
)

type App struct {
	server  *server.Server
	catalog *catalog.Catalog
	store   userrepo.Store
	llm     llm.LLMClient
	logger  *slog.Logger
}

// New wires the service from the environment. The card catalog is loaded
// here so a missing or broken catalog stops startup.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	// Dependencies
	src, err := initCatalogSource(cfg, logger)
	if err != nil {
		return nil, apperr.Configuration("card catalog source", err)
	}
	cat := catalog.New(src)
	snap, err := cat.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("card catalog loaded", "source", snap.Source(), "cards", snap.Len())

	store, err := initUserStore(cfg, logger)
	if err != nil {
		return nil, apperr.Configuration("user store", err)
	}

	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		RPS:      cfg.LLM.RPS,
		Burst:    cfg.LLM.Burst,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, apperr.Configuration("llm client", err)
	}
	logger.Info("llm client ready", "client", client.Name(), "timeout", cfg.LLM.Timeout.String())

	svc, err := advisor.New(advisor.Options{
		Store:   store,
		Catalog: cat,
		LLM:     client,
		Timeout: cfg.LLM.Timeout,
		Logger:  logger,
	})
	if err != nil {
		_ = client.Close()
		_ = store.Close()
		return nil, err
	}

	// Routing & Server
	h := handler.New(svc, store, logger, cfg.CORSOrigins)
	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, logger)
	mux := server.NewMux(h, auth, logger, server.RouteOptions{CORSAllowedOrigins: cfg.CORSOrigins})
	srv := server.New(cfg.Port, mux, logger)

	return &App{
		server:  srv,
		catalog: cat,
		store:   store,
		llm:     client,
		logger:  logger,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// ReloadCatalog re-reads the card catalog. On failure the previous
// snapshot stays in service.
func (a *App) ReloadCatalog(ctx context.Context) error {
	snap, err := a.catalog.Reload(ctx)
	if err != nil {
		a.logger.Error("card catalog reload failed", "error", err)
		return err
	}
	a.logger.Info("card catalog reloaded", "source", snap.Source(), "cards", snap.Len())
	return nil
}

// Shutdown stops accepting requests, then releases the model client and
// the store.
func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(
		a.server.Shutdown(ctx),
		a.llm.Close(),
		a.store.Close(),
	)
}
