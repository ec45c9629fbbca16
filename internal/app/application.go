// Package app wires the components into a runnable server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"pollboard/internal/api"
	"pollboard/internal/config"
	"pollboard/internal/history"
	"pollboard/internal/poll"
	"pollboard/internal/registry"
	"pollboard/internal/session"
	"pollboard/internal/websocket"
)

// Application owns the component graph and the HTTP server.
type Application struct {
	cfg         config.Config
	store       history.Store
	coordinator *session.Coordinator
	httpServer  *http.Server
}

// NewApplication builds all components in dependency order:
// history store, poll engine, registry, coordinator, websocket, API, HTTP.
func NewApplication(cfg config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var store history.Store
	switch cfg.History.Backend {
	case "sqlite":
		sqliteStore, err := history.NewSQLiteStore(cfg.History.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		store = sqliteStore
	default:
		store = history.NewMemoryStore()
	}

	engine := poll.NewEngine(store)
	reg := registry.NewRegistry()
	coordinator := session.NewCoordinator(reg, engine)

	wsHandler := websocket.NewHandler(coordinator, websocket.Options{
		PingInterval: cfg.WebSocket.PingInterval,
		ReadTimeout:  cfg.WebSocket.ReadTimeout,
		SendBuffer:   cfg.WebSocket.SendBuffer,
	})
	apiServer := api.NewServer(coordinator, store)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
		// WriteTimeout would kill long-lived websocket connections, so
		// only the request-read side is bounded here.
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
	}

	return &Application{
		cfg:         cfg,
		store:       store,
		coordinator: coordinator,
		httpServer:  httpServer,
	}, nil
}

// Start launches the coordinator and then the HTTP server. It returns once
// the server is accepting connections or startup has failed.
func (app *Application) Start(ctx context.Context) error {
	log.Info().Str("addr", app.httpServer.Addr).Str("history", app.cfg.History.Backend).Msg("starting pollboard")

	if err := app.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.coordinator.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Info().Msg("pollboard started")
		return nil
	case <-ctx.Done():
		_ = app.coordinator.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP, coordinator, store.
func (app *Application) Stop(ctx context.Context) error {
	log.Info().Msg("shutting down pollboard")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}
	if err := app.coordinator.Stop(); err != nil && err != session.ErrNotRunning {
		log.Warn().Err(err).Msg("coordinator shutdown")
	}
	if closer, ok := app.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("history store close")
		}
	}

	log.Info().Msg("pollboard shutdown complete")
	return nil
}

// Addr returns the configured listen address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
