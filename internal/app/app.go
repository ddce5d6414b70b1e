// Package app wires the whole service together: configuration, logging,
// telemetry, the session store, the websocket hub, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cleanbot/internal/config"
	apierrors "cleanbot/internal/errors"
	"cleanbot/internal/infrastructure"
	"cleanbot/internal/middleware"
	"cleanbot/internal/services"
	"cleanbot/internal/session"
	transporthttp "cleanbot/internal/transport/http"
	"cleanbot/internal/websocket"
)

// Application owns every long-lived component of the service.
type Application struct {
	cfg       *config.Config
	logger    *slog.Logger
	providers *infrastructure.Providers
	hub       *websocket.Hub
	server    *http.Server
}

// New builds the application from configuration. traceOut receives
// exported spans; pass io.Discard outside development.
func New(cfg *config.Config, traceOut io.Writer) (*Application, error) {
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	providers, err := infrastructure.NewProviders(traceOut)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	metrics, err := infrastructure.NewBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	hub := websocket.NewHub(logger)
	store := session.NewMemoryStore()
	service := services.NewCleanService(store, logger, providers.Tracer, metrics, hub)

	router := newRouter(cfg, logger, providers, service, hub)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		providers: providers,
		hub:       hub,
		server:    server,
	}, nil
}

// Run starts the hub and the HTTP server and blocks until shutdown.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down",
		slog.Duration("timeout", a.cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}
	if err := a.providers.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("telemetry shutdown: %w", err)
	}
	return firstErr
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newRouter(cfg *config.Config, logger *slog.Logger, providers *infrastructure.Providers, service *services.CleanService, hub *websocket.Hub) chi.Router {
	errorHandler := apierrors.NewErrorHandler(logger)
	cleanHandler := transporthttp.NewCleanHandler(service, cfg.Upload, logger, errorHandler)
	wsHandler := transporthttp.NewWSHandler(hub, cfg.WebSocket, cfg.Security.AllowedOrigins, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.HTTPMetrics(providers.Registry))
	if cfg.Security.EnableCORS {
		r.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	}
	r.Use(middleware.RateLimit(cfg.Security.RateLimit))

	r.Get("/", transporthttp.Index)
	r.Get("/ws", wsHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(providers.Registry, promhttp.HandlerOpts{}))

	r.Get("/api/healthz", transporthttp.Healthz)
	r.Mount("/api", cleanHandler.Routes())

	return r
}
