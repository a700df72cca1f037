// Package app assembles the report service: configuration, logger,
// websocket hub, pipeline dependencies, router and HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ordergen/internal/audit"
	"ordergen/internal/config"
	apierrors "ordergen/internal/errors"
	"ordergen/internal/infrastructure"
	"ordergen/internal/master"
	customMiddleware "ordergen/internal/middleware"
	"ordergen/internal/report"
	handlers "ordergen/internal/transport/http"
	ws "ordergen/internal/websocket"
)

// Version is the service version, overridable at build time.
var Version = "dev"

// Application is the assembled service container.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server
	Hub    *ws.Hub

	runsHandler *handlers.RunsHandler
	upgrader    websocket.Upgrader
}

// NewApplication builds the application from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	rules, err := report.RuleSetByName(cfg.Pipeline.RuleSet)
	if err != nil {
		return nil, fmt.Errorf("invalid rule set in configuration: %w", err)
	}

	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	hub := ws.NewHub(logger)
	hub.Start()

	app := &Application{
		Config: cfg,
		Logger: logger,
		Hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		},
	}

	app.runsHandler = handlers.NewRunsHandler(handlers.RunsHandlerConfig{
		Store:         handlers.NewRunStore(),
		MasterClient: master.NewClientWithHTTP(cfg.Master.URL, &http.Client{
			Timeout: cfg.Master.FetchTimeout,
		}),
		DefaultRules:  rules,
		Sink:          &audit.SlogSink{Logger: logger},
		Hub:           hub,
		Logger:        logger,
		UploadsDir:    cfg.Paths.UploadsDir,
		MaxUploadSize: cfg.Pipeline.MaxUploadSize,
	})

	app.setupRouter()
	app.createServer()
	return app, nil
}

// setupRouter configures the HTTP router.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// minimal middleware that will not wrap the ResponseWriter; the
	// websocket route must stay upgradeable
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", a.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.Identity)
		r.Use(customMiddleware.Metrics)
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Server.RateLimitRPS,
			a.Config.Server.RateLimitBurst,
			a.Logger,
		).Handler)

		healthHandler := handlers.NewHealthHandler(Version)
		r.Get("/healthz", healthHandler.Health)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Mount("/runs", a.runsHandler.Routes())
		})
	})

	a.Router = r
}

func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := ws.ServeWS(a.Hub, a.upgrader, w, r); err != nil {
		a.Logger.ErrorContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrWebSocketUpgrade)
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	return a.Shutdown()
}

// Shutdown drains in-flight requests and stops the hub.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline(a.Config.Server.ShutdownTimeout))
	defer cancel()

	a.Hub.Stop()
	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.Logger.Info("server stopped")
	return nil
}

// shutdownDeadline guards against a zero configured timeout.
func shutdownDeadline(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
