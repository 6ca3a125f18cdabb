// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/casemap/internal/api"
	"github.com/starford/casemap/internal/dashboard"
	"github.com/starford/casemap/internal/mcpserver"
	"github.com/starford/casemap/internal/source"
	"github.com/starford/casemap/internal/sse"
	"github.com/starford/casemap/internal/watch"
	"github.com/starford/casemap/internal/web"
)

// Version is reported by the CLI and to MCP clients.
var Version = "1.0.0"

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadService opens the configured source and performs the initial load.
// A dataset that cannot be loaded is fatal.
func (a *application) loadService(ctx context.Context, logger *slog.Logger, onLoad func(*dashboard.Snapshot)) (*dashboard.Service, source.Source, error) {
	cfg := a.config.Dataset
	src, err := source.New(cfg.Source, cfg.Path, cfg.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("init source: %w", err)
	}

	svc := dashboard.NewService(src, cfg.Columns, logger)
	if onLoad != nil {
		svc.OnLoad(onLoad)
	}
	if _, _, err := svc.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("load dataset %s: %w", src, err)
	}
	return svc, src, nil
}

// watchSource reloads svc whenever the source file settles after a change.
// Failed reloads keep the previous snapshot.
func (a *application) watchSource(ctx context.Context, svc *dashboard.Service, src source.Source, logger *slog.Logger) error {
	return watch.Watch(ctx, src.Path(), a.config.Dataset.ReloadDebounce, logger, func() {
		if _, _, err := svc.Load(ctx); err != nil {
			logger.Warn("dataset reload failed, keeping previous snapshot",
				slog.String("source", src.String()),
				slog.String("error", err.Error()))
		}
	})
}

type loadedEvent struct {
	Checksum string `json:"checksum"`
	Count    int    `json:"count"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	First    string `json:"first,omitempty"`
	Last     string `json:"last,omitempty"`
}

func newLoadedEvent(snap *dashboard.Snapshot) sse.Event {
	s := snap.Summary()
	return sse.Event{
		Type: sse.EventDatasetLoaded,
		Data: loadedEvent{
			Checksum: s.Checksum,
			Count:    s.Dates,
			Min:      0,
			Max:      s.Dates - 1,
			First:    s.First,
			Last:     s.Last,
		},
	}
}

func writeStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// newHandler builds the top-level router: health checks, the page and /api.
func newHandler(cfg *Config, svc *dashboard.Service, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.App.HTTP.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.App.HTTP.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "If-None-Match"},
			ExposedHeaders: []string{"ETag"},
			MaxAge:         300,
		}))
	}

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, `{"status":"ok"}`)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := svc.Current(); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, `{"status":"loading"}`)
			return
		}
		writeStatus(w, http.StatusOK, `{"status":"ok"}`)
	})

	r.Get("/", web.Handler(svc, web.Options{
		Title:     cfg.UI.Title,
		Footer:    cfg.UI.Footer,
		PlotlyURL: cfg.UI.PlotlyURL,
	}))

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.App.HTTP.RequestTimeout)
	r.Route("/api", func(r chi.Router) {
		r.Use(api.RateLimit(cfg.App.HTTP.RateLimit.RPS, cfg.App.HTTP.RateLimit.Burst))
		r.Mount("/", apiRouter)
	})

	return r
}

// Run starts the dashboard HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("dataset_source", cfg.Dataset.Source),
		slog.String("dataset_path", cfg.Dataset.Path),
		slog.Bool("dataset_watch", cfg.Dataset.Watch),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker()
	defer broker.Close()

	svc, src, err := app.loadService(ctx, logger, func(snap *dashboard.Snapshot) {
		broker.Publish(newLoadedEvent(snap))
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHandler(cfg, svc, broker),
		ReadHeaderTimeout: cfg.App.HTTP.RequestTimeout,
		IdleTimeout:       2 * cfg.App.HTTP.RequestTimeout,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Dataset.Watch {
		g.Go(func() error {
			if err := app.watchSource(gCtx, svc, src, logger); err != nil {
				return fmt.Errorf("dataset watcher error: %w", err)
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()

		// Event streams only end when the broker closes.
		broker.Close()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP loads the dataset and serves the MCP tools on stdin/stdout.
// Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	svc, src, err := app.loadService(ctx, logger, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if app.config.Dataset.Watch {
		go func() {
			if err := app.watchSource(ctx, svc, src, logger); err != nil {
				logger.Error("dataset watcher error", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting", slog.String("source", src.String()))
	return mcpserver.New(svc, Version).ServeStdio()
}

// resolveOutput is what Resolve prints.
type resolveOutput struct {
	Position int    `json:"position"`
	Date     string `json:"date"`
	Label    string `json:"label"`
	Figure   any    `json:"figure"`
}

// Resolve loads the dataset once and writes the selection for position to out
// as indented JSON. With plotly set the figure is the plotly.js document.
func Resolve(ctx context.Context, position int, plotly bool, out io.Writer, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	svc, _, err := app.loadService(ctx, app.logger(), nil)
	if err != nil {
		return err
	}

	sel, _, err := svc.Resolve(ctx, position)
	if err != nil {
		return err
	}

	res := resolveOutput{
		Position: sel.Position,
		Date:     sel.Date.Format(dashboard.DateLayout),
		Label:    sel.Label,
		Figure:   sel.Figure,
	}
	if plotly {
		res.Figure = sel.Figure.Plotly()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
