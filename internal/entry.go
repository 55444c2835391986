// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
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
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/berkana/internal/api"
	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/manifest"
	"github.com/starford/berkana/internal/mcpserver"
	"github.com/starford/berkana/internal/sse"
	"github.com/starford/berkana/internal/storage"
	"github.com/starford/berkana/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		mode:    ModeBuild,
		version: "dev",
		logOut:  os.Stderr,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Logs go to stderr: stdout carries the MCP transport.
	logger := newLogger(cfg.App, app.logOut)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("root", cfg.Site.Root),
		slog.String("content_dir", cfg.Site.ContentDir),
		slog.String("manifest_path", cfg.Site.ManifestPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewFS(cfg.Site.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	builder := manifest.NewBuilder(store, cfg.ManifestOptions(), logger)

	switch app.mode {
	case ModeBuild:
		if _, err := builder.Build(ctx); err != nil {
			return fmt.Errorf("build: %w", err)
		}
		return nil
	case ModeWatch:
		return runWatch(ctx, cfg, builder, logger)
	case ModeServe:
		return runServe(ctx, cfg, store, builder, logger)
	case ModeMCP:
		return runMCP(ctx, app, store, builder, logger)
	}
	return fmt.Errorf("unknown mode %q", app.mode)
}

func runWatch(ctx context.Context, cfg *Config, builder *manifest.Builder, logger *slog.Logger) error {
	if _, err := builder.Build(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	return watch.Watch(ctx, builder, cfg.WatchOptions(logger), nil)
}

func runServe(ctx context.Context, cfg *Config, store storage.Provider, builder *manifest.Builder, logger *slog.Logger) error {
	cat, closeIndex, err := openCatalog(cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	res, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	apply(ctx, cat, res, logger)

	// SSE broker; clients already have the manifest built above.
	broker := sse.NewBroker(res.Digest)
	defer broker.Close()

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := cat.Snapshot(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"starting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; everything else is the site itself.
	r.Mount("/api", api.NewRouter(cat, broker))
	r.Handle("/*", api.StaticHandler(cfg.Site.Root))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Event streams only end when the broker closes them.
	httpServer.RegisterOnShutdown(broker.Close)

	g, gCtx := errgroup.WithContext(ctx)

	// Rebuild on change and tell connected viewers.
	g.Go(func() error {
		opts := cfg.WatchOptions(logger)
		opts.OnError = func(err error) {
			broker.Publish(sse.Event{Type: sse.EventBuildFailed, Data: map[string]string{"error": err.Error()}})
		}
		return watch.Watch(gCtx, builder, opts, func(res *manifest.Result) {
			apply(gCtx, cat, res, logger)
			broker.PublishManifest(sse.ManifestUpdate{
				Digest: res.Digest,
				Notes:  res.Stats.Notes,
				Parsed: res.Stats.Parsed,
				Reused: res.Stats.Reused,
			})
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut down once a signal arrives or another goroutine fails.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
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

func runMCP(ctx context.Context, app *application, store storage.Provider, builder *manifest.Builder, logger *slog.Logger) error {
	cfg := app.config
	cat, closeIndex, err := openCatalog(cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	res, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	apply(ctx, cat, res, logger)

	srv := mcpserver.New(cat, app.version, logger)

	g, gCtx := errgroup.WithContext(ctx)
	mcpCtx, cancel := context.WithCancel(gCtx)

	// The client closing stdin ends the session and the watcher with it.
	g.Go(func() error {
		defer cancel()
		return srv.Serve(mcpCtx, app.stdin, app.stdout)
	})
	g.Go(func() error {
		return watch.Watch(mcpCtx, builder, cfg.WatchOptions(logger), func(res *manifest.Result) {
			apply(mcpCtx, cat, res, logger)
		})
	})

	return g.Wait()
}

// openCatalog opens the search index when configured. The returned func
// closes it.
func openCatalog(cfg *Config, store storage.Provider, logger *slog.Logger) (*catalog.Service, func(), error) {
	if !cfg.SQLite.Enabled() {
		return catalog.New(store, nil, cfg.CatalogOptions(), logger), func() {}, nil
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	closeIndex := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close index failed", slog.String("error", err.Error()))
		}
	}
	return catalog.New(store, db, cfg.CatalogOptions(), logger), closeIndex, nil
}

// apply publishes res; an index that fails to sync only degrades search.
func apply(ctx context.Context, cat *catalog.Service, res *manifest.Result, logger *slog.Logger) {
	if err := cat.Apply(ctx, res); err != nil && ctx.Err() == nil {
		logger.Warn("catalog update failed", slog.String("error", err.Error()))
	}
}

func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if useTextLogs(cfg.LogFormat, w) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func useTextLogs(format string, w io.Writer) bool {
	switch format {
	case LogFormatText:
		return true
	case LogFormatAuto:
		f, ok := w.(*os.File)
		return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
	return false
}
