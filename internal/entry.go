// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/backup"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/pageservice"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/workspace"
)

// engine bundles the initialized core components.
type engine struct {
	provider storage.Provider
	ws       *workspace.Store
	db       *index.DB
	backups  *backup.Manager
	logger   *slog.Logger
}

// buildEngine initializes storage, the workspace, the index, and the backup
// manager from configuration.
func buildEngine(cfg *Config, logger *slog.Logger) (*engine, error) {
	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	provider, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	ws := workspace.NewStore(provider, logger)
	if _, err := ws.Load(); err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	snap, err := ws.Snapshot()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := index.Sync(db, snap, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &engine{
		provider: provider,
		ws:       ws,
		db:       db,
		backups:  backup.NewManager(provider, ws, logger),
		logger:   logger,
	}, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP engine with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.db.Close()

	// Sweep expired backup artifacts on startup.
	if _, err := eng.backups.Prune(cfg.Backup.Retention()); err != nil {
		logger.Warn("backup prune failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := pageservice.NewService(eng.ws, eng.backups, eng.db, broker, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	// Automatic backups, if a schedule is configured.
	var scheduler *backup.Scheduler
	if cfg.Backup.Schedule != "" {
		scheduler, err = backup.NewScheduler(eng.backups, cfg.Backup.Schedule, cfg.Backup.MaxBackups, logger)
		if err != nil {
			return fmt.Errorf("backup schedule: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the workspace artifact for external edits. Our own durable writes
	// also fire the watcher, so compare the on-disk artifact against the
	// in-memory fingerprint before reloading.
	g.Go(func() error {
		return workspace.Watch(gCtx, cfg.Data.Path, logger, func() {
			data, err := eng.provider.Read(workspace.ArtifactName)
			if err != nil {
				logger.Warn("watcher: read artifact failed", slog.String("error", err.Error()))
				return
			}
			own, err := eng.ws.Fingerprint()
			if err == nil && own == checksum.Sum(data) {
				return
			}
			logger.Info("watcher: external artifact change, reloading")
			if err := svc.ReloadFromDisk(gCtx); err != nil {
				logger.Error("watcher: reload failed", slog.String("error", err.Error()))
			}
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

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

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

// RunMCP starts the MCP stdio server over the same engine the HTTP mode uses.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Logs go to stderr: stdout carries the MCP protocol.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.db.Close()

	svc := pageservice.NewService(eng.ws, eng.backups, eng.db, nil, logger)
	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}
