// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/testrack/internal/catalog"
	"github.com/starford/testrack/internal/mcpserver"
	"github.com/starford/testrack/internal/storage"
	"github.com/starford/testrack/internal/tracker"
)

// NewLogger returns the structured JSON logger used by every command.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Workspace bundles the storage, optional catalog and service for one
// workspace root.
type Workspace struct {
	Store   storage.Provider
	Catalog *catalog.DB
	Service *tracker.Service
}

// Close releases the catalog, if any.
func (w *Workspace) Close() error {
	if w.Catalog == nil {
		return nil
	}
	return w.Catalog.Close()
}

// OpenWorkspace initializes storage and, when enabled, opens and syncs the
// search catalog.
func OpenWorkspace(cfg *Config, logger *slog.Logger) (*Workspace, error) {
	store, err := storage.NewFS(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	ws := &Workspace{Store: store}

	opts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithTrash(cfg.Workspace.Trash),
	}
	if cfg.SQLite.Enabled {
		dbPath := cfg.SQLite.Resolve(store.Root())
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
		db, err := catalog.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("init catalog: %w", err)
		}
		if err := catalog.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		ws.Catalog = db
		opts = append(opts, tracker.WithCatalog(db))
	}
	ws.Service = tracker.NewService(store, opts...)
	return ws, nil
}

// Run watches the workspace, keeping the catalog current, and optionally
// serves MCP until a signal arrives or the MCP client disconnects.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := NewLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("workspace_root", cfg.Workspace.Root),
		slog.Bool("catalog", cfg.SQLite.Enabled),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Duration("debounce", cfg.Watch.Debounce),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ws, err := OpenWorkspace(cfg, logger)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	var srv *mcpserver.Server
	if app.serveMCP {
		srv = mcpserver.New(ws.Service, app.version)
		g.Go(func() error {
			logger.Info("Starting MCP server on stdio")
			err := srv.Serve(gCtx, app.stdin, app.stdout, logger)
			// The client closing stdin ends the session.
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

	if ws.Catalog != nil {
		g.Go(func() error {
			return catalog.Watch(gCtx, ws.Catalog, ws.Store, cfg.Watch.Debounce, logger, func(kind, path string) {
				logger.Info("workspace changed", slog.String("event", kind), slog.String("path", path))
				if srv != nil {
					srv.NotifyChange(kind, path)
				}
			})
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}
