// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/mcpserver"
	"github.com/starford/nodenote/internal/node"
	"github.com/starford/nodenote/internal/paths"
	"github.com/starford/nodenote/internal/registry"
	"github.com/starford/nodenote/internal/watch"
	"github.com/starford/nodenote/internal/workspace"
)

// App holds the wired components shared by the CLI and the MCP server.
type App struct {
	Config    *Config
	Logger    *slog.Logger
	Registry  *registry.Store
	Workspace *workspace.Service

	version string
}

// NewApp builds the logger, registry store and workspace service.
func NewApp(opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}

	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	out := a.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	regPath, err := cfg.Registry.Path()
	if err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded",
		slog.String("registry_path", regPath),
		slog.String("lock_timeout", cfg.Registry.LockTimeout.String()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := registry.New(regPath,
		registry.WithLogger(logger),
		registry.WithLockTimeout(cfg.Registry.LockTimeout),
	)

	version := a.version
	if version == "" {
		version = "dev"
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  reg,
		Workspace: workspace.New(reg, logger),
		version:   version,
	}, nil
}

// Watch reports node changes in the graph rooted at root until ctx is done.
// The graph's .nodenoteignore applies.
func (a *App) Watch(ctx context.Context, root string, cb watch.Callback) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w: %w", root, apperr.ErrInvalidInput, err)
	}
	dirs := paths.Graph(abs)
	if info, err := os.Stat(dirs.MarkerDir); err != nil || !info.IsDir() {
		return fmt.Errorf("watch: %s is not a graph: %w", abs, apperr.ErrNotFound)
	}
	patterns, err := node.ReadIgnoreFile(filepath.Join(dirs.Root, paths.IgnoreFileName))
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	a.Logger.Info("Watching graph", slog.String("root", dirs.Root))
	return watch.Run(ctx, dirs.NodesDir, watch.Options{
		Debounce: a.Config.Watch.Debounce,
		Patterns: patterns,
		Logger:   a.Logger,
	}, cb)
}

// Serve runs the MCP server on stdio. When mcp.watch_graph is configured the
// watcher runs alongside it and logs node events.
func (a *App) Serve(ctx context.Context) error {
	srv := mcpserver.New(a.Workspace, a.version)

	g, gCtx := errgroup.WithContext(ctx)
	gCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	if root := a.Config.MCP.WatchGraph; root != "" {
		g.Go(func() error {
			return a.Watch(gCtx, root, func(ev watch.Event) {
				a.Logger.Info("node event",
					slog.String("kind", ev.Kind),
					slog.String("node", ev.Node),
					slog.String("path", ev.Path))
			})
		})
	}

	g.Go(func() error {
		// ServeStdio returns when stdin closes or a signal arrives.
		defer cancel()
		a.Logger.Info("Starting MCP server on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.Logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	a.Logger.Info("Server stopped successfully")
	return nil
}

// Run builds the application and serves MCP until shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app, err := NewApp(opts...)
	if err != nil {
		return err
	}
	return app.Serve(ctx)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
