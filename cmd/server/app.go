package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/broadcast"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/realtime"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
	"github.com/phrazzld/taskboard-api/internal/service/board"
	"github.com/phrazzld/taskboard-api/internal/store"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// dependencies are the external resources the application is built on.
// A nil redis client disables the relay.
type dependencies struct {
	tasks   store.TaskStore
	users   store.UserDirectory
	access  access.Checker
	redis   *redis.Client
	closers []func() error
}

// application holds the wired components and owns their lifecycle.
type application struct {
	config *config.Config
	logger *slog.Logger
	deps   dependencies

	tokens     auth.JWTService
	hub        *broadcast.Hub
	dispatcher *broadcast.Dispatcher
	relay      *broadcast.RedisRelay
	registry   *realtime.Registry
	board      *board.Service
}

func newApplication(cfg *config.Config, logger *slog.Logger, deps dependencies) (*application, error) {
	app := &application{config: cfg, logger: logger, deps: deps}

	var err error
	app.tokens, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.hub = broadcast.NewHub(logger)

	// Without redis the dispatcher feeds the local hub directly. With it,
	// every message goes through the channel and comes back to each
	// instance's hub, this one included.
	var sink broadcast.Sink = app.hub
	if deps.redis != nil {
		app.relay = broadcast.NewRedisRelay(deps.redis, cfg.Redis.Channel, app.hub, logger)
		sink = app.relay
	}
	app.dispatcher = broadcast.NewDispatcher(sink, broadcast.DispatcherConfig{
		Workers:   cfg.Broadcast.Workers,
		QueueSize: cfg.Broadcast.QueueSize,
	}, logger)

	app.registry = realtime.NewRegistry(app.hub, app.dispatcher, deps.access,
		realtime.RegistryConfig{ClientBuffer: cfg.Broadcast.ClientBuffer}, logger)

	app.board, err = board.NewService(deps.tasks, deps.users, deps.access, app.dispatcher,
		board.ConfigFromOrdering(cfg.Ordering), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create board service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// Run listens on the configured port and serves until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.cleanup()
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.run(ctx, ln)
}

// run serves on ln until ctx is cancelled or a component fails, then shuts
// everything down.
func (app *application) run(ctx context.Context, ln net.Listener) error {
	defer app.cleanup()

	app.dispatcher.Start()
	defer app.dispatcher.Stop()

	g, ctx := errgroup.WithContext(ctx)
	if app.relay != nil {
		g.Go(func() error { return app.relay.Run(ctx) })
	}
	g.Go(func() error { return app.serve(ctx, ln, app.setupRouter()) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) cleanup() {
	for _, closeFn := range app.deps.closers {
		if err := closeFn(); err != nil {
			app.logger.Error("error releasing resource", "error", err)
		}
	}
}
