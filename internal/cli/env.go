package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/platform/postgres"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// Backend is an open connection to the board's storage.
type Backend struct {
	// DB is nil for backends that are not SQL databases; commands that need
	// it report an error.
	DB    *sql.DB
	Tasks store.TaskStore
	Close func() error
}

// Env supplies configuration and storage to the commands.
type Env struct {
	LoadConfig func() (*config.Config, error)
	Open       func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)
	// Logger receives operational logs. Command output goes to the
	// command's writers instead.
	Logger *slog.Logger
}

// DefaultEnv reads KANBAN_* configuration and connects to Postgres.
func DefaultEnv(logs io.Writer) *Env {
	return &Env{
		LoadConfig: config.Load,
		Open:       openPostgres,
		Logger:     slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Backend{
		DB:    db,
		Tasks: postgres.NewPostgresTaskStore(db, logger),
		Close: db.Close,
	}, nil
}

// withBackend loads configuration, opens the backend and runs fn.
func (o *RootOptions) withBackend(ctx context.Context, fn func(cfg *config.Config, b *Backend) error) error {
	cfg, err := o.env.LoadConfig()
	if err != nil {
		return err
	}
	b, err := o.env.Open(ctx, cfg, o.env.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if b.Close != nil {
			if err := b.Close(); err != nil {
				o.env.Logger.Warn("failed to close backend", "error", err)
			}
		}
	}()
	return fn(cfg, b)
}
