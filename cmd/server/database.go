package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/platform/postgres"
	"github.com/redis/go-redis/v9"
)

// setupAppDatabase opens the connection pool and checks the database is
// reachable.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}

// postgresDeps builds the production stores. The schema must already be
// migrated; see boardctl migrate.
func postgresDeps(cfg *config.Config, db *sql.DB, logger *slog.Logger) (dependencies, error) {
	version, err := postgres.SchemaVersion(db, logger)
	if err != nil {
		return dependencies{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("database schema version", "version", version)

	deps := dependencies{
		tasks:   postgres.NewPostgresTaskStore(db, logger),
		users:   postgres.NewPostgresUserStore(db),
		access:  postgres.NewMembershipChecker(db),
		closers: []func() error{db.Close},
	}

	if cfg.RedisEnabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return dependencies{}, fmt.Errorf("invalid redis url: %w", err)
		}
		deps.redis = redis.NewClient(opts)
		deps.closers = append(deps.closers, deps.redis.Close)
	}
	return deps, nil
}
