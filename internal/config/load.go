package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. KANBAN_DATABASE_URL for database.url.
const EnvPrefix = "KANBAN"

var defaults = map[string]any{
	"server.port":                    8080,
	"server.log_level":               "info",
	"server.shutdown_timeout_seconds": 10,
	"database.url":                   "",
	"auth.jwt_secret":                "",
	"auth.token_lifetime_minutes":    60,
	"redis.url":                      "",
	"redis.channel":                  "taskboard:events",
	"broadcast.workers":              4,
	"broadcast.queue_size":           1024,
	"broadcast.client_buffer":        256,
	"ordering.collision_epsilon":     1e-6,
	"ordering.max_move_attempts":     3,
}

// Load reads configuration from defaults, an optional config.yaml in the
// working directory, and KANBAN_* environment variables, in increasing order
// of precedence. The result is validated before it is returned.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags on cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
