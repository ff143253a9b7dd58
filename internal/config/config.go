package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Broadcast BroadcastConfig `mapstructure:"broadcast" validate:"required"`
	Ordering  OrderingConfig  `mapstructure:"ordering" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the settings used to validate and mint access tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// RedisConfig enables cross-instance event relay when URL is set.
type RedisConfig struct {
	URL     string `mapstructure:"url" validate:"omitempty,url"`
	Channel string `mapstructure:"channel" validate:"required_with=URL"`
}

// BroadcastConfig sizes the event fan-out machinery.
type BroadcastConfig struct {
	// Workers is the number of dispatcher shards. Each topic always maps to
	// the same shard.
	Workers int `mapstructure:"workers" validate:"gte=1"`
	// QueueSize bounds each shard's pending publishes.
	QueueSize int `mapstructure:"queue_size" validate:"gte=1"`
	// ClientBuffer bounds each connection's outbound queue.
	ClientBuffer int `mapstructure:"client_buffer" validate:"gte=1"`
}

// OrderingConfig tunes position allocation and move retries.
type OrderingConfig struct {
	CollisionEpsilon float64 `mapstructure:"collision_epsilon" validate:"gt=0"`
	MaxMoveAttempts  int     `mapstructure:"max_move_attempts" validate:"gte=1,lte=20"`
}

// RedisEnabled reports whether the redis relay should be started.
func (c *Config) RedisEnabled() bool {
	return c.Redis.URL != ""
}
