package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the collective API service
type Config struct {
	// Server configuration
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsPort int    `envconfig:"METRICS_PORT" default:"9090"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage. An empty DATABASE_URL runs on the in-memory store.
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	DBMaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	RedisURL       string `envconfig:"REDIS_URL"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"ratelimit:"`

	// JWT configuration
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiration time.Duration `envconfig:"JWT_EXPIRATION" default:"720h"`

	// Platform accounts
	RootCollectiveID int64 `envconfig:"ROOT_COLLECTIVE_ID" default:"1"`
	OpenSourceHostID int64 `envconfig:"OPEN_SOURCE_HOST_ID" default:"11004"`

	// Abuse protection
	CreateUserRateLimit  int           `envconfig:"CREATE_USER_RATE_LIMIT" default:"60"`
	CreateUserRateWindow time.Duration `envconfig:"CREATE_USER_RATE_WINDOW" default:"1h"`
	TwoFactorWindow      time.Duration `envconfig:"TWO_FACTOR_WINDOW" default:"2h"`

	// Proxies (IPs or CIDRs) whose X-Forwarded-For and X-Real-IP headers are believed.
	// Empty means the peer address is always the client address.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// Outgoing mail fan-out for gift cards
	GiftCardEmailConcurrency int `envconfig:"GIFT_CARD_EMAIL_CONCURRENCY" default:"4"`

	// CORS configuration
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	// Graceful shutdown timeout
	ShutdownTimeout int `envconfig:"SHUTDOWN_TIMEOUT" default:"30"`
}

// Load reads configuration from environment variables
func Load() *Config {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	return &cfg
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesMemoryStore reports whether no database was configured
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}
