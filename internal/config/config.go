package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// ESPN API
	ESPNBaseURL string        `envconfig:"ESPN_BASE_URL" default:"https://site.api.espn.com/apis/site/v2/sports/basketball/nba"`
	ESPNTimeout time.Duration `envconfig:"ESPN_TIMEOUT" default:"30s"`

	// Polymarket Gamma API
	GammaBaseURL   string        `envconfig:"GAMMA_BASE_URL" default:"https://gamma-api.polymarket.com"`
	GammaTimeout   time.Duration `envconfig:"GAMMA_TIMEOUT" default:"30s"`
	GammaRateLimit float64       `envconfig:"GAMMA_RATE_LIMIT" default:"10"`
	GammaBurst     int           `envconfig:"GAMMA_BURST" default:"5"`
	NBATagSlug     string        `envconfig:"NBA_TAG_SLUG" default:"nba"`

	// Polymarket Data API (holder lookups; empty disables them)
	DataAPIBaseURL string `envconfig:"DATA_API_BASE_URL" default:"https://data-api.polymarket.com"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"polynba"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"polynba_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP API
	APIPort int `envconfig:"API_PORT" default:"8080"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`
	NightlyRefreshCron string `envconfig:"NIGHTLY_REFRESH_CRON" default:"0 3 * * *"`
	PredictionInterval int    `envconfig:"PREDICTION_POLL_INTERVAL" default:"300"`

	// Prediction policy
	// MinConfidence filters low-confidence predictions before they are
	// surfaced or cached. This is caller-side policy, not an engine rule.
	MinConfidence float64 `envconfig:"MIN_CONFIDENCE" default:"0.5"`
	MinEdgeBps    float64 `envconfig:"MIN_EDGE_BPS" default:"500"`
	RecentWindow  int     `envconfig:"RECENT_GAMES_WINDOW" default:"10"`
	H2HWindowDays int     `envconfig:"H2H_WINDOW_DAYS" default:"90"`

	// Caching TTL (in seconds)
	CacheTTLTeams       int `envconfig:"CACHE_TTL_TEAMS" default:"86400"`      // 24 hours
	CacheTTLPredictions int `envconfig:"CACHE_TTL_PREDICTIONS" default:"600"`  // 10 minutes
	CacheTTLMarkets     int `envconfig:"CACHE_TTL_MARKETS" default:"300"`      // 5 minutes

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`

	// CORS
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be between 0 and 1")
	}

	if c.RecentWindow < 5 {
		return fmt.Errorf("RECENT_GAMES_WINDOW must be at least 5")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
