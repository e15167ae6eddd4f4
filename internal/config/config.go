// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when settings fail validation
var ErrInvalidConfig = errors.New("invalid configuration")

// ReferenceDateLayout is the accepted reference date format
const ReferenceDateLayout = "2006-01-02"

// Config holds screener configuration. Values come from the environment
// (optionally seeded from .env) and may be overridden by CLI flags.
type Config struct {
	Source        string        `env:"SCREENER_SOURCE" envDefault:"sample"`
	OutputDir     string        `env:"SCREENER_OUTPUT_DIR" envDefault:"reports"`
	CacheDir      string        `env:"SCREENER_CACHE_DIR" envDefault:"data/cache"`
	CacheTTL      time.Duration `env:"SCREENER_CACHE_TTL" envDefault:"24h"`
	NoCache       bool          `env:"SCREENER_NO_CACHE"`
	AllowStale    bool          `env:"SCREENER_ALLOW_STALE"`
	HTTPTimeout   time.Duration `env:"SCREENER_HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel      string        `env:"SCREENER_LOG_LEVEL" envDefault:"info"`
	LogPretty     bool          `env:"SCREENER_LOG_PRETTY" envDefault:"true"`
	TopN          int           `env:"SCREENER_TOP_N" envDefault:"10"`
	RulesFile     string        `env:"SCREENER_RULES_FILE"`
	ReferenceDate string        `env:"SCREENER_REFERENCE_DATE"` // YYYY-MM-DD; empty means today
	MinCredits    int64         `env:"SCREENER_MIN_CREDITS"`
	ProjectTypes  []string      `env:"SCREENER_PROJECT_TYPES" envSeparator:","`
	Statuses      []string      `env:"SCREENER_STATUSES" envSeparator:"," envDefault:"Registered,Under Development,Registration Requested"`
	RadarProject  string        `env:"SCREENER_RADAR"`
	Charts        bool          `env:"SCREENER_CHARTS" envDefault:"true"`
	S3            S3Config      `envPrefix:"SCREENER_S3_"`
}

// S3Config holds credentials for s3:// sources. Empty keys fall back to the
// default AWS credential chain.
type S3Config struct {
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"USE_PATH_STYLE"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return parse(env.Options{})
}

// LoadEnvironment reads configuration from the given variables only
func LoadEnvironment(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source is required", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("%w: top N must be positive, got %d", ErrInvalidConfig, c.TopN)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache TTL must be positive", ErrInvalidConfig)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: HTTP timeout must be positive", ErrInvalidConfig)
	}
	if c.MinCredits < 0 {
		return fmt.Errorf("%w: minimum credits must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Reference(time.Now()); err != nil {
		return err
	}
	return nil
}

// Reference returns the date ages are measured against: the configured
// reference date, or the UTC calendar date of now.
func (c *Config) Reference(now time.Time) (time.Time, error) {
	if c.ReferenceDate == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	ref, err := time.Parse(ReferenceDateLayout, c.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reference date %q must be YYYY-MM-DD", ErrInvalidConfig, c.ReferenceDate)
	}
	return ref, nil
}
