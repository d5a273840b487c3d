package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so TIMEZONE works on minimal images.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	Env                string `mapstructure:"APP_ENV"`
	HTTPPort           string `mapstructure:"HTTP_PORT"`
	DatabaseDSN        string `mapstructure:"DATABASE_DSN"`
	Secret             string `mapstructure:"SECRET"`
	SessionTTLHours    int    `mapstructure:"SESSION_TTL_HOURS"`
	RedisURL           string `mapstructure:"REDIS_URL"`
	ImageStoragePath   string `mapstructure:"IMAGE_STORAGE_PATH"`
	PublicBaseURL      string `mapstructure:"PUBLIC_BASE_URL"`
	LedgerFetchCap     int    `mapstructure:"LEDGER_FETCH_CAP"`
	Timezone           string `mapstructure:"TIMEZONE"`
	SeedCatalogPath    string `mapstructure:"SEED_CATALOG_PATH"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	location *time.Location
}

// SessionTTL is the lifetime of a login session.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c Config) Production() bool { return c.Env == "production" }

// Location is the zone used for calendar bucketing. Defaults to UTC.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Load reads configuration from the environment (and an optional .env file)
// with reasonable defaults.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", "file:pharmastock.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("SECRET", "dev_secret")
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("IMAGE_STORAGE_PATH", "./data/images")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("LEDGER_FETCH_CAP", 500)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("SEED_CATALOG_PATH", "assets/medicines.csv")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Warn().Str("value", cfg.HTTPPort).Msg("invalid HTTP_PORT, defaulting to 8080")
		cfg.HTTPPort = "8080"
	}
	if cfg.SessionTTLHours <= 0 {
		cfg.SessionTTLHours = 24
	}
	if cfg.LedgerFetchCap <= 0 {
		cfg.LedgerFetchCap = 500
	}
	if cfg.Production() && cfg.Secret == "dev_secret" {
		return Config{}, fmt.Errorf("config: SECRET must be set in production")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.HTTPPort
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	return cfg, nil
}
