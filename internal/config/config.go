package config

import (
	"errors"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT" env-default:"4000"`
	DatabasePath string `env:"DATABASE_PATH" env-default:"./hackernews.db"`
	AppEnv       string `env:"APP_ENV" env-default:"development"`
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`

	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" env-default:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" env-default:"10"`

	DataTimeout time.Duration `env:"DATA_TIMEOUT" env-default:"5s"`
	DataRetries int           `env:"DATA_RETRIES" env-default:"3"`

	SubscriberBuffer int      `env:"SUBSCRIBER_BUFFER" env-default:"64"`
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	StatsSchedule    string   `env:"STATS_SCHEDULE" env-default:"@every 5m"`
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no safe default.
func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET must be set")
	case c.ServerPort <= 0 || c.ServerPort > 65535:
		return errors.New("PORT must be between 1 and 65535")
	case c.DataRetries < 0:
		return errors.New("DATA_RETRIES must not be negative")
	}
	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
