package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Bitly     BitlyConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds settings for the HTTP host surface
type ServerConfig struct {
	Port string `env:"PORT" env-default:"8080" validate:"required,numeric"`
}

// BitlyConfig holds settings for the outbound Bitly client
type BitlyConfig struct {
	AccessToken string        `env:"BITLY_ACCESS_TOKEN"`
	BaseURL     string        `env:"BITLY_BASE_URL" env-default:"https://api-ssl.bitly.com" validate:"required,url"`
	Timeout     time.Duration `env:"BITLY_TIMEOUT" env-default:"30s"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Verbose bool `env:"VERBOSE" env-default:"false"`
}

// RateLimitConfig holds per-client limits for the HTTP host surface
type RateLimitConfig struct {
	Disabled          bool    `env:"RATE_LIMIT_DISABLED" env-default:"false"`
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" env-default:"10"`
	Burst             int     `env:"RATE_LIMIT_BURST" env-default:"20"`
}

// Load reads an optional .env file, then the environment, and validates
// the result. Command-line flags are applied by the caller, which should
// call Validate again afterwards.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env file is not an error; a malformed one is
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Bitly.Timeout <= 0 {
		return fmt.Errorf("invalid configuration: bitly timeout must be positive, got: %v", c.Bitly.Timeout)
	}

	if !c.RateLimit.Disabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid configuration: rate limit must be positive, got: %v", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("invalid configuration: rate limit burst must be at least 1, got: %d", c.RateLimit.Burst)
		}
	}

	return nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())
