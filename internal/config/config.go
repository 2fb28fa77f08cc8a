// Package config loads and validates the application configuration
// from environment variables and optional .env files.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the tool needs. It is populated from the
// environment and passed by reference into each component.
type Config struct {
	// Bitbucket
	Workspace   string `split_words:"true" validate:"required"`
	Username    string `split_words:"true"`
	AppPassword string `split_words:"true"`
	AccessToken string `split_words:"true"`
	BaseURL     string `envconfig:"BASE_URL" default:"https://api.bitbucket.org/2.0" validate:"url"`

	// Cache
	CacheDir     string        `split_words:"true" default:".cache"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"0s"`
	MemCacheSize int           `split_words:"true" default:"512" validate:"gt=0"`

	// HTTP tuning
	RequestsPerMinute int           `split_words:"true" default:"900" validate:"gt=0"`
	MaxRetries        int           `split_words:"true" default:"4" validate:"gt=0"`
	BackoffMin        time.Duration `split_words:"true" default:"1s" validate:"gt=0"`
	BackoffMax        time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
	HTTPTimeout       time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
}

// Loader reads configuration from the environment under a prefix.
type Loader struct {
	Prefix   string
	Validate *validator.Validate
}

func NewLoader(prefix string) *Loader {
	return &Loader{Prefix: prefix, Validate: validator.New()}
}

func (l *Loader) Load() (Config, error) {
	var cfg Config

	if err := loadDotEnv(); err != nil {
		log.Printf("dotenv: %v", err)
	}
	if err := envconfig.Process(l.Prefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env load: %w", err)
	}

	if err := l.Validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	if err := cfg.checkCredentials(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// checkCredentials enforces that exactly one auth mechanism is usable:
// either an OAuth access token or a username with an app password.
func (c *Config) checkCredentials() error {
	if c.AccessToken != "" {
		return nil
	}
	if c.Username != "" && c.AppPassword != "" {
		return nil
	}
	return errors.New("config validation: set BITBUCKET_ACCESS_TOKEN or both BITBUCKET_USERNAME and BITBUCKET_APP_PASSWORD")
}

func loadDotEnv() error {
	if !fileExists(".env") {
		return errors.New("no .env file found")
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed loading .env: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
