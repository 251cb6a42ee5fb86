// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken     string
	DataDir         string
	ImagesDir       string
	DBPath          string
	Concurrency     int
	MaxPRsPerRepo   int
	SkipBotPRs      bool
	SkipNoReviews   bool
	RetryMaxElapsed time.Duration
}

// HasGitHubToken reports whether collection can authenticate against the API.
// Analysis of already-collected tables works without a token.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is honored when present.
// GITHUB_TOKEN is required only for collection. Optional variables with
// defaults: REVIEWLENS_DATA_DIR (data), REVIEWLENS_IMAGES_DIR (images),
// REVIEWLENS_DB_PATH (reviewlens.db), REVIEWLENS_CONCURRENCY (10),
// REVIEWLENS_MAX_PRS (2300), REVIEWLENS_SKIP_BOT_PRS (true),
// REVIEWLENS_SKIP_NO_REVIEWS (true), REVIEWLENS_RETRY_MAX_ELAPSED (15m).
func Load() (*Config, error) {
	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		DataDir:         "data",
		ImagesDir:       "images",
		DBPath:          "reviewlens.db",
		Concurrency:     10,
		MaxPRsPerRepo:   2300,
		SkipBotPRs:      true,
		SkipNoReviews:   true,
		RetryMaxElapsed: 15 * time.Minute,
	}

	if v, ok := os.LookupEnv("REVIEWLENS_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("REVIEWLENS_IMAGES_DIR"); ok {
		cfg.ImagesDir = v
	}
	if v, ok := os.LookupEnv("REVIEWLENS_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("REVIEWLENS_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("REVIEWLENS_CONCURRENCY has invalid value %q", v)
		}
		cfg.Concurrency = n
	}

	if v, ok := os.LookupEnv("REVIEWLENS_MAX_PRS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("REVIEWLENS_MAX_PRS has invalid value %q", v)
		}
		cfg.MaxPRsPerRepo = n
	}

	if v, ok := os.LookupEnv("REVIEWLENS_SKIP_BOT_PRS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWLENS_SKIP_BOT_PRS has invalid value %q: %w", v, err)
		}
		cfg.SkipBotPRs = b
	}

	if v, ok := os.LookupEnv("REVIEWLENS_SKIP_NO_REVIEWS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWLENS_SKIP_NO_REVIEWS has invalid value %q: %w", v, err)
		}
		cfg.SkipNoReviews = b
	}

	if v, ok := os.LookupEnv("REVIEWLENS_RETRY_MAX_ELAPSED"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWLENS_RETRY_MAX_ELAPSED has invalid duration %q: %w", v, err)
		}
		cfg.RetryMaxElapsed = d
	}

	return cfg, nil
}
