// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "trendscout"

type Config struct {
	// Address is the listen address for the HTTP and WebSocket server.
	Address string `default:":8000"`

	// TrendsBaseURL is the base URL of the Google Trends proxy API the
	// fetcher calls for raw keyword data.
	TrendsBaseURL string `required:"true" split_words:"true"`

	// AnthropicAPIKey authorizes the generative stage calls.
	AnthropicAPIKey string `required:"true" split_words:"true"`

	// HeavyModel runs the reasoning-heavy stages (problems, goals,
	// categories, features). Empty selects the built-in default.
	HeavyModel string `split_words:"true"`

	// LightModel runs market-maturity classification. Empty selects the
	// built-in default.
	LightModel string `split_words:"true"`

	// MaxRetries is the number of retries after the first attempt for each
	// generative stage.
	MaxRetries int `split_words:"true" default:"2"`

	// RetryDelay is the fixed pause between stage attempts.
	RetryDelay time.Duration `split_words:"true" default:"1s"`

	// FetchTimeout bounds one trends API request.
	FetchTimeout time.Duration `split_words:"true" default:"30s"`

	// CacheTTL is the lifetime of a cached analysis result. Zero keeps
	// results for the process lifetime.
	CacheTTL time.Duration `split_words:"true"`

	// WebDir, when set, is served as the static frontend at the root path.
	WebDir string `split_words:"true"`

	// EnableTracing turns on the OTLP trace exporter.
	EnableTracing bool `split_words:"true"`

	// EnableCompetitorAnalysis adds the competitor scrape and feature
	// enhancement stages to every run. Requires a local Chromium.
	EnableCompetitorAnalysis bool `split_words:"true"`

	// ChromeExecPath overrides the browser binary used for competitor
	// scraping. Empty lets chromedp locate one.
	ChromeExecPath string `split_words:"true"`
}

// Parse loads an optional .env file, then processes TRENDSCOUT_-prefixed
// environment variables into a Config.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config dotenv_load_failed err=%v", err)
	}

	var config Config
	if err := envconfig.Process(envPrefix, &config); err != nil {
		_ = envconfig.Usage(envPrefix, &config)
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &config, nil
}
