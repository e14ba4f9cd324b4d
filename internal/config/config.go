// Package config handles runtime configuration: defaults first, then
// environment variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds runtime settings for the bot.
//
// Fields:
//   - TelegramToken: bot token from @BotFather. Required.
//   - AnthropicAPIKey: key for the inference API. Required.
//   - DatabaseDSN: postgres://... selects the PostgreSQL backend; any
//     other value is treated as a SQLite file path.
//   - AnthropicBaseURL / TextModel / VisionModel / MaxTokens: inference
//     client tuning; empty values use the client defaults.
//   - TextTimeout / ImageTimeout: per-call inference timeouts. The image
//     timeout should be the longer of the two.
//   - OpsAddr: bind address for the /metrics and /healthz listener.
type Config struct {
	TelegramToken    string
	AnthropicAPIKey  string
	DatabaseDSN      string
	AnthropicBaseURL string
	TextModel        string
	VisionModel      string
	MaxTokens        int
	TextTimeout      time.Duration
	ImageTimeout     time.Duration
	OpsAddr          string
}

// LoadDefaults populates Config with development defaults. Tokens and
// keys have no defaults; they must come from the environment or flags.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "./data/foodtracker.db"
	c.MaxTokens = 1024
	c.TextTimeout = 15 * time.Second
	c.ImageTimeout = 30 * time.Second
	c.OpsAddr = ":9090"
}

// Load builds a Config by applying defaults, then overlaying environment
// variables and finally command-line flags.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.parseEnv()
	cfg.parseFlags(os.Args[1:])

	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.AnthropicAPIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required")
	}

	return cfg, nil
}

func (c *Config) parseEnv() {
	c.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.DatabaseDSN = getEnv("DATABASE_URL", c.DatabaseDSN)
	c.AnthropicBaseURL = getEnv("ANTHROPIC_BASE_URL", c.AnthropicBaseURL)
	c.TextModel = getEnv("TEXT_MODEL", c.TextModel)
	c.VisionModel = getEnv("VISION_MODEL", c.VisionModel)
	c.OpsAddr = getEnv("OPS_ADDR", c.OpsAddr)

	if v := os.Getenv("MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv("TEXT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.TextTimeout = d
		}
	}
	if v := os.Getenv("IMAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.ImageTimeout = d
		}
	}
}

func (c *Config) parseFlags(args []string) {
	fs := flag.NewFlagSet("food-tracker-bot", flag.ContinueOnError)

	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN (postgres://... or a SQLite file path)")
	fs.StringVar(&c.OpsAddr, "ops", c.OpsAddr, "bind address for the metrics/health listener")
	fs.DurationVar(&c.TextTimeout, "text-timeout", c.TextTimeout, "timeout for text analysis calls")
	fs.DurationVar(&c.ImageTimeout, "image-timeout", c.ImageTimeout, "timeout for image analysis calls")

	// Flags are an operator convenience; parse errors fall back to the
	// env/default values already applied.
	_ = fs.Parse(args)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
