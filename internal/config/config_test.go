package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if cfg.DatabaseDSN != "./data/foodtracker.db" {
		t.Errorf("unexpected default DSN: %q", cfg.DatabaseDSN)
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("unexpected default max tokens: %d", cfg.MaxTokens)
	}
	if cfg.TextTimeout != 15*time.Second || cfg.ImageTimeout != 30*time.Second {
		t.Errorf("unexpected default timeouts: %v, %v", cfg.TextTimeout, cfg.ImageTimeout)
	}
	if cfg.OpsAddr != ":9090" {
		t.Errorf("unexpected default ops address: %q", cfg.OpsAddr)
	}
}

func TestParseEnv(t *testing.T) {
	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
		t.Setenv("ANTHROPIC_API_KEY", "api-key")
		t.Setenv("DATABASE_URL", "postgres://localhost/food")
		t.Setenv("MAX_TOKENS", "2048")
		t.Setenv("TEXT_TIMEOUT", "20s")

		cfg := &Config{}
		cfg.LoadDefaults()
		cfg.parseEnv()

		if cfg.TelegramToken != "tg-token" {
			t.Errorf("unexpected token: %q", cfg.TelegramToken)
		}
		if cfg.AnthropicAPIKey != "api-key" {
			t.Errorf("unexpected API key: %q", cfg.AnthropicAPIKey)
		}
		if cfg.DatabaseDSN != "postgres://localhost/food" {
			t.Errorf("unexpected DSN: %q", cfg.DatabaseDSN)
		}
		if cfg.MaxTokens != 2048 {
			t.Errorf("unexpected max tokens: %d", cfg.MaxTokens)
		}
		if cfg.TextTimeout != 20*time.Second {
			t.Errorf("unexpected text timeout: %v", cfg.TextTimeout)
		}
		if cfg.ImageTimeout != 30*time.Second {
			t.Errorf("image timeout should keep its default, got %v", cfg.ImageTimeout)
		}
	})

	t.Run("invalid numeric values keep the defaults", func(t *testing.T) {
		t.Setenv("MAX_TOKENS", "not-a-number")
		t.Setenv("TEXT_TIMEOUT", "-5s")

		cfg := &Config{}
		cfg.LoadDefaults()
		cfg.parseEnv()

		if cfg.MaxTokens != 1024 {
			t.Errorf("unexpected max tokens: %d", cfg.MaxTokens)
		}
		if cfg.TextTimeout != 15*time.Second {
			t.Errorf("unexpected text timeout: %v", cfg.TextTimeout)
		}
	})
}

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.parseFlags([]string{"-d", "postgres://db/food", "-ops", ":8080", "-text-timeout", "25s"})

	if cfg.DatabaseDSN != "postgres://db/food" {
		t.Errorf("unexpected DSN: %q", cfg.DatabaseDSN)
	}
	if cfg.OpsAddr != ":8080" {
		t.Errorf("unexpected ops address: %q", cfg.OpsAddr)
	}
	if cfg.TextTimeout != 25*time.Second {
		t.Errorf("unexpected text timeout: %v", cfg.TextTimeout)
	}
}
