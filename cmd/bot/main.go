package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/horshkov/food-tracker-bot/internal/bot"
	"github.com/horshkov/food-tracker-bot/internal/config"
	"github.com/horshkov/food-tracker-bot/internal/metrics"
	"github.com/horshkov/food-tracker-bot/internal/nutrition"
	"github.com/horshkov/food-tracker-bot/internal/storage"
	"github.com/horshkov/food-tracker-bot/internal/storage/postgres"
	"github.com/horshkov/food-tracker-bot/internal/storage/sqlite"
	"github.com/horshkov/food-tracker-bot/pkg/logging"
)

const longPollTimeout = 30 // seconds

func main() {
	// .env is optional; deployments usually set the environment directly.
	_ = godotenv.Load()

	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", backendName(cfg.DatabaseDSN))

	analyzer := nutrition.New(nutrition.Config{
		APIKey:       cfg.AnthropicAPIKey,
		BaseURL:      cfg.AnthropicBaseURL,
		TextModel:    cfg.TextModel,
		VisionModel:  cfg.VisionModel,
		MaxTokens:    cfg.MaxTokens,
		TextTimeout:  cfg.TextTimeout,
		ImageTimeout: cfg.ImageTimeout,
	}, slog.Default())

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		slog.Error("Failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot authorized", "username", api.Self.UserName)

	handler := bot.NewHandler(store, analyzer, api, slog.Default())

	// Ops listener: Prometheus metrics and a liveness probe.
	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", metrics.Handler())
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsSrv := &http.Server{Addr: cfg.OpsAddr, Handler: opsMux}
	go func() {
		slog.Info("Ops listener starting", "address", cfg.OpsAddr)
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Ops listener failed", "error", err)
		}
	}()

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = longPollTimeout
	updates := api.GetUpdatesChan(updateCfg)

	slog.Info("Bot started, polling for updates")

	// One goroutine per update: conversations are independent and the
	// store is safe for interleaved use.
	var wg sync.WaitGroup
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				handler.HandleUpdate(ctx, update)
			}(update)
		}
	}

	slog.Info("Shutting down")
	api.StopReceivingUpdates()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = opsSrv.Shutdown(shutdownCtx)
}

// openStore selects the storage backend from the DSN: postgres:// URLs
// go to PostgreSQL, anything else is treated as a SQLite file path.
func openStore(ctx context.Context, dsn string) (storage.Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.New(ctx, dsn)
	}
	return sqlite.New(dsn)
}

func backendName(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}
