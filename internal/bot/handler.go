// Package bot routes incoming Telegram updates to the inference client
// and the store, and formats the replies. It is the recovery boundary:
// every analysis or storage failure is rendered as a user-facing message,
// none is fatal to the process.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/horshkov/food-tracker-bot/internal/metrics"
	"github.com/horshkov/food-tracker-bot/internal/models"
	"github.com/horshkov/food-tracker-bot/internal/nutrition"
	"github.com/horshkov/food-tracker-bot/internal/storage"
)

// API is the narrow slice of the Telegram Bot API the handler needs.
// The concrete *tgbotapi.BotAPI satisfies it; tests use fakes.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Handler dispatches one Telegram update at a time. It holds no mutable
// state of its own, so concurrent updates only share the store.
type Handler struct {
	store    storage.Store
	analyzer nutrition.Analyzer
	api      API
	files    *http.Client
	logger   *slog.Logger
}

// NewHandler creates a conversation handler with explicit dependencies.
func NewHandler(store storage.Store, analyzer nutrition.Analyzer, api API, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    store,
		analyzer: analyzer,
		api:      api,
		files:    &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// HandleUpdate processes one incoming update. Safe for concurrent use.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	log := h.logger.With(
		"correlation_id", uuid.NewString(),
		"user_id", msg.From.ID,
	)

	switch {
	case msg.IsCommand():
		metrics.UpdatesHandled.WithLabelValues("command").Inc()
		h.handleCommand(ctx, log, msg)
	case len(msg.Photo) > 0:
		metrics.UpdatesHandled.WithLabelValues("photo").Inc()
		h.handlePhoto(ctx, log, msg)
	case msg.Text != "":
		metrics.UpdatesHandled.WithLabelValues("text").Inc()
		h.handleText(ctx, log, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	log = log.With("command", msg.Command())

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, log, msg)
	case "help":
		h.reply(log, msg.Chat.ID, helpMessage)
	case "stats":
		h.handleStats(ctx, log, msg)
	case "history":
		h.handleHistory(ctx, log, msg)
	case "delete":
		h.handleDelete(ctx, log, msg)
	default:
		h.reply(log, msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (h *Handler) handleStart(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	if err := h.store.UpsertUser(ctx, userFrom(msg)); err != nil {
		log.Error("failed to upsert user", "error", err)
	}
	h.reply(log, msg.Chat.ID, welcomeMessage(msg.From.FirstName))
}

func (h *Handler) handleStats(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	stats, err := h.store.Stats(ctx, msg.From.ID)
	if err != nil {
		log.Error("failed to get stats", "error", err)
		h.reply(log, msg.Chat.ID, "❌ Sorry, I couldn't load your statistics. Please try again.")
		return
	}

	if stats.TotalEntries == 0 {
		h.reply(log, msg.Chat.ID, zeroStateMessage)
		return
	}

	h.reply(log, msg.Chat.ID, formatStats(stats))
}

func (h *Handler) handleHistory(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	entries, err := h.store.History(ctx, msg.From.ID, storage.DefaultHistoryLimit)
	if err != nil {
		log.Error("failed to get history", "error", err)
		h.reply(log, msg.Chat.ID, "❌ Sorry, I couldn't load your history. Please try again.")
		return
	}

	if len(entries) == 0 {
		h.reply(log, msg.Chat.ID, zeroStateMessage)
		return
	}

	h.reply(log, msg.Chat.ID, formatHistory(entries))
}

func (h *Handler) handleDelete(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		h.reply(log, msg.Chat.ID,
			"Please provide an entry ID to delete.\n"+
				"Example: /delete 123\n\n"+
				"Use /history to see your entries with their IDs.")
		return
	}

	entryID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		h.reply(log, msg.Chat.ID, "Please provide a valid entry ID (a number).")
		return
	}

	// Fetch first so the confirmation can echo what was deleted.
	entry, err := h.store.Entry(ctx, msg.From.ID, entryID)
	if err != nil {
		log.Error("failed to get entry", "entry_id", entryID, "error", err)
		h.reply(log, msg.Chat.ID, "❌ Sorry, something went wrong. Please try again.")
		return
	}
	if entry == nil {
		h.reply(log, msg.Chat.ID, "Entry not found. Please check the ID and try again.")
		return
	}

	deleted, err := h.store.DeleteEntry(ctx, msg.From.ID, entryID)
	if err != nil {
		log.Error("failed to delete entry", "entry_id", entryID, "error", err)
		h.reply(log, msg.Chat.ID, "❌ Failed to delete the entry. Please try again.")
		return
	}
	if !deleted {
		h.reply(log, msg.Chat.ID, "❌ Failed to delete the entry. Please try again.")
		return
	}

	log.Info("entry deleted", "entry_id", entryID)
	h.reply(log, msg.Chat.ID, "✅ Entry deleted successfully:\n\n"+formatEntry(entry))
}

func (h *Handler) handleText(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	if err := h.store.UpsertUser(ctx, userFrom(msg)); err != nil {
		log.Error("failed to upsert user", "error", err)
	}

	if utf8.RuneCountInString(msg.Text) > maxTextLength {
		h.reply(log, msg.Chat.ID, "⚠️ Your message is quite long and may not be processed correctly. Please try to shorten it or split it into multiple messages.")
		return
	}

	text := normalizeText(msg.Text)

	rec, err := h.analyzer.CombinedTextAnalysis(ctx, text)
	if err != nil {
		log.Warn("text analysis failed", "error", err)
		h.reply(log, msg.Chat.ID, analysisFailureMessage("❌ Sorry, I couldn't analyze your food description.", err))
		return
	}

	// The user's own words become the stored description.
	rec.Description = text

	if _, err := h.store.AddFoodEntry(ctx, msg.From.ID, rec); err != nil {
		log.Error("failed to save entry", "error", err)
		h.reply(log, msg.Chat.ID, "❌ Sorry, I couldn't save your entry. Please try again.")
		return
	}

	h.reply(log, msg.Chat.ID, formatAnalysis(text, rec))
}

func (h *Handler) handlePhoto(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	if err := h.store.UpsertUser(ctx, userFrom(msg)); err != nil {
		log.Error("failed to upsert user", "error", err)
	}

	// The last variant is the highest resolution.
	photo := msg.Photo[len(msg.Photo)-1]

	image, err := h.downloadFile(ctx, photo.FileID)
	if err != nil {
		log.Error("failed to download photo", "file_id", photo.FileID, "error", err)
		h.reply(log, msg.Chat.ID, "❌ Sorry, I couldn't download your photo. Please try again.")
		return
	}

	rec, err := h.analyzer.CombinedImageAnalysis(ctx, image)
	if err != nil {
		log.Warn("image analysis failed", "error", err)
		h.reply(log, msg.Chat.ID, analysisFailureMessage("❌ Sorry, I couldn't analyze your food photo.", err))
		return
	}

	if _, err := h.store.AddFoodEntry(ctx, msg.From.ID, rec); err != nil {
		log.Error("failed to save entry", "error", err)
		h.reply(log, msg.Chat.ID, "❌ Sorry, I couldn't save your entry. Please try again.")
		return
	}

	h.reply(log, msg.Chat.ID, formatAnalysis(rec.Description, rec))
}

func (h *Handler) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := h.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := h.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

func (h *Handler) reply(log *slog.Logger, chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Error("failed to send reply", "error", err)
	}
}

// analysisFailureMessage renders an analysis error for the user.
// Malformed replies additionally surface the raw model text to aid
// diagnosis.
func analysisFailureMessage(prefix string, err error) string {
	text := fmt.Sprintf("%s %s", prefix, err)
	if aerr, ok := nutrition.AsAnalysisError(err); ok && aerr.Kind == nutrition.KindMalformedReply && aerr.Raw != "" {
		text += "\n\nModel raw response:\n" + aerr.Raw
	}
	return text
}

func userFrom(msg *tgbotapi.Message) *models.User {
	return &models.User{
		ID:        msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
}
