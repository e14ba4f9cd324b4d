package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/horshkov/food-tracker-bot/internal/models"
	"github.com/horshkov/food-tracker-bot/internal/nutrition"
	"github.com/horshkov/food-tracker-bot/internal/storage/sqlite"
)

// fakeAPI captures outgoing messages instead of talking to Telegram.
type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	fileURL string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

func (f *fakeAPI) lastReply(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("expected a reply, got none")
	}
	return f.sent[len(f.sent)-1].Text
}

// fakeAnalyzer returns scripted analysis results.
type fakeAnalyzer struct {
	textRec  *models.NutritionRecord
	textErr  error
	imageRec *models.NutritionRecord
	imageErr error

	lastText   string
	lastImage  []byte
	textCalls  int
	imageCalls int
}

func (f *fakeAnalyzer) CombinedTextAnalysis(_ context.Context, description string) (*models.NutritionRecord, error) {
	f.textCalls++
	f.lastText = description
	if f.textErr != nil {
		return nil, f.textErr
	}
	rec := *f.textRec
	return &rec, nil
}

func (f *fakeAnalyzer) CombinedImageAnalysis(_ context.Context, image []byte) (*models.NutritionRecord, error) {
	f.imageCalls++
	f.lastImage = image
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	rec := *f.imageRec
	return &rec, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeAPI, *fakeAnalyzer, *sqlite.SQLiteStore) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "foodbot-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	api := &fakeAPI{}
	analyzer := &fakeAnalyzer{
		textRec: &models.NutritionRecord{
			Calories: 250, Protein: 12, Carbs: 30, Fats: 8,
			Analysis: "Looks fine.",
		},
		imageRec: &models.NutritionRecord{
			Description: "A bowl of ramen",
			Calories:    550, Protein: 25, Carbs: 70, Fats: 18,
			Analysis: "Hearty.",
		},
	}

	return NewHandler(store, analyzer, api, nil), api, analyzer, store
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Test", UserName: "tester"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: cmdLen},
		},
	}}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Test", UserName: "tester"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func photoUpdate(userID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Test", UserName: "tester"},
		Chat: &tgbotapi.Chat{ID: userID},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 800, Height: 800},
		},
	}}
}

func TestHandleCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("start sends the welcome and registers the user", func(t *testing.T) {
		h, api, _, store := newTestHandler(t)

		h.HandleUpdate(ctx, commandUpdate(1, "/start"))

		if got := api.lastReply(t); !strings.Contains(got, "Food Tracker Bot") {
			t.Errorf("unexpected welcome: %q", got)
		}

		// The user row must exist: an entry insert now succeeds.
		if _, err := store.AddFoodEntry(ctx, 1, &models.NutritionRecord{}); err != nil {
			t.Errorf("expected user to be registered: %v", err)
		}
	})

	t.Run("help lists the commands", func(t *testing.T) {
		h, api, _, _ := newTestHandler(t)

		h.HandleUpdate(ctx, commandUpdate(1, "/help"))

		got := api.lastReply(t)
		for _, cmd := range []string{"/start", "/stats", "/history", "/delete"} {
			if !strings.Contains(got, cmd) {
				t.Errorf("help does not mention %s: %q", cmd, got)
			}
		}
	})

	t.Run("stats renders the zero state", func(t *testing.T) {
		h, api, _, _ := newTestHandler(t)

		h.HandleUpdate(ctx, commandUpdate(1, "/stats"))

		if got := api.lastReply(t); !strings.Contains(got, "haven't tracked any food yet") {
			t.Errorf("expected zero-state message, got %q", got)
		}
	})

	t.Run("stats renders totals and averages", func(t *testing.T) {
		h, api, _, store := newTestHandler(t)

		if err := store.UpsertUser(ctx, &models.User{ID: 1, FirstName: "Test"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		for _, cal := range []float64{300, 500} {
			if _, err := store.AddFoodEntry(ctx, 1, &models.NutritionRecord{Calories: cal}); err != nil {
				t.Fatalf("AddFoodEntry failed: %v", err)
			}
		}

		h.HandleUpdate(ctx, commandUpdate(1, "/stats"))

		got := api.lastReply(t)
		if !strings.Contains(got, "Total Entries: 2") {
			t.Errorf("missing entry count: %q", got)
		}
		if !strings.Contains(got, "Calories: 800 kcal") {
			t.Errorf("missing calorie total: %q", got)
		}
		if !strings.Contains(got, "Calories: 400.0 kcal") {
			t.Errorf("missing calorie average: %q", got)
		}
	})

	t.Run("history renders entries newest first", func(t *testing.T) {
		h, api, _, store := newTestHandler(t)

		if err := store.UpsertUser(ctx, &models.User{ID: 1, FirstName: "Test"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		for _, d := range []string{"breakfast", "dinner"} {
			if _, err := store.AddFoodEntry(ctx, 1, &models.NutritionRecord{Description: d}); err != nil {
				t.Fatalf("AddFoodEntry failed: %v", err)
			}
		}

		h.HandleUpdate(ctx, commandUpdate(1, "/history"))

		got := api.lastReply(t)
		if !strings.Contains(got, "Recent Food History") {
			t.Errorf("missing header: %q", got)
		}
		if strings.Index(got, "dinner") > strings.Index(got, "breakfast") {
			t.Errorf("entries not newest first: %q", got)
		}
		if !strings.Contains(got, "/delete <ID>") {
			t.Errorf("missing delete hint: %q", got)
		}
	})
}

func TestHandleDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("without an argument shows usage", func(t *testing.T) {
		h, api, _, _ := newTestHandler(t)

		h.HandleUpdate(ctx, commandUpdate(1, "/delete"))

		if got := api.lastReply(t); !strings.Contains(got, "provide an entry ID") {
			t.Errorf("expected usage message, got %q", got)
		}
	})

	t.Run("rejects a non-integer id", func(t *testing.T) {
		h, api, _, _ := newTestHandler(t)

		h.HandleUpdate(ctx, commandUpdate(1, "/delete abc"))

		if got := api.lastReply(t); !strings.Contains(got, "valid entry ID") {
			t.Errorf("expected validation message, got %q", got)
		}
	})

	t.Run("reports not found for a missing entry", func(t *testing.T) {
		h, api, _, _ := newTestHandler(t)

		h.HandleUpdate(ctx, commandUpdate(1, "/delete 42"))

		if got := api.lastReply(t); !strings.Contains(got, "Entry not found") {
			t.Errorf("expected not-found message, got %q", got)
		}
	})

	t.Run("hides other users' entries", func(t *testing.T) {
		h, api, _, store := newTestHandler(t)

		if err := store.UpsertUser(ctx, &models.User{ID: 1, FirstName: "Owner"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		id, err := store.AddFoodEntry(ctx, 1, &models.NutritionRecord{Description: "private"})
		if err != nil {
			t.Fatalf("AddFoodEntry failed: %v", err)
		}

		h.HandleUpdate(ctx, commandUpdate(2, "/delete "+itoa(id)))

		if got := api.lastReply(t); !strings.Contains(got, "Entry not found") {
			t.Errorf("expected not-found for a foreign entry, got %q", got)
		}

		// Still there for the owner.
		entry, err := store.Entry(ctx, 1, id)
		if err != nil || entry == nil {
			t.Errorf("foreign delete must not remove the entry: %v, %v", entry, err)
		}
	})

	t.Run("deletes and echoes the entry", func(t *testing.T) {
		h, api, _, store := newTestHandler(t)

		if err := store.UpsertUser(ctx, &models.User{ID: 1, FirstName: "Test"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		id, err := store.AddFoodEntry(ctx, 1, &models.NutritionRecord{Description: "old lunch", Calories: 400})
		if err != nil {
			t.Fatalf("AddFoodEntry failed: %v", err)
		}

		h.HandleUpdate(ctx, commandUpdate(1, "/delete "+itoa(id)))

		got := api.lastReply(t)
		if !strings.Contains(got, "✅ Entry deleted successfully") {
			t.Errorf("expected deletion confirmation, got %q", got)
		}
		if !strings.Contains(got, "old lunch") {
			t.Errorf("expected the deleted entry's description, got %q", got)
		}

		entry, err := store.Entry(ctx, 1, id)
		if err != nil {
			t.Fatalf("Entry failed: %v", err)
		}
		if entry != nil {
			t.Error("expected the entry to be gone")
		}
	})
}

func TestHandleText(t *testing.T) {
	ctx := context.Background()

	t.Run("analyzes, persists and replies", func(t *testing.T) {
		h, api, analyzer, store := newTestHandler(t)

		h.HandleUpdate(ctx, textUpdate(1, "grilled chicken with rice"))

		if analyzer.textCalls != 1 {
			t.Fatalf("expected one analysis call, got %d", analyzer.textCalls)
		}
		if analyzer.lastText != "grilled chicken with rice" {
			t.Errorf("unexpected analyzed text: %q", analyzer.lastText)
		}

		got := api.lastReply(t)
		if !strings.Contains(got, "Nutrition Facts") || !strings.Contains(got, "Calories: 250 kcal") {
			t.Errorf("unexpected reply: %q", got)
		}

		entries, err := store.History(ctx, 1, 10)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected one persisted entry, got %d", len(entries))
		}
		if entries[0].Description != "grilled chicken with rice" {
			t.Errorf("entry description should be the typed text, got %q", entries[0].Description)
		}
	})

	t.Run("normalizes bullets and whitespace before analysis", func(t *testing.T) {
		h, _, analyzer, _ := newTestHandler(t)

		h.HandleUpdate(ctx, textUpdate(1, "- two eggs\n\n-  bacon   strips"))

		if analyzer.lastText != "two eggs bacon strips" {
			t.Errorf("unexpected normalized text: %q", analyzer.lastText)
		}
	})

	t.Run("rejects over-length messages before any network call", func(t *testing.T) {
		h, api, analyzer, store := newTestHandler(t)

		h.HandleUpdate(ctx, textUpdate(1, strings.Repeat("x", 1001)))

		if analyzer.textCalls != 0 {
			t.Errorf("analyzer must not be called, got %d calls", analyzer.textCalls)
		}
		if got := api.lastReply(t); !strings.Contains(got, "⚠️") {
			t.Errorf("expected the length warning, got %q", got)
		}

		entries, err := store.History(ctx, 1, 10)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(entries) != 0 {
			t.Error("no entry may be persisted for a rejected message")
		}
	})

	t.Run("analysis failure persists nothing", func(t *testing.T) {
		h, api, analyzer, store := newTestHandler(t)
		analyzer.textErr = &nutrition.AnalysisError{Kind: nutrition.KindTransport, Status: 500, Message: "overloaded"}

		h.HandleUpdate(ctx, textUpdate(1, "a sandwich"))

		got := api.lastReply(t)
		if !strings.Contains(got, "❌") || !strings.Contains(got, "overloaded") {
			t.Errorf("expected the failure rendered, got %q", got)
		}

		entries, err := store.History(ctx, 1, 10)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(entries) != 0 {
			t.Error("no entry may be persisted after a failed analysis")
		}
	})

	t.Run("malformed replies surface the raw model text", func(t *testing.T) {
		h, api, analyzer, _ := newTestHandler(t)
		analyzer.textErr = &nutrition.AnalysisError{
			Kind:    nutrition.KindMalformedReply,
			Message: "invalid character 'S'",
			Raw:     "Sure! Here is your breakdown...",
		}

		h.HandleUpdate(ctx, textUpdate(1, "a sandwich"))

		got := api.lastReply(t)
		if !strings.Contains(got, "Model raw response:") || !strings.Contains(got, "Sure! Here is your breakdown...") {
			t.Errorf("expected the raw reply surfaced, got %q", got)
		}
	})
}

func TestHandlePhoto(t *testing.T) {
	ctx := context.Background()
	imageBytes := []byte("jpeg bytes")

	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(imageBytes)
	}))
	defer fileServer.Close()

	t.Run("downloads the largest variant and persists the result", func(t *testing.T) {
		h, api, analyzer, store := newTestHandler(t)
		api.fileURL = fileServer.URL

		h.HandleUpdate(ctx, photoUpdate(1))

		if analyzer.imageCalls != 1 {
			t.Fatalf("expected one image analysis, got %d", analyzer.imageCalls)
		}
		if string(analyzer.lastImage) != string(imageBytes) {
			t.Errorf("analyzer did not receive the downloaded bytes")
		}

		got := api.lastReply(t)
		if !strings.Contains(got, "A bowl of ramen") || !strings.Contains(got, "Calories: 550 kcal") {
			t.Errorf("unexpected reply: %q", got)
		}

		entries, err := store.History(ctx, 1, 10)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected one persisted entry, got %d", len(entries))
		}
		if entries[0].Description != "A bowl of ramen" {
			t.Errorf("unexpected entry description: %q", entries[0].Description)
		}
	})

	t.Run("analysis failure persists nothing", func(t *testing.T) {
		h, api, analyzer, store := newTestHandler(t)
		api.fileURL = fileServer.URL
		analyzer.imageErr = &nutrition.AnalysisError{Kind: nutrition.KindTransport, Status: 500, Message: "no vision today"}

		h.HandleUpdate(ctx, photoUpdate(1))

		if got := api.lastReply(t); !strings.Contains(got, "couldn't analyze your food photo") {
			t.Errorf("expected the photo failure message, got %q", got)
		}

		entries, err := store.History(ctx, 1, 10)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(entries) != 0 {
			t.Error("no entry may be persisted after a failed analysis")
		}
	})
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
