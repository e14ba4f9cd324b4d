// Package nutrition wraps the remote chat-completion API that performs
// the actual food interpretation. It builds prompts, sends text or
// text+image payloads, validates the model's JSON reply, and implements
// the describe-then-analyze fallback for unreliable image calls.
package nutrition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/horshkov/food-tracker-bot/internal/metrics"
	"github.com/horshkov/food-tracker-bot/internal/models"
)

const (
	defaultBaseURL     = "https://api.anthropic.com"
	messagesPath       = "/v1/messages"
	apiVersion         = "2023-06-01"
	defaultTextModel   = "claude-3-5-sonnet-20241022"
	defaultVisionModel = "claude-3-sonnet-20240229"
	defaultMaxTokens   = 1024

	// Image payloads are larger and slower to process, so the image path
	// gets a strictly longer timeout than the text path.
	defaultTextTimeout  = 15 * time.Second
	defaultImageTimeout = 30 * time.Second

	imageMediaType = "image/jpeg"
)

// Config holds the settings for the inference client. Zero fields fall
// back to the defaults above.
type Config struct {
	APIKey       string
	BaseURL      string
	TextModel    string
	VisionModel  string
	MaxTokens    int
	TextTimeout  time.Duration
	ImageTimeout time.Duration
}

// Client calls the Anthropic Messages API. Each analysis performs exactly
// one or two outbound calls (the second only for the image fallback); no
// caching, no further retries.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	textModel    string
	visionModel  string
	maxTokens    int
	textTimeout  time.Duration
	imageTimeout time.Duration
	logger       *slog.Logger
}

// New creates an inference client. Timeouts are applied per call via
// context, not on the shared http.Client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TextModel == "" {
		cfg.TextModel = defaultTextModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = defaultVisionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = defaultTextTimeout
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = defaultImageTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:   &http.Client{},
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		textModel:    cfg.TextModel,
		visionModel:  cfg.VisionModel,
		maxTokens:    cfg.MaxTokens,
		textTimeout:  cfg.TextTimeout,
		imageTimeout: cfg.ImageTimeout,
		logger:       logger,
	}
}

// AnalyzeText asks the model for a nutrition breakdown of a typed food
// description. The reply must be exactly a JSON object with the keys
// calories, protein, carbs, fats and analysis.
func (c *Client) AnalyzeText(ctx context.Context, description string) (*models.NutritionRecord, error) {
	req := apiRequest{
		Model:     c.textModel,
		MaxTokens: c.maxTokens,
		Messages: []apiMessage{
			{Role: "user", Content: textPrompt(description)},
		},
	}

	text, aerr := c.send(ctx, "text", c.textTimeout, req)
	if aerr == nil {
		var rec *models.NutritionRecord
		rec, aerr = parseRecord(text)
		if aerr == nil {
			countRequest("text", nil)
			return rec, nil
		}
	}

	countRequest("text", aerr)
	c.logger.Error("text analysis failed", "error", aerr)
	return nil, aerr
}

// AnalyzeImage asks the model for a nutrition breakdown of a photo. On a
// transport/status failure of the direct multimodal call it retries once
// as a two-step pipeline: a free-form "describe the food" call whose
// reply is fed through AnalyzeText. A successful-but-malformed reply is
// reported as-is, never retried.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte) (*models.NutritionRecord, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	req := apiRequest{
		Model:     c.visionModel,
		MaxTokens: c.maxTokens,
		System:    visionSystem,
		Messages: []apiMessage{
			{Role: "user", Content: []contentBlock{
				{Type: "text", Text: imagePrompt},
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: imageMediaType,
					Data:      encoded,
				}},
			}},
		},
	}

	text, aerr := c.send(ctx, "image", c.imageTimeout, req)
	if aerr != nil {
		countRequest("image", aerr)
		if aerr.Kind == KindTransport {
			c.logger.Warn("image analysis failed, attempting fallback text analysis",
				"status", aerr.Status, "error", aerr.Message)
			metrics.InferenceFallbacks.Inc()

			description, derr := c.describeImage(ctx, encoded)
			if derr == nil {
				// The fallback result replaces the original outcome
				// entirely. Fallback records carry no description.
				return c.AnalyzeText(ctx, description)
			}
			// The first failure's message is the actionable one.
			c.logger.Error("fallback description failed", "error", derr)
		}
		return nil, aerr
	}

	rec, aerr := parseRecord(text)
	countRequest("image", aerr)
	if aerr != nil {
		c.logger.Error("image analysis failed", "error", aerr)
		return nil, aerr
	}

	return rec, nil
}

// describeImage performs the fallback's first step: a multimodal call
// whose sole instruction is to describe the food, with no JSON
// formatting requirement. The raw prose reply is returned untouched.
func (c *Client) describeImage(ctx context.Context, encoded string) (string, *AnalysisError) {
	req := apiRequest{
		Model:     c.visionModel,
		MaxTokens: c.maxTokens,
		Messages: []apiMessage{
			{Role: "user", Content: []contentBlock{
				{Type: "text", Text: describePrompt},
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: imageMediaType,
					Data:      encoded,
				}},
			}},
		},
	}

	text, aerr := c.send(ctx, "describe", c.imageTimeout, req)
	countRequest("describe", aerr)
	return text, aerr
}

// send performs one round-trip to the messages endpoint and returns the
// text of the first content block.
func (c *Client) send(ctx context.Context, path string, timeout time.Duration, payload apiRequest) (string, *AnalysisError) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &AnalysisError{Kind: KindTransport, Message: err.Error(), err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", &AnalysisError{Kind: KindTransport, Message: err.Error(), err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.InferenceDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &AnalysisError{Kind: KindTransport, Message: err.Error(), err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AnalysisError{Kind: KindTransport, Status: resp.StatusCode, Message: err.Error(), err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &AnalysisError{
			Kind:    KindTransport,
			Status:  resp.StatusCode,
			Message: upstreamMessage(raw),
		}
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", &AnalysisError{Kind: KindMalformedReply, Message: err.Error(), Raw: string(raw), err: err}
	}
	if len(envelope.Content) == 0 || envelope.Content[0].Text == "" {
		return "", &AnalysisError{Kind: KindMalformedReply, Message: "response contains no content", Raw: string(raw)}
	}

	return envelope.Content[0].Text, nil
}

// upstreamMessage extracts the human-readable error message from a
// failure body, falling back to the body itself.
func upstreamMessage(raw []byte) string {
	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(raw)
}

// countRequest records one outbound call's outcome.
func countRequest(path string, aerr *AnalysisError) {
	outcome := "ok"
	if aerr != nil {
		switch aerr.Kind {
		case KindTransport:
			outcome = "transport"
		case KindMalformedReply:
			outcome = "malformed"
		case KindIncompleteReply:
			outcome = "incomplete"
		}
	}
	metrics.InferenceRequests.WithLabelValues(path, outcome).Inc()
}
