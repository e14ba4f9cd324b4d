package nutrition

import (
	"context"

	"github.com/horshkov/food-tracker-bot/internal/models"
)

// Placeholders substituted by the combined adapters when the model reply
// carries an empty analysis or description.
const (
	NoAnalysisPlaceholder    = "No detailed analysis available"
	NoDescriptionPlaceholder = "No description available"
)

// Analyzer is the surface the conversation handler consumes: the raw
// analysis operations normalized into exactly what gets persisted and
// displayed.
type Analyzer interface {
	CombinedTextAnalysis(ctx context.Context, description string) (*models.NutritionRecord, error)
	CombinedImageAnalysis(ctx context.Context, image []byte) (*models.NutritionRecord, error)
}

var _ Analyzer = (*Client)(nil)

// CombinedTextAnalysis runs AnalyzeText and normalizes the result for
// persistence. Errors are forwarded untouched.
func (c *Client) CombinedTextAnalysis(ctx context.Context, description string) (*models.NutritionRecord, error) {
	rec, err := c.AnalyzeText(ctx, description)
	if err != nil {
		return nil, err
	}

	// Text-derived records never carry a model description; the user's
	// own words are the description.
	rec.Description = ""
	if rec.Analysis == "" {
		rec.Analysis = NoAnalysisPlaceholder
	}

	return rec, nil
}

// CombinedImageAnalysis runs AnalyzeImage and normalizes the result for
// persistence. Errors are forwarded untouched. Fallback records, which
// only needed the numeric fields, get the description placeholder.
func (c *Client) CombinedImageAnalysis(ctx context.Context, image []byte) (*models.NutritionRecord, error) {
	rec, err := c.AnalyzeImage(ctx, image)
	if err != nil {
		return nil, err
	}

	if rec.Description == "" {
		rec.Description = NoDescriptionPlaceholder
	}
	if rec.Analysis == "" {
		rec.Analysis = NoAnalysisPlaceholder
	}

	return rec, nil
}
