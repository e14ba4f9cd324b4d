package nutrition

import (
	"encoding/json"

	"github.com/horshkov/food-tracker-bot/internal/models"
)

// replyPayload mirrors the JSON object the prompts demand. Pointer fields
// distinguish a missing key from a legitimate zero.
type replyPayload struct {
	Description *string  `json:"description"`
	Calories    *float64 `json:"calories"`
	Protein     *float64 `json:"protein"`
	Carbs       *float64 `json:"carbs"`
	Fats        *float64 `json:"fats"`
	Analysis    *string  `json:"analysis"`
}

// parseRecord validates the model's reply text and converts it into a
// NutritionRecord. The text must be exactly a JSON object; the numeric
// keys are required and never silently defaulted. Description and
// analysis are optional here; the combined adapters substitute their
// placeholders.
func parseRecord(text string) (*models.NutritionRecord, *AnalysisError) {
	var payload replyPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, &AnalysisError{
			Kind:    KindMalformedReply,
			Message: err.Error(),
			Raw:     text,
			err:     err,
		}
	}

	var missing []string
	if payload.Calories == nil {
		missing = append(missing, "calories")
	}
	if payload.Protein == nil {
		missing = append(missing, "protein")
	}
	if payload.Carbs == nil {
		missing = append(missing, "carbs")
	}
	if payload.Fats == nil {
		missing = append(missing, "fats")
	}
	if len(missing) > 0 {
		return nil, &AnalysisError{
			Kind:    KindIncompleteReply,
			Missing: missing,
			Raw:     text,
		}
	}

	rec := &models.NutritionRecord{
		Calories: *payload.Calories,
		Protein:  *payload.Protein,
		Carbs:    *payload.Carbs,
		Fats:     *payload.Fats,
	}
	if payload.Description != nil {
		rec.Description = *payload.Description
	}
	if payload.Analysis != nil {
		rec.Analysis = *payload.Analysis
	}

	return rec, nil
}
