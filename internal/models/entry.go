package models

import "time"

// FoodEntry is one analyzed food item persisted for a user.
type FoodEntry struct {
	// ID is the database-assigned identifier, unique within the store.
	ID int64

	// UserID is the owning user's Telegram ID.
	UserID int64

	// Description is the free-text description of the food, either
	// user-typed or model-generated for photos.
	Description string

	// Calories is the estimated energy in kcal.
	Calories float64

	// Protein, Carbs and Fats are estimated grams.
	Protein float64
	Carbs   float64
	Fats    float64

	// Analysis is the model's free-text nutritional commentary.
	Analysis string

	// CreatedAt is the server-assigned creation time.
	CreatedAt time.Time
}

// NutritionRecord is the normalized shape produced by the inference
// client and consumed by the store. It is transient: it only exists
// between a successful analysis and the insert of a FoodEntry.
type NutritionRecord struct {
	// Description is populated only for records derived directly from an
	// image. Text-derived records (including image-fallback records)
	// leave it empty.
	Description string

	Calories float64
	Protein  float64
	Carbs    float64
	Fats     float64

	// Analysis is the model's commentary, never empty after the combined
	// adapters have run.
	Analysis string
}

// Stats aggregates a user's entries. All fields are zero (never null)
// for a user with no entries.
type Stats struct {
	TotalEntries  int64
	TotalCalories float64
	TotalProtein  float64
	TotalCarbs    float64
	TotalFats     float64
	AvgCalories   float64
	AvgProtein    float64
	AvgCarbs      float64
	AvgFats       float64
}
