// Package models defines the core domain models for the food tracker.
//
// # Models
//
//   - User: a Telegram account interacting with the bot
//   - FoodEntry: one analyzed food item persisted for a user
//   - NutritionRecord: the normalized result of a single analysis
//   - Stats: aggregate nutrition numbers for one user
//
// # Design Principles
//
//  1. **External identity**: user IDs are assigned by Telegram, entry IDs
//     by the database. The models never generate identifiers.
//  2. **No partial records**: a NutritionRecord either carries all numeric
//     fields or the analysis failed and no record exists at all.
//  3. **Avoid circular references**: entries reference their owner by ID,
//     never by pointer.
package models
