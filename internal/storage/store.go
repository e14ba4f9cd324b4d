// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/horshkov/food-tracker-bot/internal/models"
)

// DefaultHistoryLimit bounds History when the caller passes limit <= 0.
const DefaultHistoryLimit = 10

var (
	// ErrUnavailable indicates the storage backend could not be reached.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrConstraint indicates a referential constraint was violated,
	// typically an entry inserted for a user that was never upserted.
	ErrConstraint = errors.New("constraint violation")
)

// Store defines the interface for user and food-entry storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the bot layer.
//
// Every read and delete is scoped by the owning user's ID in addition to
// the row's own identifier; that scoping is the system's entire
// access-control model.
type Store interface {
	// UpsertUser creates the user or refreshes its display attributes.
	// Idempotent: calling twice with the same ID leaves exactly one row,
	// with the second call's names.
	UpsertUser(ctx context.Context, user *models.User) error

	// AddFoodEntry persists one analyzed food item and returns the
	// assigned entry ID. The owning user must already exist; otherwise
	// the error wraps ErrConstraint.
	AddFoodEntry(ctx context.Context, userID int64, rec *models.NutritionRecord) (int64, error)

	// History returns the user's most recent entries, newest first.
	// A non-positive limit falls back to DefaultHistoryLimit.
	History(ctx context.Context, userID int64, limit int) ([]models.FoodEntry, error)

	// Stats aggregates the user's entries. A user with no entries gets
	// a Stats with every field zero.
	Stats(ctx context.Context, userID int64) (*models.Stats, error)

	// Entry retrieves one entry if and only if it belongs to the user.
	// Returns (nil, nil) when the entry does not exist or is owned by
	// someone else; callers cannot tell the two apart.
	Entry(ctx context.Context, userID, entryID int64) (*models.FoodEntry, error)

	// DeleteEntry removes at most one row matching both IDs and reports
	// whether a row was actually removed.
	DeleteEntry(ctx context.Context, userID, entryID int64) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}
