// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface. It is the embedded backend: one file on disk,
// no server process.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/horshkov/food-tracker-bot/internal/models"
	"github.com/horshkov/food-tracker-bot/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertUser creates or refreshes a user row.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name
	`

	_, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// AddFoodEntry inserts one entry and returns the assigned ID.
func (s *SQLiteStore) AddFoodEntry(ctx context.Context, userID int64, rec *models.NutritionRecord) (int64, error) {
	query := `
		INSERT INTO food_entries (user_id, description, calories, protein, carbs, fats, analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		userID,
		rec.Description,
		rec.Calories,
		rec.Protein,
		rec.Carbs,
		rec.Fats,
		rec.Analysis,
		time.Now().Unix(),
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return 0, fmt.Errorf("%w: user %d does not exist", storage.ErrConstraint, userID)
		}
		return 0, fmt.Errorf("failed to insert food entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get entry id: %w", err)
	}

	return id, nil
}

// History returns the user's most recent entries, newest first.
func (s *SQLiteStore) History(ctx context.Context, userID int64, limit int) ([]models.FoodEntry, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	// id DESC breaks ties between entries created within the same second.
	query := `
		SELECT id, user_id, description, calories, protein, carbs, fats, analysis, created_at
		FROM food_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []models.FoodEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

// Stats aggregates the user's entries. COALESCE keeps every field zero
// (never NULL) for a user with no entries.
func (s *SQLiteStore) Stats(ctx context.Context, userID int64) (*models.Stats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(calories), 0),
		       COALESCE(SUM(protein), 0),
		       COALESCE(SUM(carbs), 0),
		       COALESCE(SUM(fats), 0),
		       COALESCE(AVG(calories), 0),
		       COALESCE(AVG(protein), 0),
		       COALESCE(AVG(carbs), 0),
		       COALESCE(AVG(fats), 0)
		FROM food_entries
		WHERE user_id = ?
	`

	stats := &models.Stats{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalEntries,
		&stats.TotalCalories,
		&stats.TotalProtein,
		&stats.TotalCarbs,
		&stats.TotalFats,
		&stats.AvgCalories,
		&stats.AvgProtein,
		&stats.AvgCarbs,
		&stats.AvgFats,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

// Entry retrieves one entry scoped by owner. Returns (nil, nil) when the
// entry does not exist or belongs to another user.
func (s *SQLiteStore) Entry(ctx context.Context, userID, entryID int64) (*models.FoodEntry, error) {
	query := `
		SELECT id, user_id, description, calories, protein, carbs, fats, analysis, created_at
		FROM food_entries
		WHERE user_id = ? AND id = ?
	`

	row := s.db.QueryRowContext(ctx, query, userID, entryID)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil // Not found (or not yours; callers cannot tell)
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// DeleteEntry removes at most one row matching both IDs.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, userID, entryID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM food_entries WHERE user_id = ? AND id = ?",
		userID, entryID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted > 0, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEntry.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.FoodEntry, error) {
	entry := &models.FoodEntry{}
	var createdAt int64
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Description,
		&entry.Calories,
		&entry.Protein,
		&entry.Carbs,
		&entry.Fats,
		&entry.Analysis,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	entry.CreatedAt = time.Unix(createdAt, 0).UTC()
	return entry, nil
}

// isForeignKeyErr reports whether err is a SQLite foreign key violation.
// modernc.org/sqlite surfaces these as plain errors, so match the message.
func isForeignKeyErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
