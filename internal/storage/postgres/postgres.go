// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface. It is the networked backend, using the pgx
// driver through database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/horshkov/food-tracker-bot/internal/models"
	"github.com/horshkov/food-tracker-bot/internal/storage"
)

// pgForeignKeyViolation is the PostgreSQL error code for a foreign key
// constraint failure.
const pgForeignKeyViolation = "23503"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    username TEXT,
    first_name TEXT,
    last_name TEXT
);

CREATE TABLE IF NOT EXISTS food_entries (
    id SERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    description TEXT,
    calories DOUBLE PRECISION NOT NULL DEFAULT 0,
    protein DOUBLE PRECISION NOT NULL DEFAULT 0,
    carbs DOUBLE PRECISION NOT NULL DEFAULT 0,
    fats DOUBLE PRECISION NOT NULL DEFAULT 0,
    analysis TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_food_entries_user_id ON food_entries(user_id);
CREATE INDEX IF NOT EXISTS idx_food_entries_created_at ON food_entries(user_id, created_at);
`

// Ensure PostgresStore implements storage.Store
var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// New connects to PostgreSQL with the given DSN and ensures the schema
// exists. The schema setup is idempotent.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// UpsertUser creates or refreshes a user row.
func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name
	`

	_, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// AddFoodEntry inserts one entry and returns the assigned ID.
func (s *PostgresStore) AddFoodEntry(ctx context.Context, userID int64, rec *models.NutritionRecord) (int64, error) {
	query := `
		INSERT INTO food_entries (user_id, description, calories, protein, carbs, fats, analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		userID,
		rec.Description,
		rec.Calories,
		rec.Protein,
		rec.Carbs,
		rec.Fats,
		rec.Analysis,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return 0, fmt.Errorf("%w: user %d does not exist", storage.ErrConstraint, userID)
		}
		return 0, fmt.Errorf("failed to insert food entry: %w", err)
	}

	return id, nil
}

// History returns the user's most recent entries, newest first.
func (s *PostgresStore) History(ctx context.Context, userID int64, limit int) ([]models.FoodEntry, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	// id DESC breaks ties between entries sharing a timestamp.
	query := `
		SELECT id, user_id, description, calories, protein, carbs, fats, analysis, created_at
		FROM food_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []models.FoodEntry
	for rows.Next() {
		var entry models.FoodEntry
		var createdAt time.Time
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Description,
			&entry.Calories,
			&entry.Protein,
			&entry.Carbs,
			&entry.Fats,
			&entry.Analysis,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.CreatedAt = createdAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

// Stats aggregates the user's entries. COALESCE keeps every field zero
// (never NULL) for a user with no entries.
func (s *PostgresStore) Stats(ctx context.Context, userID int64) (*models.Stats, error) {
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
		WHERE user_id = $1
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
func (s *PostgresStore) Entry(ctx context.Context, userID, entryID int64) (*models.FoodEntry, error) {
	query := `
		SELECT id, user_id, description, calories, protein, carbs, fats, analysis, created_at
		FROM food_entries
		WHERE user_id = $1 AND id = $2
	`

	entry := &models.FoodEntry{}
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, query, userID, entryID).Scan(
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
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found (or not yours; callers cannot tell)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	entry.CreatedAt = createdAt.UTC()
	return entry, nil
}

// DeleteEntry removes at most one row matching both IDs.
func (s *PostgresStore) DeleteEntry(ctx context.Context, userID, entryID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM food_entries WHERE user_id = $1 AND id = $2",
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
