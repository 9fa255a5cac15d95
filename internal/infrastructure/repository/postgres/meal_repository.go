package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

type MealRepository struct {
	db *sql.DB
}

func NewMealRepository(db *sql.DB) *MealRepository {
	return &MealRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *MealRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS meal_entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	meal_type TEXT NOT NULL,
	calories DOUBLE PRECISION NOT NULL DEFAULT 0,
	protein DOUBLE PRECISION NOT NULL DEFAULT 0,
	carbs DOUBLE PRECISION NOT NULL DEFAULT 0,
	fat DOUBLE PRECISION NOT NULL DEFAULT 0,
	fiber DOUBLE PRECISION NOT NULL DEFAULT 0,
	sugar DOUBLE PRECISION NOT NULL DEFAULT 0,
	sodium DOUBLE PRECISION NOT NULL DEFAULT 0,
	source TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	image_url TEXT,
	logged_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_meal_entries_user_logged_at ON meal_entries(user_id, logged_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *MealRepository) Create(ctx context.Context, entry *domain.MealEntry) error {
	// ON CONFLICT DO NOTHING keeps a retried save from duplicating the
	// entry when the first attempt committed but its response was lost.
	_, err := r.db.ExecContext(ctx, `
INSERT INTO meal_entries (
	id, user_id, name, meal_type, calories, protein, carbs, fat, fiber, sugar, sodium, source, confidence, image_url, logged_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO NOTHING
`,
		entry.ID, entry.UserID, entry.Name, string(entry.MealType),
		entry.Nutrition.Calories, entry.Nutrition.Protein, entry.Nutrition.Carbs, entry.Nutrition.Fat,
		entry.Nutrition.Fiber, entry.Nutrition.Sugar, entry.Nutrition.Sodium,
		string(entry.Source), entry.Confidence, entry.ImageURL, entry.LoggedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert meal entry: %w", err)
	}
	return nil
}

func (r *MealRepository) GetByID(ctx context.Context, userID, id string) (*domain.MealEntry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, name, meal_type, calories, protein, carbs, fat, fiber, sugar, sodium, source, confidence, image_url, logged_at, created_at
FROM meal_entries
WHERE id = $1 AND user_id = $2
`, id, userID)

	entry, err := scanMealEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrMealNotFound, "get meal entry", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan meal entry: %w", err)
	}
	return entry, nil
}

func (r *MealRepository) ListSince(ctx context.Context, userID string, from time.Time) ([]domain.MealEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, name, meal_type, calories, protein, carbs, fat, fiber, sugar, sodium, source, confidence, image_url, logged_at, created_at
FROM meal_entries
WHERE user_id = $1 AND logged_at >= $2
ORDER BY logged_at DESC
`, userID, from)
	if err != nil {
		return nil, fmt.Errorf("query meal entries: %w", err)
	}
	defer rows.Close()

	return collectMealEntries(rows)
}

func (r *MealRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.MealEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, name, meal_type, calories, protein, carbs, fat, fiber, sugar, sodium, source, confidence, image_url, logged_at, created_at
FROM meal_entries
WHERE user_id = $1
ORDER BY logged_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent meal entries: %w", err)
	}
	defer rows.Close()

	return collectMealEntries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMealEntry(row rowScanner) (*domain.MealEntry, error) {
	var entry domain.MealEntry
	var mealType, source string
	var imageURL sql.NullString

	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.Name, &mealType,
		&entry.Nutrition.Calories, &entry.Nutrition.Protein, &entry.Nutrition.Carbs, &entry.Nutrition.Fat,
		&entry.Nutrition.Fiber, &entry.Nutrition.Sugar, &entry.Nutrition.Sodium,
		&source, &entry.Confidence, &imageURL, &entry.LoggedAt, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.MealType = domain.MealType(mealType)
	entry.Source = domain.MealSource(source)
	entry.ImageURL = imageURL.String
	return &entry, nil
}

func collectMealEntries(rows *sql.Rows) ([]domain.MealEntry, error) {
	var entries []domain.MealEntry
	for rows.Next() {
		entry, err := scanMealEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal entries: %w", err)
	}
	return entries, nil
}
