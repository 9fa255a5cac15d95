package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

func (r *ScanRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	label TEXT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	calories DOUBLE PRECISION NOT NULL DEFAULT 0,
	protein DOUBLE PRECISION NOT NULL DEFAULT 0,
	carbs DOUBLE PRECISION NOT NULL DEFAULT 0,
	fat DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_user_created_at ON scans(user_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ScanRepository) Create(ctx context.Context, rec *domain.ScanRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO scans (
	id, user_id, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		rec.ID, rec.UserID, rec.StoragePath, string(rec.Status), rec.Error, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (r *ScanRepository) GetByID(ctx context.Context, id string) (*domain.ScanRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, storage_path, status, label, confidence, calories, protein, carbs, fat, error_message, created_at, updated_at
FROM scans
WHERE id = $1
`, id)

	var rec domain.ScanRecord
	var status string
	var label, errMessage sql.NullString
	var confidence, calories, protein, carbs, fat float64

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.StoragePath, &status,
		&label, &confidence, &calories, &protein, &carbs, &fat,
		&errMessage, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrScanNotFound, "get scan", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}

	rec.Status = domain.ScanStatus(status)
	rec.Error = errMessage.String
	if label.Valid && label.String != "" {
		rec.Prediction = &domain.FoodPrediction{
			Label:      label.String,
			Confidence: confidence,
			Nutrition: domain.NutritionFacts{
				Calories: calories,
				Protein:  protein,
				Carbs:    carbs,
				Fat:      fat,
			},
		}
	}
	return &rec, nil
}

func (r *ScanRepository) UpdateStatus(ctx context.Context, id string, status domain.ScanStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE scans
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	return requireRowAffected(result, id)
}

func (r *ScanRepository) SavePrediction(ctx context.Context, id string, pred domain.FoodPrediction, status domain.ScanStatus) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE scans
SET status = $2, label = $3, confidence = $4, calories = $5, protein = $6, carbs = $7, fat = $8, error_message = '', updated_at = $9
WHERE id = $1
`, id, string(status), pred.Label, pred.Confidence,
		pred.Nutrition.Calories, pred.Nutrition.Protein, pred.Nutrition.Carbs, pred.Nutrition.Fat,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save scan prediction: %w", err)
	}
	return requireRowAffected(result, id)
}

func requireRowAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrScanNotFound, "update scan", fmt.Errorf("id %s", id))
	}
	return nil
}
