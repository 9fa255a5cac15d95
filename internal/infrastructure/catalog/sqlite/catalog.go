package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

//go:embed schema.sql seed.sql
var catalogFS embed.FS

// Catalog is the bundled food/portion reference data behind manual logging.
// The database is read-only after seeding; an in-memory path (":memory:")
// works for tests.
type Catalog struct {
	db *sql.DB
}

func New(dbPath string) (*Catalog, error) {
	if dbPath == "" {
		dbPath = "./data/catalog.db"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	for _, file := range []string{"schema.sql", "seed.sql"} {
		raw, err := catalogFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := db.Exec(string(raw)); err != nil {
			return nil, fmt.Errorf("execute %s: %w", file, err)
		}
	}

	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]domain.FoodItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	rows, err := c.db.QueryContext(ctx, `
SELECT id, name FROM foods
WHERE name LIKE '%' || ? || '%' COLLATE NOCASE
ORDER BY name
LIMIT ?
`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search foods: %w", err)
	}
	defer rows.Close()

	var items []domain.FoodItem
	for rows.Next() {
		var item domain.FoodItem
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foods: %w", err)
	}

	for i := range items {
		portions, err := c.portionsFor(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Portions = portions
	}
	return items, nil
}

func (c *Catalog) GetByID(ctx context.Context, id string) (*domain.FoodItem, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, name FROM foods WHERE id = ?`, id)

	var item domain.FoodItem
	if err := row.Scan(&item.ID, &item.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFoodNotFound, "get food", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan food: %w", err)
	}

	portions, err := c.portionsFor(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Portions = portions
	return &item, nil
}

func (c *Catalog) portionsFor(ctx context.Context, foodID string) ([]domain.Portion, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT id, label, gram_weight, calories, protein, carbs, fat, fiber, sugar, sodium
FROM portions
WHERE food_id = ?
ORDER BY gram_weight
`, foodID)
	if err != nil {
		return nil, fmt.Errorf("query portions: %w", err)
	}
	defer rows.Close()

	var portions []domain.Portion
	for rows.Next() {
		var p domain.Portion
		if err := rows.Scan(&p.ID, &p.Label, &p.GramWeight,
			&p.Nutrition.Calories, &p.Nutrition.Protein, &p.Nutrition.Carbs, &p.Nutrition.Fat,
			&p.Nutrition.Fiber, &p.Nutrition.Sugar, &p.Nutrition.Sodium); err != nil {
			return nil, fmt.Errorf("scan portion: %w", err)
		}
		portions = append(portions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portions: %w", err)
	}
	return portions, nil
}
