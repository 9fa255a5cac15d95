package ports

import (
	"context"
	"io"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

// ScanIngestor accepts a gallery-picked image and starts the async pipeline.
type ScanIngestor interface {
	Submit(ctx context.Context, userID, filename string, body io.Reader) (*domain.ScanRecord, error)
}

// ScanProcessor runs classification for a stored scan.
type ScanProcessor interface {
	ProcessByID(ctx context.Context, scanID string) error
}

// ScanReader exposes scan state to polling clients.
type ScanReader interface {
	GetByID(ctx context.Context, id string) (*domain.ScanRecord, error)
}

// MealSaver turns a gated prediction into a durable meal entry.
type MealSaver interface {
	Save(ctx context.Context, req SaveMealRequest) (*domain.MealEntry, error)
}

// SaveMealRequest carries one confirmed save attempt. Image is optional; an
// empty slice means no upload is attempted. MealID is stable across save
// retries of the same confirmation so a retried write cannot duplicate the
// entry; when empty the saver generates one.
type SaveMealRequest struct {
	MealID     string
	UserID     string
	MealType   domain.MealType
	Prediction domain.FoodPrediction
	Image      []byte
}

// MealLogger is the manual logging path backed by the food catalog.
type MealLogger interface {
	Log(ctx context.Context, userID, foodID, portionID string, mealType domain.MealType) (*domain.MealEntry, error)
}

// MealReader serves logged meals and nutrition summaries.
type MealReader interface {
	Summary(ctx context.Context, userID string) (*domain.DailySummary, error)
	Recent(ctx context.Context, userID string, limit int) ([]domain.MealEntry, error)
}
