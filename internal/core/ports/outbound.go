package ports

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

// CaptureSource owns a camera device session and yields one still per
// user-initiated capture. Implementations must tolerate StopSession while a
// capture is in flight; the session use case serializes captures.
type CaptureSource interface {
	RequestAccess(ctx context.Context) (domain.PermissionState, error)
	StartSession(ctx context.Context) error
	Capture(ctx context.Context) (domain.CapturedFrame, error)
	ToggleTorch(ctx context.Context) error
	StopSession() error
}

// FramePreprocessor normalizes a raw still into classifier input.
type FramePreprocessor interface {
	Crop(img image.Image, frame domain.CapturedFrame) image.Image
}

// FoodClassifier maps one encoded image to a food prediction. Stateless per
// call; callers keep at most one classification in flight per session.
type FoodClassifier interface {
	Classify(ctx context.Context, imageData []byte) (domain.FoodPrediction, error)
}

// MealRepository persists confirmed meal entries.
type MealRepository interface {
	Create(ctx context.Context, entry *domain.MealEntry) error
	GetByID(ctx context.Context, userID, id string) (*domain.MealEntry, error)
	ListSince(ctx context.Context, userID string, from time.Time) ([]domain.MealEntry, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.MealEntry, error)
}

// ScanRepository persists gallery scan state.
type ScanRepository interface {
	Create(ctx context.Context, rec *domain.ScanRecord) error
	GetByID(ctx context.Context, id string) (*domain.ScanRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.ScanStatus, errMessage string) error
	SavePrediction(ctx context.Context, id string, pred domain.FoodPrediction, status domain.ScanStatus) error
}

// ImageStore holds captured meal images and resolves them to client URLs.
type ImageStore interface {
	Save(ctx context.Context, key string, data io.Reader) (url string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// FoodCatalog is the bundled read-only food/portion reference data.
type FoodCatalog interface {
	Search(ctx context.Context, query string, limit int) ([]domain.FoodItem, error)
	GetByID(ctx context.Context, id string) (*domain.FoodItem, error)
}

// MessageQueue publishes/consumes scan pipeline events.
type MessageQueue interface {
	PublishScanCaptured(ctx context.Context, scanID string) error
	SubscribeScanCaptured(ctx context.Context, handler func(context.Context, string) error) error
	PublishMealLogged(ctx context.Context, entry *domain.MealEntry) error
}
