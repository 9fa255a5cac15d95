package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
)

// SaveMealUseCase performs the Confirming -> Saving -> Saved leg: upload the
// captured image best-effort, then write exactly one meal entry. An upload
// failure degrades to an entry without an image reference; it never fails the
// save. A failed save may be retried with the same request without
// recapturing or reclassifying.
type SaveMealUseCase struct {
	meals ports.MealRepository
	store ports.ImageStore
	queue ports.MessageQueue
}

func NewSaveMealUseCase(
	meals ports.MealRepository,
	store ports.ImageStore,
	queue ports.MessageQueue,
) *SaveMealUseCase {
	return &SaveMealUseCase{
		meals: meals,
		store: store,
		queue: queue,
	}
}

func (uc *SaveMealUseCase) Save(ctx context.Context, req ports.SaveMealRequest) (*domain.MealEntry, error) {
	if err := validateSaveRequest(req); err != nil {
		return nil, err
	}

	mealID := req.MealID
	if mealID == "" {
		mealID = uuid.NewString()
	}

	// At most one upload attempt per save attempt; never blocks the save.
	imageURL := ""
	if len(req.Image) > 0 {
		key := fmt.Sprintf("%s/%s.jpg", req.UserID, mealID)
		url, err := uc.store.Save(ctx, key, bytes.NewReader(req.Image))
		if err != nil {
			slog.Warn("meal_image_upload_failed", "meal_id", mealID, "error", err)
		} else {
			imageURL = url
		}
	}

	entry := domain.NewScannedMeal(mealID, req.UserID, req.Prediction, req.MealType, imageURL, time.Now().UTC())

	if err := uc.meals.Create(ctx, &entry); err != nil {
		return nil, fmt.Errorf("create meal entry: %w", err)
	}

	if err := uc.queue.PublishMealLogged(ctx, &entry); err != nil {
		// Feed/analytics fan-out is auxiliary; the entry is already durable.
		slog.Warn("meal_logged_publish_failed", "meal_id", entry.ID, "error", err)
	}

	return &entry, nil
}

func validateSaveRequest(req ports.SaveMealRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save meal", fmt.Errorf("empty user id"))
	}
	if !req.MealType.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "save meal", fmt.Errorf("unknown meal type %q", req.MealType))
	}
	if strings.TrimSpace(req.Prediction.Label) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save meal", fmt.Errorf("empty food label"))
	}
	return nil
}
