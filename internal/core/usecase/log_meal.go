package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
)

// LogMealUseCase is the manual logging path: nutrition comes from a catalog
// portion, never from a classifier.
type LogMealUseCase struct {
	meals   ports.MealRepository
	catalog ports.FoodCatalog
	queue   ports.MessageQueue
}

func NewLogMealUseCase(
	meals ports.MealRepository,
	catalog ports.FoodCatalog,
	queue ports.MessageQueue,
) *LogMealUseCase {
	return &LogMealUseCase{
		meals:   meals,
		catalog: catalog,
		queue:   queue,
	}
}

func (uc *LogMealUseCase) Log(
	ctx context.Context,
	userID, foodID, portionID string,
	mealType domain.MealType,
) (*domain.MealEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "log meal", fmt.Errorf("empty user id"))
	}
	if !mealType.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "log meal", fmt.Errorf("unknown meal type %q", mealType))
	}

	item, err := uc.catalog.GetByID(ctx, foodID)
	if err != nil {
		return nil, fmt.Errorf("lookup food: %w", err)
	}

	portion, ok := item.PortionByID(portionID)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "log meal",
			fmt.Errorf("food %s has no portion %q", foodID, portionID))
	}

	entry := domain.NewManualMeal(uuid.NewString(), userID, *item, portion, mealType, time.Now().UTC())

	if err := uc.meals.Create(ctx, &entry); err != nil {
		return nil, fmt.Errorf("create meal entry: %w", err)
	}

	if err := uc.queue.PublishMealLogged(ctx, &entry); err != nil {
		slog.Warn("meal_logged_publish_failed", "meal_id", entry.ID, "error", err)
	}

	return &entry, nil
}
