package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
)

// SummaryUseCase aggregates logged meals into the day/week totals shown on
// the home dashboard.
type SummaryUseCase struct {
	meals ports.MealRepository
	now   func() time.Time
}

func NewSummaryUseCase(meals ports.MealRepository) *SummaryUseCase {
	return &SummaryUseCase{
		meals: meals,
		now:   time.Now,
	}
}

func (uc *SummaryUseCase) Summary(ctx context.Context, userID string) (*domain.DailySummary, error) {
	now := uc.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfWeek := startOfDay.AddDate(0, 0, -int(now.Weekday()))

	entries, err := uc.meals.ListSince(ctx, userID, startOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list meals since week start: %w", err)
	}

	summary := &domain.DailySummary{Date: startOfDay.Format("2006-01-02")}
	for _, entry := range entries {
		if entry.LoggedAt.Before(startOfWeek) {
			continue
		}
		summary.AddWeek(entry.Nutrition)
		if !entry.LoggedAt.Before(startOfDay) {
			summary.AddDay(entry.Nutrition)
		}
	}
	return summary, nil
}

func (uc *SummaryUseCase) Recent(ctx context.Context, userID string, limit int) ([]domain.MealEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, err := uc.meals.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent meals: %w", err)
	}
	return entries, nil
}
