package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

func mealAt(userID string, loggedAt time.Time, calories float64) domain.MealEntry {
	return domain.MealEntry{
		ID:        "meal-" + loggedAt.Format("20060102T150405"),
		UserID:    userID,
		Name:      "Meal",
		MealType:  domain.MealLunch,
		Nutrition: domain.NutritionFacts{Calories: calories, Protein: 10, Fat: 5, Carbs: 20},
		Source:    domain.SourceManual,
		LoggedAt:  loggedAt,
		CreatedAt: loggedAt,
	}
}

func TestSummarySplitsDayAndWeek(t *testing.T) {
	// Wednesday; the week bucket opens on the preceding Sunday.
	now := time.Date(2026, 3, 18, 14, 30, 0, 0, time.UTC)
	weekStart := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	repo := &mealRepoFake{entries: []domain.MealEntry{
		mealAt("user-1", now.Add(-2*time.Hour), 500),           // today
		mealAt("user-1", now.Add(-26*time.Hour), 300),          // yesterday, same week
		mealAt("user-1", weekStart.Add(6*time.Hour), 200),      // sunday, same week
		mealAt("user-1", weekStart.Add(-3*time.Hour), 999),     // previous week
		mealAt("user-2", now.Add(-1*time.Hour), 777),           // other user
	}}

	uc := NewSummaryUseCase(repo)
	uc.now = func() time.Time { return now }

	summary, err := uc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Date != "2026-03-18" {
		t.Fatalf("unexpected date %q", summary.Date)
	}
	if summary.DayTotal.Calories != 500 {
		t.Fatalf("day calories = %v, want 500", summary.DayTotal.Calories)
	}
	if summary.WeekTotal.Calories != 1000 {
		t.Fatalf("week calories = %v, want 1000", summary.WeekTotal.Calories)
	}
	if summary.MealCount != 1 {
		t.Fatalf("meal count counts today only, got %d", summary.MealCount)
	}
}

func TestSummaryEmptyWeek(t *testing.T) {
	uc := NewSummaryUseCase(&mealRepoFake{})
	uc.now = func() time.Time { return time.Date(2026, 3, 18, 8, 0, 0, 0, time.UTC) }

	summary, err := uc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.WeekTotal.Calories != 0 || summary.MealCount != 0 {
		t.Fatalf("expected zero totals, got %+v", summary)
	}
}

func TestRecentClampsLimit(t *testing.T) {
	now := time.Now().UTC()
	var entries []domain.MealEntry
	for i := 0; i < 30; i++ {
		entries = append(entries, mealAt("user-1", now.Add(-time.Duration(i)*time.Hour), 100))
	}
	repo := &mealRepoFake{entries: entries}
	uc := NewSummaryUseCase(repo)

	got, err := uc.Recent(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("zero limit must default to 20, got %d", len(got))
	}

	got, err = uc.Recent(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
}
