package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

type catalogFake struct {
	items map[string]*domain.FoodItem
}

func (f *catalogFake) Search(_ context.Context, query string, limit int) ([]domain.FoodItem, error) {
	var out []domain.FoodItem
	for _, item := range f.items {
		out = append(out, *item)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *catalogFake) GetByID(_ context.Context, id string) (*domain.FoodItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrFoodNotFound, "get food", errors.New("no row"))
	}
	return item, nil
}

func testCatalog() *catalogFake {
	return &catalogFake{items: map[string]*domain.FoodItem{
		"food-1": {
			ID:   "food-1",
			Name: "Oatmeal",
			Portions: []domain.Portion{
				{ID: "p-100g", Label: "100 g", GramWeight: 100,
					Nutrition: domain.NutritionFacts{Calories: 389, Protein: 16.9, Fat: 6.9, Carbs: 66.3}},
				{ID: "p-bowl", Label: "1 bowl", GramWeight: 234,
					Nutrition: domain.NutritionFacts{Calories: 166, Protein: 5.9, Fat: 3.6, Carbs: 28.1}},
			},
		},
	}}
}

func TestLogMealFromCatalogPortion(t *testing.T) {
	repo := &mealRepoFake{}
	queue := &queueFake{}
	uc := NewLogMealUseCase(repo, testCatalog(), queue)

	entry, err := uc.Log(context.Background(), "user-1", "food-1", "p-bowl", domain.MealBreakfast)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if entry.Name != "Oatmeal" || entry.Source != domain.SourceManual {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Nutrition.Calories != 166 {
		t.Fatalf("nutrition must come from the chosen portion, got %+v", entry.Nutrition)
	}
	if entry.Confidence != 0 {
		t.Fatalf("manual entries carry no confidence, got %v", entry.Confidence)
	}
	if len(repo.created) != 1 || len(queue.logged) != 1 {
		t.Fatalf("expected one insert and one event, got %d/%d", len(repo.created), len(queue.logged))
	}
}

func TestLogMealUnknownFood(t *testing.T) {
	uc := NewLogMealUseCase(&mealRepoFake{}, testCatalog(), &queueFake{})

	_, err := uc.Log(context.Background(), "user-1", "food-404", "p-100g", domain.MealDinner)
	if !domain.IsKind(err, domain.ErrFoodNotFound) {
		t.Fatalf("expected ErrFoodNotFound, got %v", err)
	}
}

func TestLogMealUnknownPortion(t *testing.T) {
	uc := NewLogMealUseCase(&mealRepoFake{}, testCatalog(), &queueFake{})

	_, err := uc.Log(context.Background(), "user-1", "food-1", "p-404", domain.MealDinner)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLogMealRejectsBadInput(t *testing.T) {
	uc := NewLogMealUseCase(&mealRepoFake{}, testCatalog(), &queueFake{})

	if _, err := uc.Log(context.Background(), "", "food-1", "p-100g", domain.MealLunch); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty user, got %v", err)
	}
	if _, err := uc.Log(context.Background(), "user-1", "food-1", "p-100g", "second-breakfast"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad meal type, got %v", err)
	}
}
