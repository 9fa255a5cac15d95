package sqlite

import (
	"context"
	"testing"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = catalog.Close() })
	return catalog
}

func TestGetByIDLoadsPortions(t *testing.T) {
	catalog := newTestCatalog(t)

	item, err := catalog.GetByID(context.Background(), "banana")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if item.Name != "Banana" {
		t.Fatalf("unexpected name %q", item.Name)
	}
	if len(item.Portions) != 2 {
		t.Fatalf("expected 2 portions, got %d", len(item.Portions))
	}
	portion, ok := item.PortionByID("p-medium")
	if !ok {
		t.Fatalf("expected p-medium portion")
	}
	if portion.Nutrition.Calories != 105 {
		t.Fatalf("unexpected nutrition %+v", portion.Nutrition)
	}
	if portion.Nutrition.Fiber != 3.1 || portion.Nutrition.Sodium != 1 {
		t.Fatalf("expected catalog micronutrients populated, got %+v", portion.Nutrition)
	}
}

func TestGetByIDUnknownFood(t *testing.T) {
	catalog := newTestCatalog(t)

	_, err := catalog.GetByID(context.Background(), "unicorn-steak")
	if !domain.IsKind(err, domain.ErrFoodNotFound) {
		t.Fatalf("expected ErrFoodNotFound, got %v", err)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	catalog := newTestCatalog(t)

	items, err := catalog.Search(context.Background(), "CHICKEN", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "chicken-breast" {
		t.Fatalf("unexpected results %+v", items)
	}
	if len(items[0].Portions) == 0 {
		t.Fatalf("search results must include portions")
	}
}

func TestSearchEmptyQueryListsAll(t *testing.T) {
	catalog := newTestCatalog(t)

	items, err := catalog.Search(context.Background(), "", 50)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 8 {
		t.Fatalf("expected the full seed catalog, got %d items", len(items))
	}
}

func TestSearchClampsLimit(t *testing.T) {
	catalog := newTestCatalog(t)

	items, err := catalog.Search(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) > 20 {
		t.Fatalf("limit must clamp to default, got %d", len(items))
	}
}
