package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
)

type mealRepoFake struct {
	mu        sync.Mutex
	createErr error
	created   []domain.MealEntry
	entries   []domain.MealEntry
}

func (f *mealRepoFake) Create(_ context.Context, entry *domain.MealEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *entry)
	return nil
}

func (f *mealRepoFake) GetByID(_ context.Context, userID, id string) (*domain.MealEntry, error) {
	for i := range f.created {
		if f.created[i].ID == id && f.created[i].UserID == userID {
			return &f.created[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrMealNotFound, "get meal", errors.New("no row"))
}

func (f *mealRepoFake) ListSince(_ context.Context, userID string, from time.Time) ([]domain.MealEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MealEntry
	for _, e := range append(append([]domain.MealEntry{}, f.entries...), f.created...) {
		if e.UserID == userID && !e.LoggedAt.Before(from) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *mealRepoFake) ListRecent(_ context.Context, userID string, limit int) ([]domain.MealEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MealEntry
	for _, e := range append(append([]domain.MealEntry{}, f.entries...), f.created...) {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type storeFake struct {
	saveErr error
	saves   []string
	baseURL string
}

func (f *storeFake) Save(_ context.Context, key string, data io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if _, err := io.ReadAll(data); err != nil {
		return "", err
	}
	f.saves = append(f.saves, key)
	if f.baseURL == "" {
		f.baseURL = "/media/meals"
	}
	return f.baseURL + "/" + key, nil
}

func (f *storeFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type queueFake struct {
	publishScanErr error
	publishMealErr error
	scanIDs        []string
	logged         []domain.MealEntry
}

func (f *queueFake) PublishScanCaptured(_ context.Context, scanID string) error {
	if f.publishScanErr != nil {
		return f.publishScanErr
	}
	f.scanIDs = append(f.scanIDs, scanID)
	return nil
}

func (f *queueFake) SubscribeScanCaptured(context.Context, func(context.Context, string) error) error {
	return nil
}

func (f *queueFake) PublishMealLogged(_ context.Context, entry *domain.MealEntry) error {
	if f.publishMealErr != nil {
		return f.publishMealErr
	}
	f.logged = append(f.logged, *entry)
	return nil
}

func saveRequest() ports.SaveMealRequest {
	return ports.SaveMealRequest{
		MealID:   "meal-1",
		UserID:   "user-1",
		MealType: domain.MealLunch,
		Prediction: domain.FoodPrediction{
			Label:      "Banana",
			Confidence: 0.92,
			Nutrition:  domain.NutritionFacts{Calories: 105, Protein: 1.3, Fat: 0.4, Carbs: 27},
		},
		Image: []byte("jpeg-bytes"),
	}
}

func TestSaveMealPersistsEntryAndUploadsImage(t *testing.T) {
	repo := &mealRepoFake{}
	store := &storeFake{}
	queue := &queueFake{}
	uc := NewSaveMealUseCase(repo, store, queue)

	entry, err := uc.Save(context.Background(), saveRequest())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if entry.ID != "meal-1" || entry.Name != "Banana" || entry.Source != domain.SourceScan {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.ImageURL != "/media/meals/user-1/meal-1.jpg" {
		t.Fatalf("unexpected image url %q", entry.ImageURL)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(repo.created))
	}
	if len(store.saves) != 1 || store.saves[0] != "user-1/meal-1.jpg" {
		t.Fatalf("unexpected upload keys %v", store.saves)
	}
	if len(queue.logged) != 1 {
		t.Fatalf("expected meal.logged event, got %d", len(queue.logged))
	}
}

func TestSaveMealUploadFailureDoesNotBlockSave(t *testing.T) {
	repo := &mealRepoFake{}
	store := &storeFake{saveErr: errors.New("disk full")}
	uc := NewSaveMealUseCase(repo, store, &queueFake{})

	entry, err := uc.Save(context.Background(), saveRequest())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if entry.ImageURL != "" {
		t.Fatalf("failed upload must yield an entry without image url, got %q", entry.ImageURL)
	}
	if len(repo.created) != 1 {
		t.Fatalf("entry must still be persisted, inserts=%d", len(repo.created))
	}
}

func TestSaveMealSkipsUploadWithoutImage(t *testing.T) {
	store := &storeFake{}
	uc := NewSaveMealUseCase(&mealRepoFake{}, store, &queueFake{})

	req := saveRequest()
	req.Image = nil
	entry, err := uc.Save(context.Background(), req)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(store.saves) != 0 {
		t.Fatalf("no upload expected, got %v", store.saves)
	}
	if entry.ImageURL != "" {
		t.Fatalf("unexpected image url %q", entry.ImageURL)
	}
}

func TestSaveMealRetryAfterRepoFailureWritesOnce(t *testing.T) {
	repo := &mealRepoFake{createErr: errors.New("connection reset")}
	uc := NewSaveMealUseCase(repo, &storeFake{}, &queueFake{})
	req := saveRequest()

	if _, err := uc.Save(context.Background(), req); err == nil {
		t.Fatalf("expected create failure")
	}

	repo.mu.Lock()
	repo.createErr = nil
	repo.mu.Unlock()

	entry, err := uc.Save(context.Background(), req)
	if err != nil {
		t.Fatalf("retry Save() error = %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("retried save must produce exactly one entry, got %d", len(repo.created))
	}
	if entry.ID != req.MealID {
		t.Fatalf("retry must keep the original meal id, got %q", entry.ID)
	}
}

func TestSaveMealPublishFailureIsNonFatal(t *testing.T) {
	repo := &mealRepoFake{}
	uc := NewSaveMealUseCase(repo, &storeFake{}, &queueFake{publishMealErr: errors.New("nats down")})

	if _, err := uc.Save(context.Background(), saveRequest()); err != nil {
		t.Fatalf("publish failure must not fail the save, got %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("entry must be persisted, inserts=%d", len(repo.created))
	}
}

func TestSaveMealValidation(t *testing.T) {
	uc := NewSaveMealUseCase(&mealRepoFake{}, &storeFake{}, &queueFake{})

	cases := []struct {
		name   string
		mutate func(*ports.SaveMealRequest)
	}{
		{"empty user", func(r *ports.SaveMealRequest) { r.UserID = " " }},
		{"bad meal type", func(r *ports.SaveMealRequest) { r.MealType = "brunch" }},
		{"empty label", func(r *ports.SaveMealRequest) { r.Prediction.Label = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := saveRequest()
			tc.mutate(&req)
			if _, err := uc.Save(context.Background(), req); !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
