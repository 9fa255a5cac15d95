package domain

import "time"

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

func (t MealType) Valid() bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// MealSource records which single source produced the nutrition values.
// Scanner output and catalog lookups are never mixed within one entry.
type MealSource string

const (
	SourceScan   MealSource = "scan"
	SourceManual MealSource = "manual"
)

type NutritionFacts struct {
	Calories float64 `json:"calories"` // kcal
	Protein  float64 `json:"protein"`  // grams
	Carbs    float64 `json:"carbs"`    // grams
	Fat      float64 `json:"fat"`      // grams

	// Populated only for catalog-sourced entries.
	Fiber  float64 `json:"fiber,omitempty"`
	Sugar  float64 `json:"sugar,omitempty"`
	Sodium float64 `json:"sodium,omitempty"` // milligrams
}

// MealEntry is the durable record of a logged meal. Immutable after creation;
// edits and deletes belong to a different surface of the app.
type MealEntry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Name       string         `json:"name"`
	MealType   MealType       `json:"meal_type"`
	Nutrition  NutritionFacts `json:"nutrition"`
	Source     MealSource     `json:"source"`
	Confidence float64        `json:"confidence,omitempty"`
	ImageURL   string         `json:"image_url,omitempty"`
	LoggedAt   time.Time      `json:"logged_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewScannedMeal builds an entry whose nutrition comes from a classifier
// prediction. The image URL may be empty when the upload was skipped or
// failed; the save itself is unaffected.
func NewScannedMeal(id, userID string, pred FoodPrediction, mealType MealType, imageURL string, now time.Time) MealEntry {
	return MealEntry{
		ID:         id,
		UserID:     userID,
		Name:       pred.Label,
		MealType:   mealType,
		Nutrition:  pred.Nutrition,
		Source:     SourceScan,
		Confidence: pred.Confidence,
		ImageURL:   imageURL,
		LoggedAt:   now,
		CreatedAt:  now,
	}
}

// NewManualMeal builds an entry whose nutrition comes from a catalog portion.
func NewManualMeal(id, userID string, item FoodItem, portion Portion, mealType MealType, now time.Time) MealEntry {
	return MealEntry{
		ID:        id,
		UserID:    userID,
		Name:      item.Name,
		MealType:  mealType,
		Nutrition: portion.Nutrition,
		Source:    SourceManual,
		LoggedAt:  now,
		CreatedAt: now,
	}
}

// DailySummary aggregates nutrition for the dashboard.
type DailySummary struct {
	Date      string         `json:"date"`
	DayTotal  NutritionFacts `json:"day_total"`
	WeekTotal NutritionFacts `json:"week_total"`
	MealCount int            `json:"meal_count"`
}

func (s *DailySummary) AddDay(n NutritionFacts) {
	s.DayTotal.Calories += n.Calories
	s.DayTotal.Protein += n.Protein
	s.DayTotal.Carbs += n.Carbs
	s.DayTotal.Fat += n.Fat
	s.MealCount++
}

func (s *DailySummary) AddWeek(n NutritionFacts) {
	s.WeekTotal.Calories += n.Calories
	s.WeekTotal.Protein += n.Protein
	s.WeekTotal.Carbs += n.Carbs
	s.WeekTotal.Fat += n.Fat
}
