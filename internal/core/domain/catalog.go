package domain

// FoodItem is a read-only catalog entry used by the manual logging path.
type FoodItem struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Portions []Portion `json:"portions"`
}

// Portion maps a discrete serving size to a fixed nutrition tuple.
type Portion struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"` // e.g. "1 medium", "100 g"
	GramWeight float64        `json:"gram_weight"`
	Nutrition  NutritionFacts `json:"nutrition"`
}

// PortionByID returns the portion with the given id, if present.
func (f FoodItem) PortionByID(id string) (Portion, bool) {
	for _, p := range f.Portions {
		if p.ID == id {
			return p, true
		}
	}
	return Portion{}, false
}
