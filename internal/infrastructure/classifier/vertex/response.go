package vertex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

// classifyPrompt mirrors the llava backend envelope so pipeline routing does
// not depend on which classifier is configured.
const classifyPrompt = `You are a food recognition service. Identify the single main food item in this photo and estimate its nutrition for the visible portion.

Respond with a JSON object with exactly one of "error" or "success" populated.
Use "error" when the photo does not show food or is too unclear to identify.
{
  "error": {
    "reason": "string"
  },
  "success": {
    "food": "string",
    "confidence": number,
    "calories": number,
    "protein": number,
    "carbs": number,
    "fat": number
  }
}
"confidence" is your certainty in the identification, between 0 and 1. Nutrition values are grams except calories.`

// parsePrediction handles the raw model text: Gemini tends to wrap JSON in a
// markdown fence even when asked not to.
func parsePrediction(raw string) (domain.FoodPrediction, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var envelope struct {
		Error struct {
			Reason string `json:"reason"`
		} `json:"error"`
		Success struct {
			Food       string  `json:"food"`
			Confidence float64 `json:"confidence"`
			Calories   float64 `json:"calories"`
			Protein    float64 `json:"protein"`
			Carbs      float64 `json:"carbs"`
			Fat        float64 `json:"fat"`
		} `json:"success"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return domain.FoodPrediction{}, domain.WrapError(domain.ErrNoPrediction, "parse model response", err)
	}
	if envelope.Error.Reason != "" {
		return domain.FoodPrediction{}, domain.WrapError(domain.ErrNoPrediction, "classify image",
			fmt.Errorf("model declined: %s", envelope.Error.Reason))
	}
	if strings.TrimSpace(envelope.Success.Food) == "" {
		return domain.FoodPrediction{}, domain.WrapError(domain.ErrNoPrediction, "classify image",
			fmt.Errorf("empty food label in response"))
	}

	conf := envelope.Success.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return domain.FoodPrediction{
		Label:      envelope.Success.Food,
		Confidence: conf,
		Nutrition: domain.NutritionFacts{
			Calories: envelope.Success.Calories,
			Protein:  envelope.Success.Protein,
			Carbs:    envelope.Success.Carbs,
			Fat:      envelope.Success.Fat,
		},
	}, nil
}
