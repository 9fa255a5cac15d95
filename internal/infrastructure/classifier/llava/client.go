package llava

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/infrastructure/resilience"
)

// Client talks to an Ollama-served vision model (llava family). One request
// per classification; callers keep at most one in flight per session.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// NewWithExecutor wraps classification calls in retry/breaker policies.
func NewWithExecutor(baseURL, model string, executor *resilience.Executor) *Client {
	c := New(baseURL, model)
	c.executor = executor
	return c
}

// Classify sends one encoded image and parses the model's JSON envelope into
// a food prediction. A well-formed "error" envelope or an unparseable answer
// is ErrNoPrediction; transport and backend failures map to the hard kinds.
func (c *Client) Classify(ctx context.Context, imageData []byte) (domain.FoodPrediction, error) {
	if len(imageData) == 0 {
		return domain.FoodPrediction{}, domain.WrapError(domain.ErrInvalidImage, "classify image",
			fmt.Errorf("empty image payload"))
	}

	reqBody := map[string]any{
		"model":  c.model,
		"prompt": classifyPrompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "classify")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llava.classify", call, classifyLlavaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.FoodPrediction{}, mapClassifyError(err)
	}

	return parsePrediction(response.Response)
}

// parsePrediction decodes the success/error envelope the prompt demands.
func parsePrediction(raw string) (domain.FoodPrediction, error) {
	text := extractJSONObject(raw)

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

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
