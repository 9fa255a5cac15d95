package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

// Classifier runs food recognition on Vertex AI Gemini vision models. It is
// the managed-cloud alternative to the self-hosted llava backend; both parse
// the same response envelope.
type Classifier struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

type Config struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
}

func New(ctx context.Context, cfg Config) (*Classifier, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("vertex project id is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}

	return &Classifier{
		client: client,
		model:  client.GenerativeModel(model),
	}, nil
}

func (c *Classifier) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Classifier) Classify(ctx context.Context, imageData []byte) (domain.FoodPrediction, error) {
	if c.model == nil {
		return domain.FoodPrediction{}, domain.WrapError(domain.ErrModelNotLoaded, "classify image",
			fmt.Errorf("vertex model not initialized"))
	}
	if len(imageData) == 0 {
		return domain.FoodPrediction{}, domain.WrapError(domain.ErrInvalidImage, "classify image",
			fmt.Errorf("empty image payload"))
	}

	img := genai.ImageData("image/jpeg", imageData)
	resp, err := c.model.GenerateContent(ctx, genai.Text(classifyPrompt), img)
	if err != nil {
		return domain.FoodPrediction{}, domain.WrapError(domain.ErrPredictionFailed, "classify image", err)
	}

	text, err := firstCandidateText(resp)
	if err != nil {
		return domain.FoodPrediction{}, err
	}
	return parsePrediction(text)
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", domain.WrapError(domain.ErrNoPrediction, "classify image",
			fmt.Errorf("no candidates in response"))
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", domain.WrapError(domain.ErrNoPrediction, "classify image",
			fmt.Errorf("no content parts in response"))
	}
	return strings.TrimSpace(fmt.Sprintf("%v", candidate.Content.Parts[0])), nil
}
