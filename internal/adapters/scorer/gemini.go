package scorer

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mailtriage/mailtriage/internal/core"
)

// GeminiScorer scores text through the Google Gemini API.
type GeminiScorer struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	maxBodySize int
	logger      *zap.Logger
}

// NewGeminiScorer creates a new Gemini-backed content scorer.
func NewGeminiScorer(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
) (*GeminiScorer, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiScorer{
		client:      client,
		model:       model,
		maxBodySize: maxBodySize,
		logger:      logger,
	}, nil
}

// Close closes the underlying client.
func (s *GeminiScorer) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ScoreText implements core.ContentScorer.
func (s *GeminiScorer) ScoreText(ctx context.Context, subject, bodyText string) (float64, []core.Span, error) {
	prompt := fmt.Sprintf(promptFormat, subject, truncateBody(bodyText, s.maxBodySize, s.logger))

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return 0, nil, fmt.Errorf("empty response from Gemini")
	}
	return parseRiskResponse(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
}
