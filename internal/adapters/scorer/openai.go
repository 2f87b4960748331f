package scorer

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

// OpenAIScorer scores text through the OpenAI chat completion API.
type OpenAIScorer struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	maxBodySize int
	logger      *zap.Logger
}

// NewOpenAIScorer creates a new OpenAI-backed content scorer.
func NewOpenAIScorer(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
) *OpenAIScorer {
	return &OpenAIScorer{
		client:      openai.NewClient(apiKey),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// ScoreText implements core.ContentScorer.
func (s *OpenAIScorer) ScoreText(ctx context.Context, subject, bodyText string) (float64, []core.Span, error) {
	prompt := fmt.Sprintf(promptFormat, subject, truncateBody(bodyText, s.maxBodySize, s.logger))

	req := openai.ChatCompletionRequest{
		Model: s.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email risk triage system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		TopP:        s.topP,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: "json"}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, nil, fmt.Errorf("empty response from OpenAI")
	}
	return parseRiskResponse(resp.Choices[0].Message.Content)
}
