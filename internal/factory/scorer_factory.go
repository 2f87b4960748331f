// Package factory builds the configurable backends from configuration.
package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/adapters/scorer"
	"github.com/mailtriage/mailtriage/internal/config"
	"github.com/mailtriage/mailtriage/internal/core"
)

// ScorerFactory creates content scorers based on configuration.
type ScorerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewScorerFactory creates a new scorer factory.
func NewScorerFactory(cfg *config.Config, logger *zap.Logger) *ScorerFactory {
	return &ScorerFactory{cfg: cfg, logger: logger}
}

// CreateContentScorer creates the configured content scorer provider.
func (f *ScorerFactory) CreateContentScorer() (core.ContentScorer, error) {
	provider := f.cfg.GetScorer().Provider
	switch provider {
	case "keyword":
		return scorer.NewKeywordScorer(f.logger), nil
	case "openai":
		c := f.cfg.GetOpenAI()
		return scorer.NewOpenAIScorer(
			c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, c.MaxBodySize, f.logger), nil
	case "gemini":
		c := f.cfg.GetGemini()
		return scorer.NewGeminiScorer(
			c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, c.MaxBodySize, f.logger)
	case "bedrock":
		c := f.cfg.GetBedrock()
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(c.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		return scorer.NewBedrockScorer(
			client, c.ModelID, c.MaxTokens, c.Temperature, c.TopP, c.MaxBodySize, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported scorer provider: %s", provider)
	}
}
