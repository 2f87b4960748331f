// Package scorer holds the content-scorer providers. The classifier itself
// is an external collaborator; these adapters only shape the exchange.
package scorer

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

// promptFormat is shared by every model-backed provider so they stay
// interchangeable behind the port.
const promptFormat = `You are an email risk triage system. Analyze the following email text for phishing, scams and social engineering.
Respond with a JSON object containing:
- score: number between 0 and 1 (higher means riskier)
- spans: array of objects, each with "text" (a short suspicious fragment quoted from the email) and "reason" (why it is suspicious)

Email:
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// riskResponse is the structured reply expected from the model.
type riskResponse struct {
	Score float64     `json:"score"`
	Spans []core.Span `json:"spans"`
}

// parseRiskResponse decodes the model reply, tolerating prose around the
// JSON object by falling back to the outermost brace pair.
func parseRiskResponse(responseText string) (float64, []core.Span, error) {
	var parsed riskResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := -1
		jsonEnd := -1
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}
		if jsonStart < 0 || jsonStart >= jsonEnd {
			return 0, nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &parsed); err != nil {
			return 0, nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}
	if parsed.Score < 0 {
		parsed.Score = 0
	}
	if parsed.Score > 1 {
		parsed.Score = 1
	}
	return parsed.Score, parsed.Spans, nil
}

// truncateBody caps the body sent to the model.
func truncateBody(body string, maxBodySize int, logger *zap.Logger) string {
	if maxBodySize <= 0 || len(body) <= maxBodySize {
		return body
	}
	truncated := body[:maxBodySize]
	logger.Debug("Email body truncated",
		zap.Int("original_size", len(body)),
		zap.Int("max_size", maxBodySize))
	return truncated + "\n[... Content truncated due to size limits ...]"
}
