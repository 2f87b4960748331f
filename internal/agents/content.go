package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/extract"
)

// CodeSuspiciousText marks a highlighted span from the content scorer.
const CodeSuspiciousText = "CONTENT_SUSPICIOUS_TEXT"

// ContentAgent delegates text classification to the pluggable scorer. The
// classifier itself lives behind the port; this agent only normalizes its
// input and translates its output into the common result shape.
type ContentAgent struct {
	logger *zap.Logger
	scorer core.ContentScorer
}

// NewContentAgent creates a content agent around the given scorer.
func NewContentAgent(scorer core.ContentScorer, logger *zap.Logger) *ContentAgent {
	return &ContentAgent{logger: logger, scorer: scorer}
}

// Name implements core.Agent.
func (a *ContentAgent) Name() string { return core.AgentContent }

// Analyze sends the subject and text body to the scorer. A scorer failure
// marks the agent unavailable; it never guesses a score.
func (a *ContentAgent) Analyze(ctx context.Context, rec *core.EmailRecord) (*core.AgentResult, error) {
	subject := extract.SanitizeUTF8(rec.Subject)
	body := extract.SanitizeUTF8(rec.BodyText)
	if body == "" {
		body = extract.SanitizeUTF8(rec.BodyHTML)
	}

	score, spans, err := a.scorer.ScoreText(ctx, subject, body)
	if err != nil {
		return nil, fmt.Errorf("%w: content scorer: %v", core.ErrDependencyUnavailable, err)
	}

	explanations := make([]core.Explanation, 0, len(spans))
	for _, s := range spans {
		explanations = append(explanations, core.Explanation{
			Code:     CodeSuspiciousText,
			Text:     s.Reason,
			Evidence: s.Text,
		})
	}
	return &core.AgentResult{
		AgentID:      core.AgentContent,
		Score:        score,
		Confidence:   0.85,
		Explanations: explanations,
	}, nil
}
