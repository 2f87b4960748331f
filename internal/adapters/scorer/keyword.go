package scorer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

// phraseCategory is one family of lure phrases; only the strongest hit per
// category counts, so piling on synonyms does not inflate the score.
type phraseCategory struct {
	reason  string
	weight  float64
	phrases []string
}

var keywordCategories = []phraseCategory{
	{
		reason: "asks for credentials or account verification",
		weight: 0.3,
		phrases: []string{
			"verify your account", "confirm your password", "confirm your identity",
			"update your payment", "login to your account", "re-enter your details",
			"validate your account",
		},
	},
	{
		reason: "pressures the reader to act immediately",
		weight: 0.2,
		phrases: []string{
			"act now", "urgent", "immediately", "within 24 hours",
			"expires today", "final notice", "last chance",
		},
	},
	{
		reason: "threatens account suspension or penalties",
		weight: 0.25,
		phrases: []string{
			"account will be suspended", "account has been locked",
			"unusual activity", "unauthorized access", "legal action",
		},
	},
	{
		reason: "promises an unsolicited reward",
		weight: 0.25,
		phrases: []string{
			"you have won", "congratulations", "claim your prize",
			"free gift", "selected as a winner", "lottery",
		},
	},
}

// KeywordScorer is the offline content scorer: a fixed phrase list instead
// of a model. It is the default provider so the engine runs with no API
// keys at all.
type KeywordScorer struct {
	logger *zap.Logger
}

// NewKeywordScorer creates the offline phrase-list scorer.
func NewKeywordScorer(logger *zap.Logger) *KeywordScorer {
	return &KeywordScorer{logger: logger}
}

// ScoreText implements core.ContentScorer.
func (s *KeywordScorer) ScoreText(ctx context.Context, subject, bodyText string) (float64, []core.Span, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	text := strings.ToLower(subject + "\n" + bodyText)

	var score float64
	var spans []core.Span
	for _, cat := range keywordCategories {
		for _, phrase := range cat.phrases {
			if strings.Contains(text, phrase) {
				score += cat.weight
				spans = append(spans, core.Span{Text: phrase, Reason: cat.reason})
				break
			}
		}
	}
	if score > 1 {
		score = 1
	}
	return score, spans, nil
}
