package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeywordScorerCleanText(t *testing.T) {
	s := NewKeywordScorer(zap.NewNop())
	score, spans, err := s.ScoreText(context.Background(), "Lunch on Friday?", "Want to grab lunch at noon?")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, spans)
}

func TestKeywordScorerPhishingText(t *testing.T) {
	s := NewKeywordScorer(zap.NewNop())
	score, spans, err := s.ScoreText(context.Background(),
		"URGENT: verify your account",
		"Your account will be suspended unless you act now. Click to verify your account within 24 hours.")
	require.NoError(t, err)

	// Credential + urgency + threat categories all trigger.
	assert.InDelta(t, 0.75, score, 1e-9)
	assert.Len(t, spans, 3)
}

func TestKeywordScorerOneHitPerCategory(t *testing.T) {
	s := NewKeywordScorer(zap.NewNop())
	score, spans, err := s.ScoreText(context.Background(), "",
		"act now! urgent! final notice! last chance!")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, score, 1e-9)
	assert.Len(t, spans, 1)
}

func TestKeywordScorerCapsAtOne(t *testing.T) {
	s := NewKeywordScorer(zap.NewNop())
	score, _, err := s.ScoreText(context.Background(), "you have won",
		"urgent: verify your account or your account will be suspended, claim your prize now")
	require.NoError(t, err)
	assert.LessOrEqual(t, score, 1.0)
}

func TestParseRiskResponse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantScore float64
		wantSpans int
		wantErr   bool
	}{
		{
			name:      "clean JSON",
			input:     `{"score": 0.8, "spans": [{"text": "wire the funds", "reason": "payment pressure"}]}`,
			wantScore: 0.8,
			wantSpans: 1,
		},
		{
			name:      "JSON wrapped in prose",
			input:     "Here is my analysis:\n{\"score\": 0.3, \"spans\": []}\nLet me know if you need more.",
			wantScore: 0.3,
		},
		{
			name:      "score clamped",
			input:     `{"score": 1.7, "spans": []}`,
			wantScore: 1.0,
		},
		{
			name:    "no JSON at all",
			input:   "I cannot analyze this email.",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, spans, err := parseRiskResponse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Len(t, spans, tt.wantSpans)
		})
	}
}

func TestTruncateBody(t *testing.T) {
	logger := zap.NewNop()
	assert.Equal(t, "short", truncateBody("short", 100, logger))
	assert.Equal(t, "whatever", truncateBody("whatever", 0, logger))

	long := truncateBody("aaaaaaaaaa", 4, logger)
	assert.Contains(t, long, "aaaa\n[... Content truncated")
}
