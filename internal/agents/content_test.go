package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

type fakeScorer struct {
	score float64
	spans []core.Span
	err   error

	gotSubject string
	gotBody    string
}

func (f *fakeScorer) ScoreText(ctx context.Context, subject, bodyText string) (float64, []core.Span, error) {
	f.gotSubject = subject
	f.gotBody = bodyText
	return f.score, f.spans, f.err
}

func TestContentAgentTranslatesSpans(t *testing.T) {
	scorer := &fakeScorer{
		score: 0.75,
		spans: []core.Span{{Text: "verify your account", Reason: "credential request"}},
	}
	a := NewContentAgent(scorer, zap.NewNop())

	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Subject:  "Action required",
		BodyText: "Please verify your account today",
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.75, res.Score, 1e-9)
	require.Len(t, res.Explanations, 1)
	assert.Equal(t, CodeSuspiciousText, res.Explanations[0].Code)
	assert.Equal(t, "verify your account", res.Explanations[0].Evidence)
	assert.Equal(t, "Action required", scorer.gotSubject)
}

func TestContentAgentFallsBackToHTMLBody(t *testing.T) {
	scorer := &fakeScorer{}
	a := NewContentAgent(scorer, zap.NewNop())

	_, err := a.Analyze(context.Background(), &core.EmailRecord{
		BodyHTML: "<p>hello</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", scorer.gotBody)
}

func TestContentAgentScorerFailureIsUnavailable(t *testing.T) {
	a := NewContentAgent(&fakeScorer{err: errors.New("rate limited")}, zap.NewNop())
	_, err := a.Analyze(context.Background(), &core.EmailRecord{BodyText: "hi"})
	require.Error(t, err)
	assert.Equal(t, core.ErrKindDependencyUnavailable, core.KindOf(err))
}
