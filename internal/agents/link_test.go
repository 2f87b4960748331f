package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/heuristics"
)

type fakeWhois struct {
	ages map[string]time.Duration
}

func (f *fakeWhois) RegistrationAge(ctx context.Context, domain string) (time.Duration, bool) {
	age, ok := f.ages[domain]
	return age, ok
}

func newTestLinkAgent(whois core.WhoisClient) *LinkAgent {
	return NewLinkAgent(heuristics.NewSet(nil, nil, nil, nil), whois, time.Second, zap.NewNop())
}

func hasCode(explanations []core.Explanation, code string) bool {
	for _, e := range explanations {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestLinkAgentIPLiteral(t *testing.T) {
	a := newTestLinkAgent(nil)
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Links: []string{"http://203.0.113.5/login"},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 0.7)
	assert.True(t, hasCode(res.Explanations, heuristics.CodeIPLiteral))
}

func TestLinkAgentNoURLsIsNeutral(t *testing.T) {
	a := newTestLinkAgent(nil)
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		BodyText: "just a friendly note, no links here",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Empty(t, res.Explanations)
}

func TestLinkAgentExtractsBodyURLs(t *testing.T) {
	a := newTestLinkAgent(nil)
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		BodyHTML: `<p>Click <a href="https://bit.ly/claim-million">here</a></p>`,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 0.4)
	assert.True(t, hasCode(res.Explanations, heuristics.CodeShortener))
}

func TestLinkAgentYoungDomain(t *testing.T) {
	whois := &fakeWhois{ages: map[string]time.Duration{
		"fresh-prize.com": 3 * 24 * time.Hour,
	}}
	a := newTestLinkAgent(whois)
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Links: []string{"https://fresh-prize.com/win"},
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeYoungDomain))
	assert.GreaterOrEqual(t, res.Score, 0.5)
}

func TestLinkAgentWhoisFailureIsNoSignal(t *testing.T) {
	a := newTestLinkAgent(&fakeWhois{}) // every lookup fails
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Links: []string{"https://some-ordinary-site.com/page"},
	})
	require.NoError(t, err)
	assert.False(t, hasCode(res.Explanations, CodeYoungDomain))
	assert.Equal(t, 0.0, res.Score)
}

func TestLinkAgentWorstPlusBonusAcrossURLs(t *testing.T) {
	a := newTestLinkAgent(nil)
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Links: []string{
			"https://bit.ly/a",
			"https://tinyurl.com/b",
			"https://example.com/ok",
		},
	})
	require.NoError(t, err)
	// worst 0.45 + one extra suspicious URL * 0.05
	assert.InDelta(t, 0.5, res.Score, 1e-9)
}

func TestLinkAgentDeduplicatesRecordAndBodyURLs(t *testing.T) {
	a := newTestLinkAgent(nil)
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Links:    []string{"https://bit.ly/claim-million"},
		BodyText: "go to https://bit.ly/claim-million now",
	})
	require.NoError(t, err)
	// Single URL: no cross-URL bonus despite appearing twice.
	assert.InDelta(t, 0.45, res.Score, 1e-9)
}
