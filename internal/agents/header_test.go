package agents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

func receivedHeader(host string, at time.Time) core.HeaderField {
	return core.HeaderField{
		Name:  "Received",
		Value: fmt.Sprintf("from %s (unknown [198.51.100.7]) by mx.example.com; %s", host, at.Format(time.RFC1123Z)),
	}
}

func TestHeaderAgentExcessiveHopsAndSPFFail(t *testing.T) {
	a := NewHeaderAgent(6, zap.NewNop())

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	var headers core.Header
	// Stamped newest-first, as on the wire.
	for i := 11; i >= 0; i-- {
		headers = append(headers, receivedHeader(fmt.Sprintf("relay%d.example.net", i), base.Add(time.Duration(i)*time.Minute)))
	}
	headers = append(headers, core.HeaderField{
		Name:  "Authentication-Results",
		Value: "mx.example.com; spf=fail smtp.mailfrom=bulk.example.net",
	})

	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From:    "news@example.net",
		Headers: headers,
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Score, 0.5)
	assert.True(t, hasCode(res.Explanations, CodeExcessiveHops))
	assert.True(t, hasCode(res.Explanations, CodeSPFFail))
}

func TestHeaderAgentNonMonotonicTimestamps(t *testing.T) {
	a := NewHeaderAgent(6, zap.NewNop())

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	headers := core.Header{
		// Newest-first on the wire; the middle hop claims a time far
		// before the hop that preceded it in delivery order.
		receivedHeader("mx.example.com", base.Add(10*time.Minute)),
		receivedHeader("relay.example.net", base.Add(-2*time.Hour)),
		receivedHeader("origin.example.net", base),
	}

	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From:    "a@example.net",
		Headers: headers,
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeNonMonotonic))
}

func TestHeaderAgentOriginMismatch(t *testing.T) {
	a := NewHeaderAgent(6, zap.NewNop())

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	headers := core.Header{
		receivedHeader("mx.example.com", base.Add(time.Minute)),
		receivedHeader("smtp.bulkblast.ru", base),
	}

	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From:    "billing@yourbank.com",
		Headers: headers,
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeOriginMismatch))
}

func TestHeaderAgentDMARCAndDKIMFailures(t *testing.T) {
	a := NewHeaderAgent(6, zap.NewNop())
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From: "a@example.com",
		Headers: core.Header{
			{Name: "Received", Value: "from mail.example.com by mx.example.com; Mon, 24 Aug 2026 10:00:00 +0000"},
			{Name: "Authentication-Results", Value: "mx; dkim=fail header.d=example.com; dmarc=fail header.from=example.com"},
		},
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeDKIMFail))
	assert.True(t, hasCode(res.Explanations, CodeDMARCFail))
	assert.GreaterOrEqual(t, res.Score, 0.8)
}

func TestHeaderAgentReceivedSPFSoftfail(t *testing.T) {
	a := NewHeaderAgent(6, zap.NewNop())
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From: "a@example.com",
		Headers: core.Header{
			{Name: "Received-SPF", Value: "softfail (domain transitioning)"},
		},
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeSPFSoftfail))
}

func TestHeaderAgentNoTraceDataIsLowConfidenceNeutral(t *testing.T) {
	a := NewHeaderAgent(6, zap.NewNop())
	res, err := a.Analyze(context.Background(), &core.EmailRecord{From: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Score)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
	assert.True(t, hasCode(res.Explanations, CodeNoTraceData))
}

func TestHeaderAgentCleanChainScoresZero(t *testing.T) {
	a := NewHeaderAgent(6, zap.NewNop())

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	headers := core.Header{
		receivedHeader("mx.example.com", base.Add(2*time.Minute)),
		receivedHeader("smtp.example.com", base),
	}
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From:    "someone@example.com",
		Headers: headers,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Empty(t, res.Explanations)
}
