package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/heuristics"
)

type fakeDecoder struct {
	payloads map[int][]string // image index → payloads
	calls    int
}

func (f *fakeDecoder) DecodePayloads(ctx context.Context, image []byte) []string {
	p := f.payloads[f.calls]
	f.calls++
	return p
}

func newTestQRAgent(decoder core.ImageDecoder) *QRAgent {
	return NewQRAgent(decoder, heuristics.NewSet(nil, nil, nil, nil), zap.NewNop())
}

func TestQRAgentShortenerPayload(t *testing.T) {
	a := newTestQRAgent(&fakeDecoder{payloads: map[int][]string{
		0: {"https://bit.ly/claim-million"},
	}})
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Images: [][]byte{{0x89, 0x50}},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 0.4)
	assert.True(t, hasCode(res.Explanations, heuristics.CodeShortener))
}

func TestQRAgentCryptoAddressPayload(t *testing.T) {
	a := newTestQRAgent(&fakeDecoder{payloads: map[int][]string{
		0: {"Send 0.1 BTC to bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq to claim your prize"},
	}})
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Images: [][]byte{{0x89, 0x50}},
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeQRCryptoAddress))
	assert.True(t, hasCode(res.Explanations, CodeQRUrgencyText))
	assert.GreaterOrEqual(t, res.Score, 0.8)
	assert.Less(t, res.Confidence, 0.9)
}

func TestQRAgentNoImagesIsNeutral(t *testing.T) {
	a := newTestQRAgent(&fakeDecoder{})
	res, err := a.Analyze(context.Background(), &core.EmailRecord{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Empty(t, res.Explanations)
}

func TestQRAgentUndecodableImagesAreSkipped(t *testing.T) {
	a := newTestQRAgent(&fakeDecoder{payloads: map[int][]string{
		1: {"https://bit.ly/x-y-z"},
	}})
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Images: [][]byte{{0x00}, {0x89, 0x50}},
	})
	require.NoError(t, err)
	// First image decodes to nothing; second still scores.
	assert.GreaterOrEqual(t, res.Score, 0.4)
}

func TestQRAgentBenignTextPayload(t *testing.T) {
	a := newTestQRAgent(&fakeDecoder{payloads: map[int][]string{
		0: {"WIFI:T:WPA;S:guest;P:hunter2;;"},
	}})
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		Images: [][]byte{{0x89, 0x50}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
}
