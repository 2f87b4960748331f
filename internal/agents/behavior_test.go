package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/adapters/store"
	"github.com/mailtriage/mailtriage/internal/core"
)

type failingStore struct{}

func (failingStore) Record(ctx context.Context, senderKey string, obs core.Observation) (*core.SenderProfile, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Lookup(ctx context.Context, senderKey string) (*core.SenderProfile, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Close() error { return nil }

func newTestBehaviorAgent() *BehaviorAgent {
	return NewBehaviorAgent(store.NewMemoryStore(zap.NewNop()), nil, zap.NewNop())
}

func TestBehaviorAgentNewSenderWithReplyToMismatch(t *testing.T) {
	a := newTestBehaviorAgent()
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From:            "security@paypal-verify.tk",
		FromDisplayName: "PayPal Security",
		ReplyTo:         "attacker@different-domain.com",
	})
	require.NoError(t, err)

	assert.True(t, hasCode(res.Explanations, CodeNewSender))
	assert.True(t, hasCode(res.Explanations, CodeReplyToMismatch))
	assert.True(t, hasCode(res.Explanations, CodeBrandImpersonation))
	assert.GreaterOrEqual(t, res.Score, 0.6)
}

func TestBehaviorAgentNewSenderBonusAppliesOnce(t *testing.T) {
	a := newTestBehaviorAgent()
	rec := &core.EmailRecord{
		From:            "alice@example.com",
		FromDisplayName: "Alice",
	}

	first, err := a.Analyze(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, hasCode(first.Explanations, CodeNewSender))

	second, err := a.Analyze(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, hasCode(second.Explanations, CodeNewSender))
	assert.Equal(t, 0.0, second.Score)
}

func TestBehaviorAgentUnseenDisplayName(t *testing.T) {
	a := newTestBehaviorAgent()
	_, err := a.Analyze(context.Background(), &core.EmailRecord{
		From:            "bob@example.com",
		FromDisplayName: "Bob",
	})
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From:            "bob@example.com",
		FromDisplayName: "IT Support Desk",
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeNewDisplayName))

	// Third message reusing a known name is quiet.
	res, err = a.Analyze(context.Background(), &core.EmailRecord{
		From:            "bob@example.com",
		FromDisplayName: "Bob",
	})
	require.NoError(t, err)
	assert.False(t, hasCode(res.Explanations, CodeNewDisplayName))
}

func TestBehaviorAgentSenderKeyIsCaseInsensitive(t *testing.T) {
	a := newTestBehaviorAgent()
	_, err := a.Analyze(context.Background(), &core.EmailRecord{From: "Carol@Example.COM"})
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), &core.EmailRecord{From: "carol@example.com"})
	require.NoError(t, err)
	assert.False(t, hasCode(res.Explanations, CodeNewSender))
}

func TestBehaviorAgentAuthFailureMarker(t *testing.T) {
	a := newTestBehaviorAgent()
	res, err := a.Analyze(context.Background(), &core.EmailRecord{
		From: "dave@example.com",
		Headers: core.Header{
			{Name: "Authentication-Results", Value: "mx.example.com; spf=fail smtp.mailfrom=example.com"},
		},
	})
	require.NoError(t, err)
	assert.True(t, hasCode(res.Explanations, CodeAuthFailureMarker))
}

func TestBehaviorAgentStoreFailureIsUnavailable(t *testing.T) {
	a := NewBehaviorAgent(failingStore{}, nil, zap.NewNop())
	_, err := a.Analyze(context.Background(), &core.EmailRecord{From: "eve@example.com"})
	require.Error(t, err)
	assert.Equal(t, core.ErrKindDependencyUnavailable, core.KindOf(err))
}

func TestBehaviorAgentMissingFromIsNeutral(t *testing.T) {
	a := newTestBehaviorAgent()
	res, err := a.Analyze(context.Background(), &core.EmailRecord{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Empty(t, res.Explanations)
}
