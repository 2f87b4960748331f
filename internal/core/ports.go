package core

import (
	"context"
	"time"
)

// Agent is one independent analyzer producing a risk score and explanations
// for a single signal category. Implementations must respect the context
// deadline and return promptly after cancellation; the orchestrator marks
// late agents unavailable and ignores their eventual results.
type Agent interface {
	// Name returns the agent identifier used for weights and results.
	Name() string

	// Analyze scores the given email record. A returned error marks the
	// agent unavailable for this analysis; it never aborts the verdict.
	Analyze(ctx context.Context, rec *EmailRecord) (*AgentResult, error)
}

// ContentScorer is the pluggable text-classification collaborator. The
// model internals are outside this module; it is consumed as an opaque
// scorer producing a score and highlighted spans.
type ContentScorer interface {
	ScoreText(ctx context.Context, subject, bodyText string) (float64, []Span, error)
}

// Span is a highlighted fragment returned by the content scorer.
type Span struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// ImageDecoder extracts payload strings from raw image bytes. A malformed
// image yields an empty slice, never an error; decoding failures are not
// risk signals.
type ImageDecoder interface {
	DecodePayloads(ctx context.Context, image []byte) []string
}

// WhoisClient resolves the registration age of a domain. The boolean is
// false when the lookup failed or the age is unknown; callers treat that
// as "no signal". Implementations must honor the context deadline.
type WhoisClient interface {
	RegistrationAge(ctx context.Context, domain string) (time.Duration, bool)
}

// ReputationStore persists sender history for the Behavior Agent, which is
// its only client.
//
// Record atomically fetches the profile as it existed before this call and
// applies the observation: create the profile on first sighting, otherwise
// increment the count and merge the observed display name and Reply-To
// domain. prior is nil exactly once per sender key, even under concurrent
// analyses of the same sender; different keys must not contend.
type ReputationStore interface {
	Record(ctx context.Context, senderKey string, obs Observation) (prior *SenderProfile, err error)

	// Lookup returns the current profile, or nil when the sender is unknown.
	Lookup(ctx context.Context, senderKey string) (*SenderProfile, error)

	Close() error
}
