package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/heuristics"
)

// Behavior agent explanation codes.
const (
	CodeNewSender          = "BEHAVIOR_NEW_SENDER"
	CodeNewDisplayName     = "BEHAVIOR_NEW_DISPLAY_NAME"
	CodeReplyToMismatch    = "BEHAVIOR_REPLY_TO_MISMATCH"
	CodeBrandImpersonation = "BEHAVIOR_BRAND_IMPERSONATION"
	CodeAuthFailureMarker  = "BEHAVIOR_AUTH_FAILURE"
)

const (
	scoreNewSender          = 0.4
	scoreNewDisplayName     = 0.25
	scoreReplyToMismatch    = 0.3
	scoreBrandImpersonation = 0.2
	scoreAuthFailureMarker  = 0.3
)

// BehaviorAgent scores the sender against their recorded history. Every
// analysis both reads and extends that history through a single atomic
// store operation, so concurrent analyses of the same sender cannot each
// see them as new.
type BehaviorAgent struct {
	logger *zap.Logger
	store  core.ReputationStore
	brands []brand
	now    func() time.Time
}

type brand struct {
	token  string // first label, e.g. "paypal"
	domain string // registrable domain, e.g. "paypal.com"
}

// NewBehaviorAgent creates a behavior agent. trustedDomains feeds the
// brand-impersonation check; nil falls back to the default trusted list.
func NewBehaviorAgent(store core.ReputationStore, trustedDomains []string, logger *zap.Logger) *BehaviorAgent {
	if trustedDomains == nil {
		trustedDomains = heuristics.DefaultTrustedDomains
	}
	brands := make([]brand, 0, len(trustedDomains))
	for _, d := range trustedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		token, _, ok := strings.Cut(d, ".")
		if !ok || len(token) < 4 {
			// Short tokens ("t.co") match everything; skip them.
			continue
		}
		brands = append(brands, brand{token: token, domain: d})
	}
	return &BehaviorAgent{
		logger: logger,
		store:  store,
		brands: brands,
		now:    time.Now,
	}
}

// Name implements core.Agent.
func (a *BehaviorAgent) Name() string { return core.AgentBehavior }

// Analyze records this sighting and scores the behavioral deviations the
// prior history reveals. A store failure marks the agent unavailable.
func (a *BehaviorAgent) Analyze(ctx context.Context, rec *core.EmailRecord) (*core.AgentResult, error) {
	key := SenderKey(rec.From)
	if key == "" {
		return &core.AgentResult{
			AgentID:    core.AgentBehavior,
			Score:      0,
			Confidence: 0.3,
		}, nil
	}

	obs := core.Observation{
		DisplayName:   strings.TrimSpace(rec.FromDisplayName),
		ReplyToDomain: addressDomain(rec.ReplyTo),
		SeenAt:        a.now(),
	}
	prior, err := a.store.Record(ctx, key, obs)
	if err != nil {
		return nil, fmt.Errorf("%w: reputation store: %v", core.ErrDependencyUnavailable, err)
	}

	var score float64
	var explanations []core.Explanation
	add := func(s float64, code, text, evidence string) {
		score += s
		explanations = append(explanations, core.Explanation{Code: code, Text: text, Evidence: evidence})
	}

	if prior == nil {
		add(scoreNewSender, CodeNewSender, "first message ever seen from this sender", key)
	} else if obs.DisplayName != "" && !prior.HasDisplayName(obs.DisplayName) {
		add(scoreNewDisplayName, CodeNewDisplayName,
			"sender is using a display name never seen before", obs.DisplayName)
	}

	fromDomain := addressDomain(rec.From)
	if obs.ReplyToDomain != "" && fromDomain != "" && obs.ReplyToDomain != fromDomain {
		add(scoreReplyToMismatch, CodeReplyToMismatch,
			fmt.Sprintf("replies go to %s while the sender claims %s", obs.ReplyToDomain, fromDomain),
			rec.ReplyTo)
	}

	if b, hit := a.impersonatedBrand(rec.FromDisplayName, fromDomain); hit {
		add(scoreBrandImpersonation, CodeBrandImpersonation,
			fmt.Sprintf("display name invokes %s but the sender domain is %s", b.domain, fromDomain),
			rec.FromDisplayName)
	}

	if marker := authFailureMarker(rec.Headers); marker != "" {
		add(scoreAuthFailureMarker, CodeAuthFailureMarker,
			"sender authentication failed according to receiving servers", marker)
	}

	if score > 1 {
		score = 1
	}
	return &core.AgentResult{
		AgentID:      core.AgentBehavior,
		Score:        score,
		Confidence:   0.85,
		Explanations: explanations,
	}, nil
}

// SenderKey normalizes an address into the reputation store key.
func SenderKey(from string) string {
	return strings.ToLower(strings.TrimSpace(from))
}

// impersonatedBrand reports whether the display name carries a known brand
// token while the sending domain belongs to someone else.
func (a *BehaviorAgent) impersonatedBrand(displayName, fromDomain string) (brand, bool) {
	name := strings.ToLower(displayName)
	if name == "" || fromDomain == "" {
		return brand{}, false
	}
	for _, b := range a.brands {
		if strings.Contains(name, b.token) && fromDomain != b.domain {
			return b, true
		}
	}
	return brand{}, false
}

// authFailureMarker scans the authentication headers for an explicit
// failure verdict and returns the matching fragment.
func authFailureMarker(h core.Header) string {
	for _, v := range h.Values("Authentication-Results") {
		lower := strings.ToLower(v)
		for _, marker := range []string{"spf=fail", "dkim=fail", "dmarc=fail"} {
			if strings.Contains(lower, marker) {
				return marker
			}
		}
	}
	for _, v := range h.Values("Received-SPF") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "fail") {
			return "received-spf: fail"
		}
	}
	return ""
}

// addressDomain extracts the lower-cased registrable domain of an email
// address, or "" when there is none.
func addressDomain(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	i := strings.LastIndex(addr, "@")
	if i < 0 || i == len(addr)-1 {
		return ""
	}
	return heuristics.RegistrableDomain(strings.Trim(addr[i+1:], ">"))
}
