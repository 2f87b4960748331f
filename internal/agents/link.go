// Package agents contains the concrete signal analyzers run by the
// orchestrator. Each agent is independent, owns its explanation codes and
// never sees another agent's output.
package agents

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/extract"
	"github.com/mailtriage/mailtriage/internal/heuristics"
)

// Link agent explanation codes beyond the shared heuristics codes.
const (
	CodeYoungDomain = "URL_YOUNG_DOMAIN"
)

// Cross-URL aggregation: the worst URL dominates, every additional URL at
// or above the suspicious line adds a small bonus.
const (
	urlSuspiciousAt = 0.4
	urlBonus        = 0.05
)

// WHOIS registration-age tiers. A lookup failure is no signal at all.
const (
	youngDomain7d  = 0.5
	youngDomain30d = 0.3
	youngDomain90d = 0.15
)

// LinkAgent scores the URLs an email references, combining the offline
// domain heuristics with a bounded WHOIS age check per registrable domain.
type LinkAgent struct {
	logger       *zap.Logger
	set          *heuristics.Set
	whois        core.WhoisClient
	whoisTimeout time.Duration
}

// NewLinkAgent creates a link agent. A nil whois client disables the
// registration-age check entirely.
func NewLinkAgent(set *heuristics.Set, whois core.WhoisClient, whoisTimeout time.Duration, logger *zap.Logger) *LinkAgent {
	return &LinkAgent{
		logger:       logger,
		set:          set,
		whois:        whois,
		whoisTimeout: whoisTimeout,
	}
}

// Name implements core.Agent.
func (a *LinkAgent) Name() string { return core.AgentLink }

// Analyze scores every distinct URL the record references. URLs provided on
// the record are merged with URLs pulled out of the bodies, so a link only
// present in the HTML still gets scored.
func (a *LinkAgent) Analyze(ctx context.Context, rec *core.EmailRecord) (*core.AgentResult, error) {
	urls := mergeURLs(rec.Links, extract.URLs(rec.BodyHTML, rec.BodyText))
	if len(urls) == 0 {
		return &core.AgentResult{
			AgentID:    core.AgentLink,
			Score:      0,
			Confidence: 1,
		}, nil
	}

	ages := a.lookupAges(ctx, urls)

	scores := make([]float64, 0, len(urls))
	var explanations []core.Explanation
	for _, u := range urls {
		score, findings := a.set.ScoreURL(u)
		for _, f := range findings {
			explanations = append(explanations, core.Explanation{
				Code:     f.Code,
				Text:     f.Text,
				Evidence: f.Evidence,
			})
		}

		if host, err := heuristics.ParseHost(u); err == nil {
			domain := heuristics.RegistrableDomain(host)
			if age, ok := ages[domain]; ok {
				if ds := youngDomainScore(age); ds > 0 {
					score += ds
					explanations = append(explanations, core.Explanation{
						Code:     CodeYoungDomain,
						Text:     fmt.Sprintf("domain %s registered %d days ago", domain, int(age.Hours()/24)),
						Evidence: u,
					})
				}
			}
		}
		if score > 1 {
			score = 1
		}
		scores = append(scores, score)
	}

	return &core.AgentResult{
		AgentID:      core.AgentLink,
		Score:        heuristics.CombineWorstPlusBonus(scores, urlSuspiciousAt, urlBonus),
		Confidence:   0.9,
		Explanations: explanations,
	}, nil
}

// lookupAges resolves the registration age of each distinct registrable
// domain once, under the per-lookup WHOIS budget. Trusted domains and IP
// literals are skipped.
func (a *LinkAgent) lookupAges(ctx context.Context, urls []string) map[string]time.Duration {
	ages := make(map[string]time.Duration)
	if a.whois == nil {
		return ages
	}
	seen := make(map[string]struct{})
	for _, u := range urls {
		host, err := heuristics.ParseHost(u)
		if err != nil || heuristics.IsIPLiteral(host) {
			continue
		}
		domain := heuristics.RegistrableDomain(host)
		if _, done := seen[domain]; done || a.set.TrustedExact(host) {
			continue
		}
		seen[domain] = struct{}{}

		wctx, cancel := context.WithTimeout(ctx, a.whoisTimeout)
		age, ok := a.whois.RegistrationAge(wctx, domain)
		cancel()
		if ok {
			ages[domain] = age
		} else {
			a.logger.Debug("WHOIS age unavailable", zap.String("domain", domain))
		}
	}
	return ages
}

func youngDomainScore(age time.Duration) float64 {
	switch {
	case age < 7*24*time.Hour:
		return youngDomain7d
	case age < 30*24*time.Hour:
		return youngDomain30d
	case age < 90*24*time.Hour:
		return youngDomain90d
	}
	return 0
}

func mergeURLs(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, u := range g {
			if _, dup := seen[u]; dup || u == "" {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
