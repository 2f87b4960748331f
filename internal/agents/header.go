package agents

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/heuristics"
)

// Header agent explanation codes.
const (
	CodeExcessiveHops  = "HEADER_EXCESSIVE_HOPS"
	CodeNonMonotonic   = "HEADER_NON_MONOTONIC_TIMESTAMPS"
	CodeSPFFail        = "HEADER_SPF_FAIL"
	CodeSPFSoftfail    = "HEADER_SPF_SOFTFAIL"
	CodeDKIMFail       = "HEADER_DKIM_FAIL"
	CodeDMARCFail      = "HEADER_DMARC_FAIL"
	CodeOriginMismatch = "HEADER_ORIGIN_MISMATCH"
	CodeNoTraceData    = "HEADER_NO_TRACE_DATA"
)

const (
	scoreExcessiveHops  = 0.3
	scoreNonMonotonic   = 0.25
	scoreSPFFail        = 0.4
	scoreSPFSoftfail    = 0.2
	scoreDKIMFail       = 0.3
	scoreDMARCFail      = 0.5
	scoreOriginMismatch = 0.3
)

var (
	receivedFromPattern = regexp.MustCompile(`(?i)^from\s+([^\s(]+)`)
	spfResultPattern    = regexp.MustCompile(`(?i)\bspf=(\w+)`)
	dkimResultPattern   = regexp.MustCompile(`(?i)\bdkim=(\w+)`)
	dmarcResultPattern  = regexp.MustCompile(`(?i)\bdmarc=(\w+)`)
)

// HeaderAgent inspects the transport trace and authentication verdicts
// already stamped on the message by receiving servers. It does no network
// IO and is the cheapest agent in the pool.
type HeaderAgent struct {
	logger  *zap.Logger
	maxHops int
}

// NewHeaderAgent creates a header agent flagging chains longer than maxHops.
func NewHeaderAgent(maxHops int, logger *zap.Logger) *HeaderAgent {
	return &HeaderAgent{logger: logger, maxHops: maxHops}
}

// Name implements core.Agent.
func (a *HeaderAgent) Name() string { return core.AgentHeader }

// Analyze scores routing anomalies and failed authentication results. With
// no Received chain and no authentication results there is nothing to judge
// and the result carries reduced confidence rather than a zero risk claim.
func (a *HeaderAgent) Analyze(ctx context.Context, rec *core.EmailRecord) (*core.AgentResult, error) {
	var score float64
	var explanations []core.Explanation
	add := func(s float64, code, text, evidence string) {
		score += s
		explanations = append(explanations, core.Explanation{Code: code, Text: text, Evidence: evidence})
	}

	received := rec.Headers.Values("Received")
	hops := parseHops(received)

	if len(received) > 0 {
		if len(received) > a.maxHops {
			add(scoreExcessiveHops, CodeExcessiveHops,
				fmt.Sprintf("message passed through %d hops (threshold %d)", len(received), a.maxHops), "")
		}
		if violatesChronology(hops) {
			add(scoreNonMonotonic, CodeNonMonotonic,
				"hop timestamps run backwards along the delivery path", "")
		}
		if domain := originDomain(hops); domain != "" {
			fromDomain := addressDomain(rec.From)
			if fromDomain != "" && domain != fromDomain {
				add(scoreOriginMismatch, CodeOriginMismatch,
					fmt.Sprintf("message originated from %s but claims to be from %s", domain, fromDomain), "")
			}
		}
	}

	for _, e := range authFindings(rec.Headers) {
		add(e.score, e.code, e.text, e.evidence)
	}

	confidence := 0.9
	if len(received) == 0 {
		explanations = append(explanations, core.Explanation{
			Code: CodeNoTraceData,
			Text: "no Received chain present; routing checks skipped",
		})
		confidence = 0.3
	}

	if score > 1 {
		score = 1
	}
	return &core.AgentResult{
		AgentID:      core.AgentHeader,
		Score:        score,
		Confidence:   confidence,
		Explanations: explanations,
	}, nil
}

// hop is one parsed Received header, in delivery order after reversal.
type hop struct {
	fromHost string
	at       time.Time
	hasTime  bool
}

// parseHops parses the Received values into delivery order, oldest first.
// Headers are stamped newest-first on the wire.
func parseHops(received []string) []hop {
	hops := make([]hop, 0, len(received))
	for i := len(received) - 1; i >= 0; i-- {
		v := received[i]
		var h hop
		if m := receivedFromPattern.FindStringSubmatch(strings.TrimSpace(v)); m != nil {
			h.fromHost = strings.ToLower(strings.Trim(m[1], "[]"))
		}
		if j := strings.LastIndex(v, ";"); j >= 0 {
			if t, err := mail.ParseDate(strings.TrimSpace(v[j+1:])); err == nil {
				h.at = t
				h.hasTime = true
			}
		}
		hops = append(hops, h)
	}
	return hops
}

// violatesChronology reports whether any later hop is stamped meaningfully
// earlier than the one before it. Clock skew under a minute is tolerated.
func violatesChronology(hops []hop) bool {
	const skew = time.Minute
	var prev time.Time
	var havePrev bool
	for _, h := range hops {
		if !h.hasTime {
			continue
		}
		if havePrev && h.at.Add(skew).Before(prev) {
			return true
		}
		prev = h.at
		havePrev = true
	}
	return false
}

// originDomain returns the registrable domain of the first hop's source
// host, or "" when the origin is an IP literal or unparsable.
func originDomain(hops []hop) string {
	for _, h := range hops {
		if h.fromHost == "" {
			continue
		}
		if heuristics.IsIPLiteral(h.fromHost) || !strings.Contains(h.fromHost, ".") {
			return ""
		}
		return heuristics.RegistrableDomain(h.fromHost)
	}
	return ""
}

type authFinding struct {
	score    float64
	code     string
	text     string
	evidence string
}

// authFindings extracts SPF/DKIM/DMARC verdicts from Authentication-Results
// and Received-SPF headers. Only explicit failures score; "none" and
// "neutral" are silent.
func authFindings(h core.Header) []authFinding {
	var out []authFinding
	seen := make(map[string]struct{})
	add := func(f authFinding) {
		if _, dup := seen[f.code]; dup {
			return
		}
		seen[f.code] = struct{}{}
		out = append(out, f)
	}

	for _, v := range h.Values("Authentication-Results") {
		if m := spfResultPattern.FindStringSubmatch(v); m != nil {
			switch strings.ToLower(m[1]) {
			case "fail":
				add(authFinding{scoreSPFFail, CodeSPFFail, "SPF check failed for the sending server", v})
			case "softfail":
				add(authFinding{scoreSPFSoftfail, CodeSPFSoftfail, "SPF soft-failed for the sending server", v})
			}
		}
		if m := dkimResultPattern.FindStringSubmatch(v); m != nil && strings.EqualFold(m[1], "fail") {
			add(authFinding{scoreDKIMFail, CodeDKIMFail, "DKIM signature verification failed", v})
		}
		if m := dmarcResultPattern.FindStringSubmatch(v); m != nil && strings.EqualFold(m[1], "fail") {
			add(authFinding{scoreDMARCFail, CodeDMARCFail, "DMARC policy evaluation failed", v})
		}
	}

	for _, v := range h.Values("Received-SPF") {
		switch {
		case strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "softfail"):
			add(authFinding{scoreSPFSoftfail, CodeSPFSoftfail, "SPF soft-failed for the sending server", v})
		case strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "fail"):
			add(authFinding{scoreSPFFail, CodeSPFFail, "SPF check failed for the sending server", v})
		}
	}
	return out
}
