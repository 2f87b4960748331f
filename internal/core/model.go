package core

import (
	"strings"
	"time"
)

// HeaderField is a single raw header as it appeared on the wire.
// Order is preserved and duplicate names are allowed (Received, etc.).
type HeaderField struct {
	Name  string
	Value string
}

// Header is the ordered multi-valued header mapping of an email.
type Header []HeaderField

// Get returns the first value for the given header name (case-insensitive),
// or "" when the header is absent.
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for the given header name, in order.
func (h Header) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// EmailRecord is a normalized email under analysis. It is constructed once
// by the caller and never mutated afterwards; agents only read from it.
type EmailRecord struct {
	Subject         string
	From            string
	FromDisplayName string
	ReplyTo         string
	To              string
	BodyHTML        string
	BodyText        string
	Headers         Header
	Links           []string
	Images          [][]byte
}

// Explanation is one human-readable reason attached to an agent result.
type Explanation struct {
	Code     string `json:"code"`
	Text     string `json:"text"`
	Evidence string `json:"evidence,omitempty"`
}

// Agent identifiers used in results, weights and metrics.
const (
	AgentContent  = "content"
	AgentLink     = "link"
	AgentBehavior = "behavior"
	AgentHeader   = "header"
	AgentQR       = "qr"
)

// AgentResult is the outcome of one agent for one analysis. Produced once
// and not mutated after creation.
type AgentResult struct {
	AgentID      string        `json:"agent"`
	Score        float64       `json:"score"`
	Confidence   float64       `json:"confidence"`
	Explanations []Explanation `json:"explanations"`
	Available    bool          `json:"available"`
	ErrKind      ErrorKind     `json:"error_kind,omitempty"`
}

// Unavailable builds the degraded result recorded for an agent that timed
// out or failed. Its score contributes nothing; its explanation survives
// into the verdict.
func Unavailable(agentID string, kind ErrorKind, detail string) *AgentResult {
	return &AgentResult{
		AgentID:    agentID,
		Score:      0,
		Confidence: 0,
		Explanations: []Explanation{{
			Code:     CodeAgentUnavailable,
			Text:     "agent did not produce a result",
			Evidence: detail,
		}},
		Available: false,
		ErrKind:   kind,
	}
}

// Action is the final disposition of one analysis.
type Action string

const (
	ActionAllow      Action = "ALLOW"
	ActionFlag       Action = "FLAG"
	ActionQuarantine Action = "QUARANTINE"
)

// Explanation codes shared across agents.
const (
	CodeAgentUnavailable  = "AGENT_UNAVAILABLE"
	CodeNoAgentsAvailable = "NO_AGENTS_AVAILABLE"
)

// Verdict is the terminal, immutable output of one analysis.
type Verdict struct {
	AnalysisID   string                  `json:"analysis_id"`
	FinalScore   float64                 `json:"final_score"`
	Action       Action                  `json:"action"`
	Agents       map[string]*AgentResult `json:"agents"`
	WeightsUsed  map[string]float64      `json:"weights_used"`
	Explanations []Explanation           `json:"explanations,omitempty"`
	AnalyzedAt   time.Time               `json:"analyzed_at"`
	Elapsed      time.Duration           `json:"elapsed_ns"`
}

// SenderProfile is the persisted history for one sender key. It is owned
// exclusively by the Behavior Agent's store layer. Updates are monotonic:
// FirstSeen never changes, MessageCount only grows, the observed sets only
// gain members.
type SenderProfile struct {
	SenderKey          string
	FirstSeen          time.Time
	MessageCount       int64
	DisplayNamesSeen   []string
	ReplyToDomainsSeen []string
}

// HasDisplayName reports whether name was previously observed for this sender.
func (p *SenderProfile) HasDisplayName(name string) bool {
	for _, n := range p.DisplayNamesSeen {
		if n == name {
			return true
		}
	}
	return false
}

// Observation is what one analysis contributes to a sender's history.
type Observation struct {
	DisplayName   string
	ReplyToDomain string
	SeenAt        time.Time
}
