package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrchestrationConfig carries the aggregation weights and decision
// thresholds for one analysis. It is read-only once published; hot reloads
// swap the whole struct between requests, never mutate it in place.
type OrchestrationConfig struct {
	Weights       map[string]float64
	FlagAt        float64
	QuarantineAt  float64
	TotalDeadline time.Duration
	AgentTimeouts map[string]time.Duration
}

// Validate enforces the load-time invariants. A config that fails here is
// fatal to startup; analyses never observe an invalid config.
func (c *OrchestrationConfig) Validate() error {
	for id, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %v for agent %q", ErrConfigInvalid, w, id)
		}
	}
	if c.FlagAt < 0 || c.QuarantineAt > 1 || c.FlagAt >= c.QuarantineAt {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= flag_at < quarantine_at <= 1, got flag_at=%v quarantine_at=%v",
			ErrConfigInvalid, c.FlagAt, c.QuarantineAt)
	}
	if c.TotalDeadline <= 0 {
		return fmt.Errorf("%w: total deadline must be positive", ErrConfigInvalid)
	}
	for id, d := range c.AgentTimeouts {
		if d <= 0 {
			return fmt.Errorf("%w: timeout for agent %q must be positive", ErrConfigInvalid, id)
		}
	}
	return nil
}

// Metrics is the hook the orchestrator reports into. Implementations live
// outside core; a nil Metrics disables reporting.
type Metrics interface {
	ObserveAnalysis(action Action, elapsed time.Duration)
	ObserveAgentUnavailable(agentID string, kind ErrorKind)
	ObserveNoAgentsAvailable()
}

// Orchestrator fans an email out to every agent concurrently, aggregates
// whatever came back within the deadline, and maps the composite score to
// an action. It always returns a verdict; agent failures only degrade it.
type Orchestrator struct {
	agents  []Agent
	logger  *zap.Logger
	metrics Metrics
	cfg     atomic.Pointer[OrchestrationConfig]
}

// NewOrchestrator creates an orchestrator with the given agents and a
// validated starting configuration.
func NewOrchestrator(agents []Agent, cfg *OrchestrationConfig, logger *zap.Logger, metrics Metrics) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		agents:  agents,
		logger:  logger,
		metrics: metrics,
	}
	o.cfg.Store(cfg)
	return o, nil
}

// Reload swaps in a new configuration for subsequent analyses. In-flight
// analyses keep the config they started with.
func (o *Orchestrator) Reload(cfg *OrchestrationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg.Store(cfg)
	o.logger.Info("Orchestration config reloaded",
		zap.Float64("flag_at", cfg.FlagAt),
		zap.Float64("quarantine_at", cfg.QuarantineAt))
	return nil
}

// Analyze runs every agent against the record and assembles the verdict.
// It blocks no longer than the configured total deadline.
func (o *Orchestrator) Analyze(ctx context.Context, rec *EmailRecord) *Verdict {
	cfg := o.cfg.Load()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, cfg.TotalDeadline)
	defer cancel()

	type launch struct {
		agent Agent
		ch    chan *AgentResult
	}
	launches := make([]launch, 0, len(o.agents))
	for _, ag := range o.agents {
		l := launch{agent: ag, ch: make(chan *AgentResult, 1)}
		launches = append(launches, l)
		go o.runAgent(ctx, ag, rec, cfg.AgentTimeouts[ag.Name()], l.ch)
	}

	results := make(map[string]*AgentResult, len(launches))
	for _, l := range launches {
		select {
		case res := <-l.ch:
			results[l.agent.Name()] = res
		case <-ctx.Done():
			// A result that arrived before the deadline may still be
			// sitting in the buffer; it counts. Only an empty channel
			// means the agent really ran out of time. The abandoned
			// goroutine's eventual late result is dropped.
			select {
			case res := <-l.ch:
				results[l.agent.Name()] = res
			default:
				results[l.agent.Name()] = Unavailable(l.agent.Name(), ErrKindTimeout, "total analysis deadline elapsed")
			}
		}
	}

	verdict := o.aggregate(cfg, results)
	verdict.AnalysisID = uuid.NewString()
	verdict.AnalyzedAt = start
	verdict.Elapsed = time.Since(start)

	for id, res := range results {
		if !res.Available {
			if o.metrics != nil {
				o.metrics.ObserveAgentUnavailable(id, res.ErrKind)
			}
			o.logger.Warn("Agent unavailable",
				zap.String("agent", id),
				zap.String("kind", string(res.ErrKind)))
		}
	}
	if o.metrics != nil {
		o.metrics.ObserveAnalysis(verdict.Action, verdict.Elapsed)
	}
	o.logger.Info("Analysis complete",
		zap.String("analysis_id", verdict.AnalysisID),
		zap.Float64("final_score", verdict.FinalScore),
		zap.String("action", string(verdict.Action)),
		zap.Duration("elapsed", verdict.Elapsed))

	return verdict
}

// runAgent executes one agent under its sub-deadline with panic
// containment, and always delivers exactly one result to ch.
func (o *Orchestrator) runAgent(ctx context.Context, ag Agent, rec *EmailRecord, timeout time.Duration, ch chan<- *AgentResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Agent panicked",
				zap.String("agent", ag.Name()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			ch <- Unavailable(ag.Name(), ErrKindInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := ag.Analyze(actx, rec)
	if err != nil {
		kind := KindOf(err)
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrKindTimeout
		}
		ch <- Unavailable(ag.Name(), kind, err.Error())
		return
	}
	if res == nil {
		ch <- Unavailable(ag.Name(), ErrKindInternal, "agent returned no result")
		return
	}
	res.Score = clamp01(res.Score)
	res.Available = true
	ch <- res
}

// aggregate renormalizes weights over the available agents, computes the
// weighted sum and applies the decision thresholds.
func (o *Orchestrator) aggregate(cfg *OrchestrationConfig, results map[string]*AgentResult) *Verdict {
	weightsUsed := make(map[string]float64, len(results))
	available := 0
	var weightSum float64
	for id, res := range results {
		if res.Available {
			available++
			weightSum += cfg.Weights[id]
		}
	}

	verdict := &Verdict{
		Agents:      results,
		WeightsUsed: weightsUsed,
	}

	if available == 0 {
		// Fail open: no signal at all maps to ALLOW, loudly. Operators
		// are expected to alert on this condition.
		if o.metrics != nil {
			o.metrics.ObserveNoAgentsAvailable()
		}
		o.logger.Error("No agents available, failing open")
		verdict.FinalScore = 0
		verdict.Action = ActionAllow
		verdict.Explanations = []Explanation{{
			Code: CodeNoAgentsAvailable,
			Text: "every agent timed out or failed; verdict fails open to ALLOW",
		}}
		return verdict
	}

	var composite float64
	if weightSum > 0 {
		for id, res := range results {
			if !res.Available {
				continue
			}
			w := cfg.Weights[id] / weightSum
			weightsUsed[id] = w
			composite += w * res.Score
		}
	}

	verdict.FinalScore = clamp01(composite)
	verdict.Action = decide(cfg, verdict.FinalScore)
	return verdict
}

func decide(cfg *OrchestrationConfig, score float64) Action {
	switch {
	case score >= cfg.QuarantineAt:
		return ActionQuarantine
	case score >= cfg.FlagAt:
		return ActionFlag
	default:
		return ActionAllow
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
