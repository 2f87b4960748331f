package core

import "errors"

// ErrorKind classifies why an agent produced no usable result.
type ErrorKind string

const (
	ErrKindNone                  ErrorKind = ""
	ErrKindTimeout               ErrorKind = "AGENT_TIMEOUT"
	ErrKindInternal              ErrorKind = "AGENT_INTERNAL_FAILURE"
	ErrKindDependencyUnavailable ErrorKind = "DEPENDENCY_UNAVAILABLE"
)

var (
	// ErrAgentTimeout marks an agent that exceeded its sub-deadline.
	ErrAgentTimeout = errors.New("agent deadline exceeded")

	// ErrDependencyUnavailable marks a failed external collaborator
	// (WHOIS, decoder, store). It degrades the affected heuristic to
	// "no signal" and never propagates past the owning agent.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrConfigInvalid is returned at configuration-load time only;
	// analyses never see an invalid config.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// KindOf maps an agent error to its result classification.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrKindNone
	case errors.Is(err, ErrAgentTimeout):
		return ErrKindTimeout
	case errors.Is(err, ErrDependencyUnavailable):
		return ErrKindDependencyUnavailable
	default:
		return ErrKindInternal
	}
}
