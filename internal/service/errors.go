package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call to the recommendation backend so callers can
// branch on it.
type Kind string

const (
	KindBackendUnavailable  Kind = "backend_unavailable"
	KindTimeout             Kind = "timeout"
	KindBadGateway          Kind = "bad_gateway"
	KindGenericBackendError Kind = "backend_error"
	KindMalformedResponse   Kind = "malformed_response"
	KindNetworkError        Kind = "network_error"
)

var (
	ErrSessionNotFound  = errors.New("plan session not found")
	ErrDayOutOfRange    = errors.New("day index outside the plan")
	ErrStreakIncomplete = errors.New("streak is not complete yet")
)

// AgentError is returned by AgentClient.Execute for every failure.
type AgentError struct {
	Kind   Kind
	Status int    // upstream status, 0 when no response arrived
	Detail string // human-readable message, shown to the user as is
	URL    string
	Err    error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *AgentError) Unwrap() error { return e.Err }

// KindOf returns the kind of an *AgentError anywhere in err's chain, or "".
func KindOf(err error) Kind {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
