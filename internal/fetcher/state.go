package fetcher

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of one URL inside FetchAll.
type State int

// Request states. Succeeded, FailedPermanent and FailedExhausted are terminal.
const (
	StatePending State = iota
	StateRetrying
	StateSucceeded
	StateFailedPermanent
	StateFailedExhausted
)

// ErrInvalidTransition is returned when a terminal request is moved again.
var ErrInvalidTransition = errors.New("invalid fetch state transition")

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailedPermanent:
		return "failed_permanent"
	case StateFailedExhausted:
		return "failed_exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailedPermanent || s == StateFailedExhausted
}

// request tracks the state machine of one deduplicated URL.
type request struct {
	url      string
	state    State
	attempts int
	retries  int
}

func (r *request) transition(to State) error {
	if r.state.Terminal() || to == StatePending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, to)
	}
	if to == StateRetrying {
		r.retries++
	}
	r.state = to
	return nil
}
