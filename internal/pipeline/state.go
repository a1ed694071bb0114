package pipeline

import (
	"errors"
	"fmt"
)

// State is the position of one conference inside the pipeline.
type State int

// Pipeline states, in order. Any state may jump to StateDone.
const (
	StateSeeding State = iota
	StateSearching
	StateFetchingL1
	StateScoringL1
	StateFetchingL2
	StateScoringL2
	StateAnalyzing
	StateDeduping
	StateDone
)

var stateNames = [...]string{
	StateSeeding:    "Seeding",
	StateSearching:  "Searching",
	StateFetchingL1: "FetchingL1",
	StateScoringL1:  "ScoringL1",
	StateFetchingL2: "FetchingL2",
	StateScoringL2:  "ScoringL2",
	StateAnalyzing:  "Analyzing",
	StateDeduping:   "Deduping",
	StateDone:       "Done",
}

// ErrInvalidTransition is returned when a state is skipped or revisited.
var ErrInvalidTransition = errors.New("invalid pipeline state transition")

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// machine enforces forward-only transitions and reports every state entered.
type machine struct {
	state   State
	onEnter func(State)
}

func newMachine(onEnter func(State)) *machine {
	m := &machine{state: StateSeeding, onEnter: onEnter}
	if onEnter != nil {
		onEnter(StateSeeding)
	}
	return m
}

func (m *machine) advance(to State) error {
	if m.state == StateDone || (to != m.state+1 && to != StateDone) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	if m.onEnter != nil {
		m.onEnter(to)
	}
	return nil
}
