package domain

import (
	"fmt"
	"sync"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// State is a step of one arbitrage attempt.
type State int

const (
	StatePlanned State = iota
	StateLoanRequested
	StateLeg1Executed
	StateLeg2Executed
	StateProfitabilityChecked
	StateCommitted
	StateReverted
	StateAbandoned
)

var stateNames = map[State]string{
	StatePlanned:              "Planned",
	StateLoanRequested:        "LoanRequested",
	StateLeg1Executed:         "Leg1Executed",
	StateLeg2Executed:         "Leg2Executed",
	StateProfitabilityChecked: "ProfitabilityChecked",
	StateCommitted:            "Committed",
	StateReverted:             "Reverted",
	StateAbandoned:            "Abandoned",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateCommitted || s == StateReverted || s == StateAbandoned
}

var transitions = map[State][]State{
	StatePlanned:              {StateLoanRequested, StateAbandoned},
	StateLoanRequested:        {StateLeg1Executed, StateReverted, StateAbandoned},
	StateLeg1Executed:         {StateLeg2Executed, StateReverted, StateAbandoned},
	StateLeg2Executed:         {StateProfitabilityChecked, StateReverted, StateAbandoned},
	StateProfitabilityChecked: {StateCommitted, StateReverted, StateAbandoned},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionFunc observes state changes.
type TransitionFunc func(from, to State)

// Tracker enforces the transition table for one attempt.
type Tracker struct {
	mu       sync.Mutex
	state    State
	observer TransitionFunc
}

// NewTracker starts in Planned. observer may be nil.
func NewTracker(observer TransitionFunc) *Tracker {
	return &Tracker{state: StatePlanned, observer: observer}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Advance moves to next or fails with INVALID_STATE.
func (t *Tracker) Advance(next State) error {
	t.mu.Lock()
	from := t.state
	if !CanTransition(from, next) {
		t.mu.Unlock()
		return apperror.Validation(apperror.CodeInvalidState, fmt.Sprintf("illegal transition %s -> %s", from, next))
	}
	t.state = next
	t.mu.Unlock()

	if t.observer != nil {
		t.observer(from, next)
	}
	return nil
}
