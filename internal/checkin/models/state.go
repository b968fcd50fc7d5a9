package models

import (
	"fmt"

	dErrors "presence/pkg/domain-errors"
)

// State is a step of one check-in attempt.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingMethod State = "awaiting_method"
	StateVerifying      State = "verifying"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
	StateQueuedOffline  State = "queued_offline"
)

var transitions = map[State][]State{
	StateIdle:           {StateAwaitingMethod},
	StateAwaitingMethod: {StateVerifying},
	StateVerifying:      {StateSucceeded, StateFailed, StateQueuedOffline},
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateQueuedOffline
}

// Attempt tracks the state machine of a single check-in.
type Attempt struct {
	state   State
	history []State
}

func NewAttempt() *Attempt {
	return &Attempt{state: StateIdle, history: []State{StateIdle}}
}

func (a *Attempt) State() State { return a.state }

// History returns every state visited, in order.
func (a *Attempt) History() []State {
	return append([]State(nil), a.history...)
}

// Transition moves to next or fails with an invariant violation.
func (a *Attempt) Transition(next State) error {
	if !a.state.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("cannot move from %s to %s", a.state, next))
	}
	a.state = next
	a.history = append(a.history, next)
	return nil
}
