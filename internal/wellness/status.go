package wellness

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for a status change the machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyInState is returned when the item is already in the requested state.
	ErrAlreadyInState = errors.New("already in requested state")
)

const (
	NudgeStatusPending = "pending"
	NudgeStatusSent    = "sent"

	ChallengeInProgress = "in_progress"
	ChallengeCompleted  = "completed"

	HelpStatusSent      = "sent"
	HelpStatusResponded = "responded"
)

// Machine is a one-way status machine: each state has at most one successor.
type Machine struct {
	name string
	next map[string]string
}

var (
	NudgeMachine     = Machine{name: "nudge", next: map[string]string{NudgeStatusPending: NudgeStatusSent}}
	ChallengeMachine = Machine{name: "challenge", next: map[string]string{ChallengeInProgress: ChallengeCompleted}}
	HelpMachine      = Machine{name: "help request", next: map[string]string{HelpStatusSent: HelpStatusResponded}}
)

// Advance validates moving from one status to another.
func (m Machine) Advance(from, to string) error {
	if from == to {
		return ErrAlreadyInState
	}
	if next, ok := m.next[from]; ok && next == to {
		return nil
	}
	return fmt.Errorf("%s %s -> %s: %w", m.name, from, to, ErrInvalidTransition)
}

// Terminal reports whether status has no successor.
func (m Machine) Terminal(status string) bool {
	_, ok := m.next[status]
	return !ok
}
