// Package lifecycle implements the history record state machine.
package lifecycle

import (
	"fmt"

	"github.com/draftcue/draftcue/pkg/types"
)

// Transition table: from -> allowed tos
var validTransitions = map[types.HistoryStatus][]types.HistoryStatus{
	types.HistoryProcessing: {types.HistoryCompleted, types.HistoryFailed},
	types.HistoryCompleted:  {},
	types.HistoryFailed:     {},
}

// CanTransition checks if transitioning from one history status to another is valid.
func CanTransition(from, to types.HistoryStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates the transition, returning an error if it is invalid.
func Transition(from, to types.HistoryStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if the status is a terminal (final) state.
func IsTerminal(status types.HistoryStatus) bool {
	return status == types.HistoryCompleted || status == types.HistoryFailed
}
