package reload

import (
	"fmt"
	"time"
)

// Outcome of applying one assembled grammar
type Outcome int

const (
	// OutcomeUnchanged: output identical to the grammar already in place
	OutcomeUnchanged Outcome = iota
	// OutcomeHotSwapped: persisted and swapped in without a restart
	OutcomeHotSwapped
	// OutcomeRestartRequired: persisted, the host must reload to use it
	OutcomeRestartRequired
	// OutcomeFailed: nothing was persisted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeHotSwapped:
		return "hot-swapped"
	case OutcomeRestartRequired:
		return "restart-required"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State says whether the last applied grammar still waits for a restart.
// It is set when a regeneration needs one and cleared once the user has
// answered the prompt.
type State struct {
	RestartRequired bool
	Reason          string
	Since           time.Time
}

// PersistenceError means the grammar could not be written. The previous
// file is left untouched.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist grammar to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
