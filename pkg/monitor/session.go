package monitor

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is a session's terminal state.
type Outcome string

const (
	// OutcomeSuccess means the flow completed and the content verified
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure means the flow aborted or the content check failed
	OutcomeFailure Outcome = "failure"
)

// Session is the record of one end-to-end monitoring run. It is mutated
// only by the sequencer and supervisor and finalized exactly once.
type Session struct {
	ID        string
	StartedAt time.Time
	Timings   []PhaseTiming
	Outcome   Outcome
	Reason    string

	finalized bool
}

// NewSession creates a session record for a run starting now.
func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
}

// Finalize sets the terminal outcome. Only the first call takes effect;
// later calls are ignored so a supervisor sweeping up after a failure
// cannot overwrite the sequencer's verdict.
func (s *Session) Finalize(outcome Outcome, reason string) {
	if s.finalized {
		return
	}
	s.finalized = true
	s.Outcome = outcome
	s.Reason = reason
}

// Finalized reports whether a terminal outcome has been recorded.
func (s *Session) Finalized() bool {
	return s.finalized
}
