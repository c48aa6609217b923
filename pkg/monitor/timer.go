package monitor

import "time"

// PhaseTiming is the measured wall-clock interval of one named phase.
type PhaseTiming struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Duration returns the phase's elapsed time.
func (p PhaseTiming) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// PhaseTimer accumulates named phase timings for one session. Insertion
// order is execution order and is preserved; the reporter relies on it.
type PhaseTimer struct {
	open map[string]time.Time
	done []PhaseTiming
}

// NewPhaseTimer creates an empty timer.
func NewPhaseTimer() *PhaseTimer {
	return &PhaseTimer{open: make(map[string]time.Time)}
}

// Start marks the beginning of a phase.
func (t *PhaseTimer) Start(name string) {
	t.open[name] = time.Now()
}

// End closes a started phase. Ending a phase that was never started is
// a no-op.
func (t *PhaseTimer) End(name string) {
	start, ok := t.open[name]
	if !ok {
		return
	}
	delete(t.open, name)
	t.done = append(t.done, PhaseTiming{Name: name, Start: start, End: time.Now()})
}

// Record inserts an externally measured phase, e.g. a network-level
// timing reported by the driver. The end instant never precedes the start.
func (t *PhaseTimer) Record(name string, at time.Time, d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.done = append(t.done, PhaseTiming{Name: name, Start: at, End: at.Add(d)})
}

// Timings returns the closed phases in insertion order.
func (t *PhaseTimer) Timings() []PhaseTiming {
	out := make([]PhaseTiming, len(t.done))
	copy(out, t.done)
	return out
}

// Get returns the timing for a named phase, if it has been recorded.
func (t *PhaseTimer) Get(name string) (PhaseTiming, bool) {
	for _, timing := range t.done {
		if timing.Name == name {
			return timing, true
		}
	}
	return PhaseTiming{}, false
}
