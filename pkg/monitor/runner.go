package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/vigil/pkg/config"
	"github.com/entrhq/vigil/pkg/logging"
	"github.com/entrhq/vigil/pkg/slack"
	"github.com/entrhq/vigil/pkg/statuspage"
	"github.com/entrhq/vigil/pkg/validate"
)

// RunnerConfig wires one monitoring run together.
type RunnerConfig struct {
	// Driver is the browser session the sequencer drives
	Driver Driver

	// Flow is the validated step table
	Flow *config.Flow

	// URL is the login entry point
	URL string

	// Credentials are typed into the flow's credential steps
	Credentials Credentials

	// Codes generates second-factor codes, nil when not configured
	Codes CodeSource

	// Reporter posts metrics, nil-safe when the dashboard is not configured
	Reporter *statuspage.Client

	// MetricIDs maps phase names to dashboard metric IDs
	MetricIDs map[string]string

	// Notifier posts the chat summary, nil-safe when chat is not configured
	Notifier *slack.Notifier

	// Close gracefully closes the browser session after a completed flow
	Close func() error

	// ForceClose tears the browser down unconditionally; the
	// supervisor's path, must never fail
	ForceClose func()

	// Log narrates the run
	Log *logging.Logger

	// ArtifactsDir enables debug screenshots and the final HTML dump
	ArtifactsDir string

	// RetryInterval and RetryAttempts override the initial-navigation
	// retry policy when non-zero
	RetryInterval time.Duration
	RetryAttempts int
}

// Runner supervises one session end to end: it runs the sequencer,
// guarantees browser teardown no matter how the flow ends, validates
// the captured content, and hands the results to the reporter and
// notifier. It is the single error boundary for otherwise-unhandled
// failures anywhere in the run.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes the session. The returned error is non-nil only for an
// unhandled fatal failure; a session that completed with a failed
// outcome (step timeout, content mismatch) returns a nil error, since
// a validated failure is a successfully completed measurement.
func (r *Runner) Run(ctx context.Context) (session *Session, err error) {
	session = NewSession()
	timer := NewPhaseTimer()
	timer.Start(r.cfg.Flow.TotalPhase)

	// The one top-level safety net: force teardown and emit the
	// down-status signal no matter where in the run the failure came from.
	defer func() {
		if rec := recover(); rec != nil {
			r.cfg.Log.Errorf("unhandled failure during session: %v", rec)
			r.forceClose()
			timer.End(r.cfg.Flow.TotalPhase)
			session.Timings = timer.Timings()
			session.Finalize(OutcomeFailure, fmt.Sprintf("unhandled failure: %v", rec))

			fatal := fmt.Errorf("unhandled failure: %v", rec)
			r.cfg.Reporter.PostUpDown(0)
			r.cfg.Notifier.Notify(fatal, r.totalDuration(timer))
			err = fatal
		}
	}()

	seq := r.newSequencer(timer)

	r.cfg.Log.Infof("entering website now (session %s)", session.ID)
	seqErr := seq.Run(ctx, session)

	r.dumpHTML(session, seq.HTML())

	// Teardown. A failed flow skips logoff and gets the forced close;
	// a completed one closes cleanly so no cookies survive the run.
	if seqErr != nil {
		r.forceClose()
	} else if r.cfg.Close != nil {
		if cerr := r.cfg.Close(); cerr != nil {
			r.cfg.Log.Warnf("error closing browser session: %v", cerr)
		}
	}

	timer.End(r.cfg.Flow.TotalPhase)
	session.Timings = timer.Timings()
	total := r.totalDuration(timer)

	var failure error
	if seqErr != nil {
		failure = seqErr
	} else if vErr := validate.HTML(seq.HTML(), r.cfg.Flow.RequiredTerms); vErr != nil {
		failure = vErr
		session.Finalize(OutcomeFailure, vErr.Error())
	} else {
		session.Finalize(OutcomeSuccess, "")
	}

	upOrDown := 0
	if failure == nil {
		upOrDown = 1
	}

	r.cfg.Log.Infof("completed web session in %.2f sec, reporting now", total.Seconds())
	r.cfg.Reporter.PostMetrics(upOrDown, r.samples(session.Timings))
	r.cfg.Notifier.Notify(failure, total)

	return session, nil
}

func (r *Runner) newSequencer(timer *PhaseTimer) *Sequencer {
	opts := []SequencerOption{}
	if r.cfg.Codes != nil {
		opts = append(opts, WithCodeSource(r.cfg.Codes))
	}
	if r.cfg.ArtifactsDir != "" {
		opts = append(opts, WithArtifacts(r.cfg.ArtifactsDir))
	}
	if r.cfg.RetryAttempts > 0 {
		opts = append(opts, WithRetry(r.cfg.RetryInterval, r.cfg.RetryAttempts))
	}

	return NewSequencer(r.cfg.Driver, r.cfg.Flow, r.cfg.URL, r.cfg.Credentials, timer, r.cfg.Log, opts...)
}

// samples maps the run's phase timings onto dashboard metric samples,
// in milliseconds. Phases without a configured metric ID are skipped.
func (r *Runner) samples(timings []PhaseTiming) []statuspage.Sample {
	samples := make([]statuspage.Sample, 0, len(timings))
	for _, timing := range timings {
		id, ok := r.cfg.MetricIDs[timing.Name]
		if !ok {
			r.cfg.Log.Debugf("phase %q has no metric ID, not reported", timing.Name)
			continue
		}
		samples = append(samples, statuspage.Sample{
			MetricID: id,
			Value:    timing.Duration().Seconds() * 1000,
		})
	}
	return samples
}

// dumpHTML writes the captured page markup next to the screenshots.
func (r *Runner) dumpHTML(session *Session, html string) {
	if r.cfg.ArtifactsDir == "" || html == "" {
		return
	}

	path := filepath.Join(r.cfg.ArtifactsDir, fmt.Sprintf("%s-page.html", session.ID))
	if werr := os.WriteFile(path, []byte(html), 0600); werr != nil {
		r.cfg.Log.Warnf("failed to write HTML dump %s: %v", path, werr)
	}
}

func (r *Runner) forceClose() {
	if r.cfg.ForceClose != nil {
		r.cfg.ForceClose()
	}
}

func (r *Runner) totalDuration(timer *PhaseTimer) time.Duration {
	if timing, ok := timer.Get(r.cfg.Flow.TotalPhase); ok {
		return timing.Duration()
	}
	return 0
}
