package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/entrhq/vigil/pkg/browser"
	"github.com/entrhq/vigil/pkg/config"
	"github.com/entrhq/vigil/pkg/logging"
)

// Step wait defaults, in milliseconds. Required steps get the long
// timeout because the provider hops can be extremely slow; optional
// steps only get a short grace probe since their absence is a valid path.
const (
	DefaultStepTimeoutMs   = 60000.0
	OptionalGraceTimeoutMs = 3000.0
)

// Initial navigation retry defaults. The first request is the
// highest-failure-rate step of the whole flow: upstream latency spikes
// reach tens of seconds.
const (
	DefaultRetryInterval = 2 * time.Second
	DefaultRetryAttempts = 5
)

// StepError is a fatal sequencer failure naming the step that caused it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Sequencer walks the flow's step table against a browser driver: wait
// for each step's element, perform its action, move on. Only the
// initial navigation is retried; any other step whose element never
// appears aborts the session.
type Sequencer struct {
	driver Driver
	flow   *config.Flow
	creds  Credentials
	codes  CodeSource
	timer  *PhaseTimer
	log    *logging.Logger

	url           string
	artifactsDir  string
	retryInterval time.Duration
	retryAttempts int

	stamp     string
	html      string
	navigated bool
}

// SequencerOption customizes a Sequencer.
type SequencerOption func(*Sequencer)

// WithRetry overrides the initial-navigation retry policy.
func WithRetry(interval time.Duration, attempts int) SequencerOption {
	return func(s *Sequencer) {
		s.retryInterval = interval
		s.retryAttempts = attempts
	}
}

// WithArtifacts enables debug screenshots under dir.
func WithArtifacts(dir string) SequencerOption {
	return func(s *Sequencer) {
		s.artifactsDir = dir
	}
}

// WithCodeSource supplies the second-factor code generator.
func WithCodeSource(codes CodeSource) SequencerOption {
	return func(s *Sequencer) {
		s.codes = codes
	}
}

// NewSequencer creates a sequencer for one run.
func NewSequencer(driver Driver, flow *config.Flow, url string, creds Credentials, timer *PhaseTimer, log *logging.Logger, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		driver:        driver,
		flow:          flow,
		creds:         creds,
		timer:         timer,
		log:           log,
		url:           url,
		retryInterval: DefaultRetryInterval,
		retryAttempts: DefaultRetryAttempts,
		stamp:         time.Now().UTC().Format("2006-01-02T15-04-05"),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HTML returns the body markup stored by the flow's capture step, empty
// if the flow never reached it.
func (s *Sequencer) HTML() string {
	return s.html
}

// Run executes the step table in order. On a fatal step failure the
// session is finalized with the step named as the reason and the
// remaining steps, logoff included, are not attempted.
func (s *Sequencer) Run(ctx context.Context, session *Session) error {
	for _, step := range s.flow.Steps {
		if err := ctx.Err(); err != nil {
			session.Finalize(OutcomeFailure, fmt.Sprintf("run cancelled before step %q", step.Name))
			return err
		}

		skipped, err := s.runStep(ctx, step)
		if err != nil {
			stepErr := &StepError{Step: step.Name, Err: err}
			session.Finalize(OutcomeFailure, stepErr.Error())
			return stepErr
		}
		if skipped {
			continue
		}

		s.screenshot(step)
	}

	return nil
}

// runStep performs one step. The skipped return is true when an
// optional step's element did not appear within its grace period.
func (s *Sequencer) runStep(ctx context.Context, step config.Step) (bool, error) {
	s.log.Infof("step %s: %s", step.Name, step.Action)

	switch step.Action {
	case config.ActionNavigate:
		return false, s.navigate(ctx, step)

	case config.ActionCapture:
		html, err := s.driver.BodyHTML()
		if err != nil {
			return false, err
		}
		s.html = html
		return false, nil
	}

	// Everything else locates its element first. A missing element is
	// fatal for required steps and a routine skip for optional ones.
	timeout := s.stepTimeout(step)
	if err := s.driver.WaitForSelector(browser.WaitOptions{Selector: step.Selector, Timeout: timeout}); err != nil {
		if !step.IsRequired() {
			s.log.Infof("optional step %s not present within %.0fms, continuing", step.Name, timeout)
			return true, nil
		}
		return false, fmt.Errorf("element %q did not appear within %.0fms: %w", step.Selector, timeout, err)
	}

	if step.Phase != "" {
		s.timer.Start(step.Phase)
		defer s.timer.End(step.Phase)
	}

	switch step.Action {
	case config.ActionWait:
		return false, nil

	case config.ActionClick:
		return false, s.click(step, timeout)

	case config.ActionType:
		value, err := s.resolveValue(step)
		if err != nil {
			return false, err
		}
		return false, s.driver.Type(browser.TypeOptions{Selector: step.Selector, Value: value, Timeout: timeout})

	default:
		return false, fmt.Errorf("unknown action %q", step.Action)
	}
}

// navigate performs the flow's navigation. The first one is wrapped in
// the bounded retry controller; it is the only retried step.
func (s *Sequencer) navigate(ctx context.Context, step config.Step) error {
	op := func() (*browser.NavResult, error) {
		return s.driver.Navigate(s.url, browser.NavigateOptions{Timeout: step.TimeoutMs})
	}

	start := time.Now()

	var result *browser.NavResult
	var err error
	if !s.navigated {
		result, err = Retry(ctx, op, s.retryInterval, s.retryAttempts)
	} else {
		result, err = op()
	}
	if err != nil {
		return err
	}

	s.navigated = true
	s.log.Infof("response: %d", result.Status)
	s.recordNetworkPhase(step, result, start)
	return nil
}

// click performs a click step, pairing it with a navigation wait when
// the flow says the click loads a new page.
func (s *Sequencer) click(step config.Step, timeout float64) error {
	opts := browser.ClickOptions{Selector: step.Selector, Timeout: timeout}

	if !step.WaitNavigation {
		return s.driver.Click(opts)
	}

	start := time.Now()
	result, err := s.driver.ClickAndNavigate(opts)
	if err != nil {
		return err
	}

	s.recordNetworkPhase(step, result, start)
	return nil
}

// resolveValue maps a type step's value role onto the credential or a
// fresh one-time code. The code is generated here, at the moment of
// typing: codes are time-windowed and must not be computed early.
func (s *Sequencer) resolveValue(step config.Step) (string, error) {
	switch step.Value {
	case config.ValueUsername:
		return s.creds.Username, nil
	case config.ValuePassword:
		return s.creds.Password, nil
	case config.ValueOTP:
		if s.codes == nil {
			return "", fmt.Errorf("second-factor prompt present but no one-time-code secret configured")
		}
		return s.codes.Code()
	default:
		return step.Value, nil
	}
}

// recordNetworkPhase stores a navigating step's network round trip,
// when the driver could measure it.
func (s *Sequencer) recordNetworkPhase(step config.Step, result *browser.NavResult, start time.Time) {
	if step.ResponsePhase == "" {
		return
	}
	if result == nil || result.RoundTrip <= 0 {
		s.log.Warnf("network timing unavailable for phase %q", step.ResponsePhase)
		return
	}
	s.timer.Record(step.ResponsePhase, start, result.RoundTrip)
}

// stepTimeout picks the step's element-wait timeout.
func (s *Sequencer) stepTimeout(step config.Step) float64 {
	if step.TimeoutMs > 0 {
		return step.TimeoutMs
	}
	if step.IsRequired() {
		return DefaultStepTimeoutMs
	}
	return OptionalGraceTimeoutMs
}

// screenshot writes the step's debug artifact. Failures are logged and
// ignored; observability aids never fail the run.
func (s *Sequencer) screenshot(step config.Step) {
	if s.artifactsDir == "" || step.Screenshot == "" {
		return
	}

	path := filepath.Join(s.artifactsDir, fmt.Sprintf("%s-%s.png", s.stamp, step.Screenshot))
	if err := s.driver.Screenshot(path); err != nil {
		s.log.Warnf("failed to write screenshot %s: %v", path, err)
	}
}
