package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/vigil/pkg/browser"
	"github.com/entrhq/vigil/pkg/config"
	"github.com/entrhq/vigil/pkg/logging"
)

// fakeDriver is a scripted driver: selectors listed in missing never
// appear, everything else appears immediately. Every interaction is
// recorded for assertions.
type fakeDriver struct {
	missing   map[string]bool
	navErrs   []error
	roundTrip time.Duration
	html      string
	calls     []string
}

func (d *fakeDriver) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) Navigate(url string, opts browser.NavigateOptions) (*browser.NavResult, error) {
	d.record("navigate")
	if len(d.navErrs) > 0 {
		err := d.navErrs[0]
		d.navErrs = d.navErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &browser.NavResult{Status: 200, RoundTrip: d.roundTrip}, nil
}

func (d *fakeDriver) WaitForSelector(opts browser.WaitOptions) error {
	d.record("wait:%s", opts.Selector)
	if d.missing[opts.Selector] {
		return errors.New("wait failed: timeout exceeded")
	}
	return nil
}

func (d *fakeDriver) Click(opts browser.ClickOptions) error {
	d.record("click:%s", opts.Selector)
	return nil
}

func (d *fakeDriver) ClickAndNavigate(opts browser.ClickOptions) (*browser.NavResult, error) {
	d.record("clicknav:%s", opts.Selector)
	return &browser.NavResult{Status: 200, RoundTrip: d.roundTrip}, nil
}

func (d *fakeDriver) Type(opts browser.TypeOptions) error {
	d.record("type:%s=%s", opts.Selector, opts.Value)
	return nil
}

func (d *fakeDriver) BodyHTML() (string, error) {
	d.record("capture")
	return d.html, nil
}

func (d *fakeDriver) Screenshot(path string) error {
	d.record("screenshot:%s", path)
	return nil
}

func (d *fakeDriver) called(prefix string) bool {
	for _, call := range d.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

// fakeCodes hands out a new code per call so tests can verify the code
// was generated at type time.
type fakeCodes struct {
	calls int
}

func (c *fakeCodes) Code() (string, error) {
	c.calls++
	return fmt.Sprintf("%06d", c.calls*111111), nil
}

func optionalSelectors(flow *config.Flow) map[string]bool {
	missing := make(map[string]bool)
	for _, step := range flow.Steps {
		if !step.IsRequired() {
			missing[step.Selector] = true
		}
	}
	return missing
}

func testSequencer(t *testing.T, driver *fakeDriver, opts ...SequencerOption) (*Sequencer, *PhaseTimer) {
	t.Helper()
	timer := NewPhaseTimer()
	creds := Credentials{Username: "user1", Password: "hunter2"}
	seq := NewSequencer(driver, config.DefaultFlow(), "https://example.mil", creds, timer, logging.NewLogger("test"), opts...)
	return seq, timer
}

func TestSequencer_SkipsAbsentOptionalSteps(t *testing.T) {
	flow := config.DefaultFlow()
	driver := &fakeDriver{
		missing: optionalSelectors(flow),
		html:    "<p>currently logged on DS Logon Premium DS Logon Account Level</p>",
	}

	seq, _ := testSequencer(t, driver, WithCodeSource(&fakeCodes{}))
	session := NewSession()

	err := seq.Run(context.Background(), session)
	require.NoError(t, err)

	// Optional branches were probed and skipped, mandatory steps ran
	assert.False(t, driver.called("click:.va-modal-inner"), "consent modal should not be clicked")
	assert.False(t, driver.called("type:#dslogon_content > .columnsContent > .formfield > label > #otpCode"), "second factor should not be typed")
	assert.True(t, driver.called("type:#dslogon_content > .columnsContent > .formfield > label > #userName=user1"))
	assert.True(t, driver.called("click:#page_bar_top"), "logoff should run")
	assert.Equal(t, driver.html, seq.HTML())
	assert.False(t, session.Finalized())
}

func TestSequencer_CredentialOrder(t *testing.T) {
	flow := config.DefaultFlow()
	driver := &fakeDriver{missing: optionalSelectors(flow)}

	seq, _ := testSequencer(t, driver)
	require.NoError(t, seq.Run(context.Background(), NewSession()))

	var userIdx, passIdx int
	for i, call := range driver.calls {
		if strings.Contains(call, "=user1") {
			userIdx = i
		}
		if strings.Contains(call, "=hunter2") {
			passIdx = i
		}
	}
	assert.Less(t, userIdx, passIdx, "username must be typed before password")
}

func TestSequencer_MandatoryStepTimeoutIsFatal(t *testing.T) {
	missing := optionalSelectors(config.DefaultFlow())
	missing["#mega-menu #vetnav-menu"] = true
	driver := &fakeDriver{missing: missing}

	seq, _ := testSequencer(t, driver)
	session := NewSession()

	err := seq.Run(context.Background(), session)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "provider-menu", stepErr.Step)

	assert.Equal(t, OutcomeFailure, session.Outcome)
	assert.Contains(t, session.Reason, "provider-menu")

	// Teardown without logoff: nothing past the failed step runs
	assert.False(t, driver.called("click:#page_bar_top"), "logoff must not be attempted")
	assert.False(t, driver.called("capture"))
}

func TestSequencer_SecondFactorTypedFresh(t *testing.T) {
	flow := config.DefaultFlow()
	missing := optionalSelectors(flow)
	// Second factor prompt is present this run
	delete(missing, "#dslogon_content > .columnsContent > .formfield > label > #otpCode")
	driver := &fakeDriver{missing: missing}
	codes := &fakeCodes{}

	seq, _ := testSequencer(t, driver, WithCodeSource(codes))
	require.NoError(t, seq.Run(context.Background(), NewSession()))

	assert.Equal(t, 1, codes.calls, "exactly one code generated, at type time")
	assert.True(t, driver.called("type:#dslogon_content > .columnsContent > .formfield > label > #otpCode=111111"))
}

func TestSequencer_SecondFactorWithoutSecretIsFatal(t *testing.T) {
	flow := config.DefaultFlow()
	missing := optionalSelectors(flow)
	delete(missing, "#dslogon_content > .columnsContent > .formfield > label > #otpCode")
	driver := &fakeDriver{missing: missing}

	seq, _ := testSequencer(t, driver) // no code source
	session := NewSession()

	err := seq.Run(context.Background(), session)
	require.Error(t, err)
	assert.Contains(t, session.Reason, "second-factor")
}

func TestSequencer_RetriesInitialNavigation(t *testing.T) {
	flow := config.DefaultFlow()
	driver := &fakeDriver{
		missing: optionalSelectors(flow),
		navErrs: []error{errors.New("net::ERR_TIMED_OUT"), errors.New("net::ERR_TIMED_OUT"), nil},
	}

	seq, _ := testSequencer(t, driver, WithRetry(time.Millisecond, 5))
	require.NoError(t, seq.Run(context.Background(), NewSession()))

	navs := 0
	for _, call := range driver.calls {
		if call == "navigate" {
			navs++
		}
	}
	assert.Equal(t, 3, navs)
}

func TestSequencer_NavigationRetriesExhausted(t *testing.T) {
	driver := &fakeDriver{
		navErrs: []error{
			errors.New("down"), errors.New("down"), errors.New("down"),
		},
	}

	seq, _ := testSequencer(t, driver, WithRetry(time.Millisecond, 3))
	session := NewSession()

	err := seq.Run(context.Background(), session)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, OutcomeFailure, session.Outcome)
	assert.Contains(t, session.Reason, "initial-navigation")
}

func TestSequencer_RecordsConfiguredPhases(t *testing.T) {
	flow := config.DefaultFlow()
	driver := &fakeDriver{
		missing:   optionalSelectors(flow),
		roundTrip: 80 * time.Millisecond,
	}

	seq, timer := testSequencer(t, driver)
	require.NoError(t, seq.Run(context.Background(), NewSession()))

	login, ok := timer.Get("login")
	require.True(t, ok)
	assert.True(t, !login.End.Before(login.Start))

	rt, ok := timer.Get("request_response")
	require.True(t, ok)
	assert.Equal(t, 80*time.Millisecond, rt.Duration())
}

func TestSequencer_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := &fakeDriver{}
	seq, _ := testSequencer(t, driver)
	session := NewSession()

	err := seq.Run(ctx, session)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailure, session.Outcome)
	assert.Empty(t, driver.calls)
}
