package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Action is the kind of browser interaction a step performs.
type Action string

const (
	// ActionNavigate loads a URL (the settings' target URL)
	ActionNavigate Action = "navigate"
	// ActionWait waits for the step's selector and does nothing else
	ActionWait Action = "wait"
	// ActionClick clicks the step's selector
	ActionClick Action = "click"
	// ActionType fills the step's selector with a credential value
	ActionType Action = "type"
	// ActionCapture stores the current body HTML for content validation
	ActionCapture Action = "capture"
)

// Credential roles a type step's value may name. Anything else is
// typed literally.
const (
	ValueUsername = "username"
	ValuePassword = "password"
	ValueOTP      = "otp"
)

// Step is one atomic unit of the login flow. Steps are immutable and
// statically ordered; the sequencer walks them one at a time.
type Step struct {
	// Name uniquely identifies the step in narration and failure reasons
	Name string `yaml:"name"`

	// Action is what the step does once its selector is present
	Action Action `yaml:"action"`

	// Selector locates the element the step interacts with
	Selector string `yaml:"selector,omitempty"`

	// Value names the credential to type (username/password/otp) or
	// gives a literal string, for type steps only
	Value string `yaml:"value,omitempty"`

	// TimeoutMs overrides the per-step wait timeout. Zero picks the
	// default: a long timeout for required steps, a short grace probe
	// for optional ones.
	TimeoutMs float64 `yaml:"timeout_ms,omitempty"`

	// Required marks whether the step's element must appear. Optional
	// steps absent within the grace period are skipped, not failures.
	// Defaults to true.
	Required *bool `yaml:"required,omitempty"`

	// WaitNavigation pairs the step's click with a wait for the
	// resulting navigation to settle
	WaitNavigation bool `yaml:"wait_navigation,omitempty"`

	// Phase, when set, records the step's wall-clock duration under
	// this phase name
	Phase string `yaml:"phase,omitempty"`

	// ResponsePhase, when set on a navigating step, records the
	// network request-to-response time under this phase name
	ResponsePhase string `yaml:"response_phase,omitempty"`

	// Screenshot names a debug artifact written after the step when
	// debug mode is on
	Screenshot string `yaml:"screenshot,omitempty"`
}

// IsRequired reports whether the step's element must appear.
func (s Step) IsRequired() bool {
	return s.Required == nil || *s.Required
}

// Flow is the ordered step table for one deployment of the monitored
// login, plus the content terms and phase naming that go with it. The
// set of recorded phases has differed between deployments, so it lives
// here instead of in code.
type Flow struct {
	// TotalPhase names the whole-session phase (first navigation
	// attempt to final close)
	TotalPhase string `yaml:"total_phase"`

	// Steps is the ordered step table
	Steps []Step `yaml:"steps"`

	// RequiredTerms are the content markers the validator checks on
	// the captured page. Empty means the validator's defaults.
	RequiredTerms []string `yaml:"required_terms,omitempty"`

	// AllowedHosts are hostname patterns whose failed requests are
	// known noise. Empty means the observer's defaults.
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`
}

// Validate checks the flow table for configuration mistakes.
func (f *Flow) Validate() error {
	if f.TotalPhase == "" {
		return fmt.Errorf("total_phase is required")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow has no steps")
	}

	names := make(map[string]bool, len(f.Steps))
	phases := map[string]bool{f.TotalPhase: true}

	for i, step := range f.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i)
		}
		if names[step.Name] {
			return fmt.Errorf("duplicate step name %q", step.Name)
		}
		names[step.Name] = true

		switch step.Action {
		case ActionNavigate, ActionCapture:
			// no selector needed
		case ActionWait, ActionClick:
			if step.Selector == "" {
				return fmt.Errorf("step %q: action %q requires a selector", step.Name, step.Action)
			}
		case ActionType:
			if step.Selector == "" {
				return fmt.Errorf("step %q: action %q requires a selector", step.Name, step.Action)
			}
			if step.Value == "" {
				return fmt.Errorf("step %q: type steps require a value", step.Name)
			}
		default:
			return fmt.Errorf("step %q: unknown action %q", step.Name, step.Action)
		}

		if step.TimeoutMs < 0 {
			return fmt.Errorf("step %q: timeout cannot be negative", step.Name)
		}

		for _, phase := range []string{step.Phase, step.ResponsePhase} {
			if phase == "" {
				continue
			}
			if phases[phase] {
				return fmt.Errorf("step %q: duplicate phase name %q", step.Name, phase)
			}
			phases[phase] = true
		}
	}

	return nil
}

// Phases returns the latency phase names the flow records, in step
// order with the total phase last. The reporter maps these to metric IDs.
func (f *Flow) Phases() []string {
	var phases []string
	for _, step := range f.Steps {
		if step.Phase != "" {
			phases = append(phases, step.Phase)
		}
		if step.ResponsePhase != "" {
			phases = append(phases, step.ResponsePhase)
		}
	}
	return append(phases, f.TotalPhase)
}

// LoadFlow reads and validates a flow table from a YAML file.
func LoadFlow(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	var flow Flow
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to parse flow file: %w", err)
	}

	if err := flow.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow file %s: %w", path, err)
	}

	return &flow, nil
}

// DefaultFlow returns the production login flow: entry page, optional
// consent modal, provider menu and selection, credential entry, submit,
// optional second factor, content capture, and logoff. Historical
// script variants of this sequence are collapsed into this one table.
func DefaultFlow() *Flow {
	optional := false

	return &Flow{
		TotalPhase: "login_logoff",
		Steps: []Step{
			{
				Name:       "initial-navigation",
				Action:     ActionNavigate,
				Screenshot: "initial-website",
			},
			{
				Name:     "consent-modal",
				Action:   ActionClick,
				Selector: ".va-modal-inner > .va-modal-body > div > div > button",
				Required: &optional,
			},
			{
				Name:     "provider-menu",
				Action:   ActionClick,
				Selector: "#mega-menu #vetnav-menu",
			},
			{
				Name:     "sign-in-link",
				Action:   ActionClick,
				Selector: ".profile-nav-container > .profile-nav > .sign-in-nav > .sign-in-links > .sign-in-link",
			},
			{
				Name:           "provider-selection",
				Action:         ActionClick,
				Selector:       ".usa-width-one-half > .signin-actions-container > .signin-actions > div > .dslogon",
				WaitNavigation: true,
			},
			{
				Name:     "username",
				Action:   ActionType,
				Selector: "#dslogon_content > .columnsContent > .formfield > label > #userName",
				Value:    ValueUsername,
			},
			{
				Name:       "password",
				Action:     ActionType,
				Selector:   "#dslogon_content > .columnsContent > .formfieldSmallGap > label[for=password-clear] > #password-clear",
				Value:      ValuePassword,
				Screenshot: "entering-credentials",
			},
			{
				Name:           "auth-submit",
				Action:         ActionClick,
				Selector:       ".col-xs-4 > #dslogon_content > .columnsContent > .formbuttons > #dsLogonButton",
				WaitNavigation: true,
				Phase:          "login",
				ResponsePhase:  "request_response",
			},
			{
				Name:     "second-factor",
				Action:   ActionType,
				Selector: "#dslogon_content > .columnsContent > .formfield > label > #otpCode",
				Value:    ValueOTP,
				Required: &optional,
			},
			{
				Name:       "session-established",
				Action:     ActionWait,
				Selector:   "#page_bar_top > ul > li > a > #linkLogoff",
				Screenshot: "login-completed",
			},
			{
				Name:   "capture-content",
				Action: ActionCapture,
			},
			{
				Name:       "logoff",
				Action:     ActionClick,
				Selector:   "#page_bar_top > ul > li > a > #linkLogoff",
				Screenshot: "logoff",
			},
		},
	}
}
