package monitor

import "github.com/entrhq/vigil/pkg/browser"

// Driver is the minimal browser surface the sequencer needs. The real
// implementation is browser.Session; tests substitute a scripted fake.
type Driver interface {
	Navigate(url string, opts browser.NavigateOptions) (*browser.NavResult, error)
	WaitForSelector(opts browser.WaitOptions) error
	Click(opts browser.ClickOptions) error
	ClickAndNavigate(opts browser.ClickOptions) (*browser.NavResult, error)
	Type(opts browser.TypeOptions) error
	BodyHTML() (string, error)
	Screenshot(path string) error
}

// CodeSource produces a fresh one-time code for second-factor steps.
// Codes are time-windowed, so the sequencer calls this immediately
// before typing, never earlier.
type CodeSource interface {
	Code() (string, error)
}

// Credentials are the account identity typed into the flow. Read-only,
// never logged.
type Credentials struct {
	Username string
	Password string
}
