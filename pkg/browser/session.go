package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Navigate navigates the session's page to the specified URL and
// reports the navigation response status and network round trip.
func (s *Session) Navigate(url string, opts NavigateOptions) (*NavResult, error) {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	resp, err := s.Page.Goto(url, playwrightOpts)
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	return navResult(resp), nil
}

// Click clicks an element matching the selector.
func (s *Session) Click(opts ClickOptions) error {
	playwrightOpts := playwright.PageClickOptions{}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := s.Page.Click(opts.Selector, playwrightOpts); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}

	return nil
}

// ClickAndNavigate clicks an element that triggers a navigation and
// waits for the navigation to settle. This is the correct way to submit
// a form that loads a new page; clicking and waiting separately races
// against the page teardown.
func (s *Session) ClickAndNavigate(opts ClickOptions) (*NavResult, error) {
	navOpts := playwright.PageExpectNavigationOptions{}
	if opts.Timeout > 0 {
		navOpts.Timeout = &opts.Timeout
	}

	resp, err := s.Page.ExpectNavigation(func() error {
		return s.Click(opts)
	}, navOpts)
	if err != nil {
		return nil, fmt.Errorf("navigation after click failed: %w", err)
	}

	return navResult(resp), nil
}

// Type fills an input element with the specified value. The element is
// clicked first so focus lands on the field the way a user would reach it.
func (s *Session) Type(opts TypeOptions) error {
	if err := s.Click(ClickOptions{Selector: opts.Selector, Timeout: opts.Timeout}); err != nil {
		return err
	}

	playwrightOpts := playwright.PageFillOptions{}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := s.Page.Fill(opts.Selector, opts.Value, playwrightOpts); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}

	return nil
}

// WaitForSelector waits for an element to appear on the page.
func (s *Session) WaitForSelector(opts WaitOptions) error {
	if opts.Selector == "" {
		return fmt.Errorf("selector is required for wait")
	}

	playwrightOpts := playwright.PageWaitForSelectorOptions{}

	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		playwrightOpts.State = &state
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.WaitForSelector(opts.Selector, playwrightOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}

	return nil
}

// BodyHTML returns the current page's body markup for content validation.
func (s *Session) BodyHTML() (string, error) {
	result, err := s.Page.Evaluate("() => document.body.innerHTML")
	if err != nil {
		return "", fmt.Errorf("failed to extract page HTML: %w", err)
	}

	html, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected evaluate result type %T", result)
	}
	return html, nil
}

// Screenshot writes a full-page screenshot to the given path.
func (s *Session) Screenshot(path string) error {
	if path == "" {
		return fmt.Errorf("screenshot path is empty")
	}

	fullPage := true
	_, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     &path,
		FullPage: &fullPage,
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

// URL returns the page's current URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// navResult extracts status and network timing from a navigation
// response. Timings are best-effort: some navigations (cache hits,
// about:blank) report none.
func navResult(resp playwright.Response) *NavResult {
	if resp == nil {
		return &NavResult{}
	}

	result := &NavResult{Status: resp.Status()}

	if timing := resp.Request().Timing(); timing != nil {
		if timing.RequestStart >= 0 && timing.ResponseEnd > timing.RequestStart {
			result.RoundTrip = time.Duration((timing.ResponseEnd - timing.RequestStart) * float64(time.Millisecond))
		}
	}

	return result
}
