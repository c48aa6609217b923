package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session represents the active browser session with its associated resources.
type Session struct {
	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the active page driving the login flow
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time
}

// SessionOptions configures the browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64

	// NavigationTimeout sets the default navigation timeout (in milliseconds).
	// The monitored endpoint can take tens of seconds under latency spikes,
	// so this defaults higher than Timeout.
	NavigationTimeout float64

	// IgnoreHTTPSErrors tolerates certificate errors on the monitored hosts
	IgnoreHTTPSErrors bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Selector identifies the element to click
	Selector string

	// Timeout in milliseconds
	Timeout float64
}

// TypeOptions configures form input filling.
type TypeOptions struct {
	// Selector identifies the input element
	Selector string

	// Value is the text to fill
	Value string

	// Timeout in milliseconds
	Timeout float64
}

// WaitOptions configures waiting behavior.
type WaitOptions struct {
	// Selector to wait for
	Selector string

	// State to wait for: "attached", "detached", "visible", "hidden"
	State string

	// Timeout in milliseconds
	Timeout float64
}

// NavResult carries the outcome of a navigation-completing action.
type NavResult struct {
	// Status is the HTTP status of the navigation response, 0 if unknown
	Status int

	// RoundTrip is the network-level request-to-response time for the
	// navigation request, 0 when the driver could not provide timings
	RoundTrip time.Duration
}

// Default values for session operations
const (
	DefaultTimeout           = 30000.0 // 30 seconds in milliseconds
	DefaultNavigationTimeout = 60000.0 // high-latency hops can approach a minute
	DefaultViewportWidth     = 1920
	DefaultViewportHeight    = 900
)
