package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Manager owns the Playwright runtime and the single browser session a
// monitoring run drives. Unlike a general automation pool there is never
// more than one session per process.
type Manager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	session     *Session
	initialized bool
}

// NewManager creates a new session manager.
func NewManager() *Manager {
	return &Manager{}
}

// Initialize installs and starts the Playwright runtime.
// This must be called before starting the session.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Discard driver output so it does not interleave with run narration
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// StartSession launches the browser and opens the page for this run.
func (m *Manager) StartSession(opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("manager not initialized")
	}
	if m.session != nil {
		return nil, fmt.Errorf("session already started")
	}

	// Set defaults
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	}
	browser, err := m.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		IgnoreHttpsErrors: &opts.IgnoreHTTPSErrors,
	}
	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(opts.Timeout)
	page.SetDefaultNavigationTimeout(opts.NavigationTimeout)

	session := &Session{
		Browser:   browser,
		Context:   context,
		Page:      page,
		Headless:  opts.Headless,
		CreatedAt: time.Now(),
	}

	m.session = session
	return session, nil
}

// CloseSession closes the session's page, context, and browser.
func (m *Manager) CloseSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}

	var errs []error
	if err := m.session.Page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.session.Context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.session.Browser.Close(); err != nil {
		errs = append(errs, err)
	}
	m.session = nil

	if len(errs) > 0 {
		return fmt.Errorf("errors closing session: %v", errs)
	}
	return nil
}

// ForceClose tears down the session and the Playwright runtime ignoring
// all errors. This is the supervisor's path: by the time it runs the
// session is already lost and cleanup must not fail.
func (m *Manager) ForceClose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		_ = m.session.Page.Close()
		_ = m.session.Context.Close()
		_ = m.session.Browser.Close()
		m.session = nil
	}

	if m.initialized && m.playwright != nil {
		_ = m.playwright.Stop()
		m.initialized = false
	}
}

// Shutdown closes the session and stops Playwright.
func (m *Manager) Shutdown() error {
	if err := m.CloseSession(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
