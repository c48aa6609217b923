package browser

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/vigil/pkg/logging"
)

// DefaultAllowedHosts are third-party telemetry, ad, and support hosts
// whose requests fail harmlessly in this environment. Failures against
// them are noise, not anomalies.
var DefaultAllowedHosts = []string{
	"bam.nr-data.net",
	"*.nr-data.net",
	"static.zdassets.com",
	"idme.zendesk.com",
	"www.facebook.com",
	"api.mapbox.com",
	"ping.chartbeat.net",
	"maps.googleapis.com",
}

// Observer passively watches the session's network traffic and logs
// anything unusual: non-success response statuses and failed requests
// from hosts outside the allowlist. It is a monitoring aid only; it
// never blocks the page and never influences the login flow.
type Observer struct {
	allow []glob.Glob
	log   *logging.Logger
}

// NewObserver compiles the hostname allowlist patterns into an observer.
func NewObserver(patterns []string, log *logging.Logger) (*Observer, error) {
	if len(patterns) == 0 {
		patterns = DefaultAllowedHosts
	}

	allow := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid allowlist pattern %q: %w", p, err)
		}
		allow = append(allow, g)
	}

	return &Observer{allow: allow, log: log}, nil
}

// Attach subscribes the observer to the session's page events for the
// page's whole lifetime. Handlers swallow their own panics: a broken
// event payload must never take down the run.
func (o *Observer) Attach(s *Session) {
	s.Page.OnResponse(func(resp playwright.Response) {
		defer o.recover()
		o.handleResponse(resp.URL(), resp.Status())
	})

	s.Page.OnRequestFailed(func(req playwright.Request) {
		defer o.recover()
		detail := "request failed"
		if err := req.Failure(); err != nil {
			detail = err.Error()
		}
		o.handleRequestFailed(req.URL(), detail)
	})

	s.Page.OnRequestFinished(func(req playwright.Request) {
		// Completions are only interesting when tracing a flow change
		defer o.recover()
		o.log.Debugf("request completed: %s", req.URL())
	})
}

// handleResponse classifies a received response, logging and reporting
// true when it is anomalous.
func (o *Observer) handleResponse(rawURL string, status int) bool {
	if !anomalousStatus(status) {
		return false
	}

	o.log.Warnf("%s failed from unusual HTTP response code: %d", rawURL, status)
	return true
}

// handleRequestFailed classifies a failed request, logging and reporting
// true when its host is outside the allowlist.
func (o *Observer) handleRequestFailed(rawURL, detail string) bool {
	if o.allowedHost(hostname(rawURL)) {
		return false
	}

	o.log.Warnf("%s %s", rawURL, detail)
	return true
}

// anomalousStatus reports whether a response status is outside the
// success range and not one of the tolerated redirect/cache statuses.
func anomalousStatus(status int) bool {
	if status >= 200 && status < 300 {
		return false
	}
	return status != 302 && status != 304
}

// allowedHost reports whether the hostname matches the allowlist.
func (o *Observer) allowedHost(host string) bool {
	if host == "" {
		return false
	}
	for _, g := range o.allow {
		if g.Match(host) {
			return true
		}
	}
	return false
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func (o *Observer) recover() {
	if r := recover(); r != nil {
		o.log.Errorf("network observer recovered: %v", r)
	}
}
