// Package validate implements the post-session content check. The idea
// is that if we can validate the HTML on some level, we can ensure the
// site is up and the login actually reached an authenticated page.
package validate

import (
	"fmt"
	"strings"
)

// DefaultTerms are markers that only appear on an authenticated account
// page. Presence-based on purpose: minor page redesigns should not flip
// the monitor to down as long as the markers survive.
var DefaultTerms = []string{
	"currently logged on",
	"DS Logon",
	"Premium",
	"DS Logon Account Level",
}

// HTML scans the page markup for every required term and returns nil
// only if all of them are present. The first missing term is named in
// the returned error. Matching is literal, case-sensitive substring
// search; no structural parsing.
func HTML(html string, terms []string) error {
	if strings.TrimSpace(html) == "" {
		return fmt.Errorf("no HTML found, could not validate content")
	}

	if len(terms) == 0 {
		terms = DefaultTerms
	}

	for _, term := range terms {
		if !strings.Contains(html, term) {
			return fmt.Errorf("could not verify content due to missing key term %q in HTML", term)
		}
	}

	return nil
}
