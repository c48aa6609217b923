// Package otp generates the time-based one-time codes the identity
// provider prompts for mid-flow. Codes are valid for a short window, so
// callers must request one immediately before use rather than computing
// it ahead of time.
package otp

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// Generator produces time-windowed numeric codes from a shared secret.
type Generator struct {
	secret string
}

// NewGenerator creates a generator from a base32-encoded shared secret.
func NewGenerator(secret string) (*Generator, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("one-time-code secret is empty")
	}

	// Generate once up front so a malformed secret fails at startup,
	// not in the middle of a login flow.
	if _, err := totp.GenerateCode(secret, time.Now()); err != nil {
		return nil, fmt.Errorf("invalid one-time-code secret: %w", err)
	}

	return &Generator{secret: secret}, nil
}

// Code returns the code for the current time window.
func (g *Generator) Code() (string, error) {
	return g.CodeAt(time.Now())
}

// CodeAt returns the code for the window containing t.
func (g *Generator) CodeAt(t time.Time) (string, error) {
	code, err := totp.GenerateCode(g.secret, t)
	if err != nil {
		return "", fmt.Errorf("failed to generate one-time code: %w", err)
	}
	return code, nil
}
