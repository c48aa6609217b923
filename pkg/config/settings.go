// Package config loads the monitor's settings: credentials and
// integration keys from the environment, and the login flow table from
// a YAML file. Validation happens once at startup; the rest of the
// program works from an immutable Settings value and never re-checks.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/vigil/pkg/logging"
)

// Settings is the validated configuration for one monitoring run.
type Settings struct {
	// URL is the entry point of the monitored login flow
	URL string

	// Username and Password are the account credentials. Never logged.
	Username string
	Password string

	// OTPSecret is the shared secret for the second-factor code
	// generator. Empty when the deployment has no second factor.
	OTPSecret string

	// Slack is nil when the chat integration is not configured
	Slack *SlackConfig

	// Statuspage is nil when the metrics integration is not configured
	Statuspage *StatuspageConfig

	// Debug enables screenshots, HTML dumps, and verbose narration
	Debug bool
}

// SlackConfig holds the chat webhook credentials.
type SlackConfig struct {
	WebhookURL string
	Channel    string
	Username   string
}

// StatuspageConfig holds the metrics API credentials and the metric IDs
// the run reports to.
type StatuspageConfig struct {
	APIBase        string
	PageID         string
	APIKey         string
	UpDownMetricID string

	// MetricIDs maps phase names to their latency metric IDs. Phases
	// without an entry are simply not reported.
	MetricIDs map[string]string
}

// Environment variable names.
const (
	EnvURL       = "VIGIL_URL"
	EnvUsername  = "VIGIL_USERNAME"
	EnvPassword  = "VIGIL_PASSWORD"
	EnvOTPSecret = "VIGIL_OTP_SECRET"
	EnvDebug     = "VIGIL_DEBUG"

	EnvSlackWebhookURL = "VIGIL_SLACK_WEBHOOK_URL"
	EnvSlackChannel    = "VIGIL_SLACK_CHANNEL"
	EnvSlackUser       = "VIGIL_SLACK_USER"

	EnvStatuspageAPIKey         = "VIGIL_STATUSPAGE_API_KEY"
	EnvStatuspagePageID         = "VIGIL_STATUSPAGE_PAGE_ID"
	EnvStatuspageAPIBase        = "VIGIL_STATUSPAGE_API_BASE"
	EnvStatuspageUpDownMetricID = "VIGIL_STATUSPAGE_METRIC_UPDOWN_ID"
)

// FromEnv reads and validates the settings. Required fields missing is
// a startup error; an incompletely configured optional integration is
// dropped with a warning and the run proceeds without it.
//
// phases lists the latency phase names the flow records; each phase's
// metric ID is read from VIGIL_STATUSPAGE_METRIC_<PHASE>_ID.
func FromEnv(phases []string, log *logging.Logger) (*Settings, error) {
	s := &Settings{
		URL:       os.Getenv(EnvURL),
		Username:  os.Getenv(EnvUsername),
		Password:  os.Getenv(EnvPassword),
		OTPSecret: os.Getenv(EnvOTPSecret),
	}

	if s.URL == "" {
		return nil, fmt.Errorf("no url has been set in environment (%s)", EnvURL)
	}
	if s.Username == "" {
		return nil, fmt.Errorf("no username has been set in environment (%s)", EnvUsername)
	}
	if s.Password == "" {
		return nil, fmt.Errorf("no password has been set in environment (%s)", EnvPassword)
	}

	if s.OTPSecret == "" {
		log.Warnf("no one-time-code secret set (%s), second-factor steps will be skipped", EnvOTPSecret)
	}

	s.Slack = slackFromEnv(log)
	s.Statuspage = statuspageFromEnv(phases, log)

	switch strings.ToLower(os.Getenv(EnvDebug)) {
	case "1", "true", "yes":
		s.Debug = true
	}

	return s, nil
}

func slackFromEnv(log *logging.Logger) *SlackConfig {
	cfg := &SlackConfig{
		WebhookURL: os.Getenv(EnvSlackWebhookURL),
		Channel:    os.Getenv(EnvSlackChannel),
		Username:   os.Getenv(EnvSlackUser),
	}

	if cfg.WebhookURL == "" || cfg.Channel == "" || cfg.Username == "" {
		log.Warnf("slack keys are not fully set, no slack integration for this run")
		return nil
	}
	return cfg
}

func statuspageFromEnv(phases []string, log *logging.Logger) *StatuspageConfig {
	cfg := &StatuspageConfig{
		APIKey:         os.Getenv(EnvStatuspageAPIKey),
		PageID:         os.Getenv(EnvStatuspagePageID),
		APIBase:        os.Getenv(EnvStatuspageAPIBase),
		UpDownMetricID: os.Getenv(EnvStatuspageUpDownMetricID),
		MetricIDs:      make(map[string]string),
	}

	if cfg.APIKey == "" || cfg.PageID == "" || cfg.APIBase == "" || cfg.UpDownMetricID == "" {
		log.Warnf("statuspage keys are not fully set, no statuspage integration for this run")
		return nil
	}

	for _, phase := range phases {
		key := metricEnvKey(phase)
		id := os.Getenv(key)
		if id == "" {
			log.Warnf("no metric ID for phase %q (%s), phase will not be reported", phase, key)
			continue
		}
		cfg.MetricIDs[phase] = id
	}

	return cfg
}

// metricEnvKey derives the environment variable name carrying a phase's
// metric ID, e.g. "login_logoff" -> VIGIL_STATUSPAGE_METRIC_LOGIN_LOGOFF_ID.
func metricEnvKey(phase string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(phase))
	return "VIGIL_STATUSPAGE_METRIC_" + name + "_ID"
}
