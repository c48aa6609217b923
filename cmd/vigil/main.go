// Package main is the vigil synthetic login monitor. Each invocation
// drives one browser session through the configured login flow, checks
// that it reached an authenticated page, and reports availability and
// latency to the status dashboard and chat channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/entrhq/vigil/pkg/browser"
	"github.com/entrhq/vigil/pkg/config"
	"github.com/entrhq/vigil/pkg/logging"
	"github.com/entrhq/vigil/pkg/monitor"
	"github.com/entrhq/vigil/pkg/otp"
	"github.com/entrhq/vigil/pkg/slack"
	"github.com/entrhq/vigil/pkg/statuspage"
)

const version = "0.1.0"

type options struct {
	flowPath     string
	artifactsDir string
	headless     bool
	showVersion  bool
}

func main() {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("vigil v%s\n", version)
		return
	}

	os.Exit(run(opts))
}

func parseFlags() *options {
	opts := &options{}

	flag.StringVar(&opts.flowPath, "flow", "", "Path to a YAML flow file (default: built-in flow)")
	flag.StringVar(&opts.artifactsDir, "artifacts", "debug", "Directory for debug screenshots and HTML dumps")
	flag.BoolVar(&opts.headless, "headless", true, "Run the browser without a visible window")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "vigil - synthetic login monitor\n\n")
		fmt.Fprintf(os.Stderr, "Usage: vigil [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %-36s login entry URL (required)\n", config.EnvURL)
		fmt.Fprintf(os.Stderr, "  %-36s account username (required)\n", config.EnvUsername)
		fmt.Fprintf(os.Stderr, "  %-36s account password (required)\n", config.EnvPassword)
		fmt.Fprintf(os.Stderr, "  %-36s second-factor shared secret\n", config.EnvOTPSecret)
		fmt.Fprintf(os.Stderr, "  %-36s chat webhook URL\n", config.EnvSlackWebhookURL)
		fmt.Fprintf(os.Stderr, "  %-36s metrics API key\n", config.EnvStatuspageAPIKey)
		fmt.Fprintf(os.Stderr, "  %-36s enable debug artifacts\n", config.EnvDebug)
	}

	flag.Parse()
	return opts
}

func run(opts *options) int {
	log := logging.NewLogger("vigil")

	// The flow decides which phases exist, and the phases decide which
	// metric IDs the settings look for, so it loads first.
	flow := config.DefaultFlow()
	if opts.flowPath != "" {
		loaded, err := config.LoadFlow(opts.flowPath)
		if err != nil {
			log.Errorf("configuration error: %v", err)
			return 1
		}
		flow = loaded
	}

	settings, err := config.FromEnv(flow.Phases(), log)
	if err != nil {
		log.Errorf("configuration error: %v", err)
		return 1
	}

	artifactsDir := ""
	if settings.Debug {
		artifactsDir = opts.artifactsDir
		if fileLog, lerr := logging.NewFileLogger("vigil", artifactsDir); lerr != nil {
			log.Warnf("file logging unavailable: %v", lerr)
		} else {
			log = fileLog
			defer log.Close()
		}
	}

	var codes monitor.CodeSource
	if settings.OTPSecret != "" {
		generator, gerr := otp.NewGenerator(settings.OTPSecret)
		if gerr != nil {
			log.Errorf("configuration error: %v", gerr)
			return 1
		}
		codes = generator
	}

	reporter := statuspage.New(statuspageCredentials(settings), log.WithComponent("statuspage"))
	notifier := slack.New(slackConfig(settings), log.WithComponent("slack"))

	// Startup configuration is settled; from here on a failure is a
	// fatal run error, reported as a down-status before exiting.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warnf("interrupted, shutting down")
		cancel()
	}()

	manager := browser.NewManager()
	if err := manager.Initialize(); err != nil {
		log.Errorf("fatal: %v", err)
		reporter.PostUpDown(0)
		return 1
	}
	defer manager.ForceClose()

	session, err := manager.StartSession(browser.SessionOptions{
		Headless:          opts.headless,
		IgnoreHTTPSErrors: true,
	})
	if err != nil {
		log.Errorf("fatal: %v", err)
		reporter.PostUpDown(0)
		return 1
	}

	observer, err := browser.NewObserver(flow.AllowedHosts, log.WithComponent("network"))
	if err != nil {
		log.Errorf("configuration error: %v", err)
		return 1
	}
	observer.Attach(session)

	runner := monitor.NewRunner(monitor.RunnerConfig{
		Driver:       session,
		Flow:         flow,
		URL:          settings.URL,
		Credentials:  monitor.Credentials{Username: settings.Username, Password: settings.Password},
		Codes:        codes,
		Reporter:     reporter,
		MetricIDs:    metricIDs(settings),
		Notifier:     notifier,
		Close:        manager.CloseSession,
		ForceClose:   manager.ForceClose,
		Log:          log.WithComponent("monitor"),
		ArtifactsDir: artifactsDir,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		color.Red("FAILED: %v", err)
		return 1
	}

	// A completed session is a successful measurement regardless of
	// the login's outcome; only the verdict differs.
	if result.Outcome == monitor.OutcomeSuccess {
		color.Green("SUCCESS: login flow completed and content verified")
	} else {
		color.Red("FAILED: %s", result.Reason)
	}
	return 0
}

func statuspageCredentials(settings *config.Settings) *statuspage.Credentials {
	if settings.Statuspage == nil {
		return nil
	}
	return &statuspage.Credentials{
		APIBase:        settings.Statuspage.APIBase,
		PageID:         settings.Statuspage.PageID,
		APIKey:         settings.Statuspage.APIKey,
		UpDownMetricID: settings.Statuspage.UpDownMetricID,
	}
}

func metricIDs(settings *config.Settings) map[string]string {
	if settings.Statuspage == nil {
		return nil
	}
	return settings.Statuspage.MetricIDs
}

func slackConfig(settings *config.Settings) *slack.Config {
	if settings.Slack == nil {
		return nil
	}
	return &slack.Config{
		WebhookURL: settings.Slack.WebhookURL,
		Channel:    settings.Slack.Channel,
		Username:   settings.Slack.Username,
	}
}
