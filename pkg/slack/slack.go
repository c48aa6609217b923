// Package slack sends the one human-readable summary each monitoring
// run produces. Alerting is best-effort: a webhook failure is logged
// and otherwise ignored so it can never fail the run it reports on.
package slack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/entrhq/vigil/pkg/logging"
)

// Config holds the webhook destination.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
}

// Notifier posts run summaries to the chat webhook. A nil Notifier is
// valid and does nothing, which is how a run without chat credentials
// degrades.
type Notifier struct {
	cfg   *Config
	httpc *http.Client
	log   *logging.Logger
}

// New creates a notifier. Passing nil config yields a no-op notifier.
func New(cfg *Config, log *logging.Logger) *Notifier {
	if cfg == nil {
		return nil
	}
	return &Notifier{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		log:   log,
	}
}

type message struct {
	Channel   string `json:"channel"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
	Text      string `json:"text"`
}

// Notify sends exactly one of the two run summaries: success when
// validationErr is nil, failure naming the reason otherwise. Elapsed
// time is reported in seconds to two decimal places.
func (n *Notifier) Notify(validationErr error, elapsed time.Duration) {
	if n == nil {
		return
	}

	msg := message{
		Channel:   "#" + n.cfg.Channel,
		Username:  n.cfg.Username,
		IconEmoji: ":satellite:",
	}

	if validationErr == nil {
		msg.Text = fmt.Sprintf("`SUCCESS!` Login monitor succeeded. HTML content has been validated. Time taken: %.2f sec.", elapsed.Seconds())
	} else {
		msg.Text = fmt.Sprintf("`FAILED!` Login monitor failed. Error was: %s. Time taken: %.2f sec.", validationErr, elapsed.Seconds())
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.log.Errorf("failed to encode slack payload: %v", err)
		return
	}

	resp, err := n.httpc.Post(n.cfg.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		n.log.Errorf("unable to send message to the slack webhook: %v", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		n.log.Errorf("slack webhook returned %d", resp.StatusCode)
	}
}
