// Package statuspage posts availability and latency samples to the
// status dashboard's metrics API. Reporting is fire-and-forget: a
// transport failure or data rejection is logged and dropped, never
// retried, and never allowed to affect the monitoring run itself.
package statuspage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/vigil/pkg/logging"
)

// Credentials identify the page and metrics this deployment reports to.
type Credentials struct {
	// APIBase is the API host, e.g. "api.statuspage.io". A full URL
	// with scheme is also accepted.
	APIBase string

	// PageID is the status page identifier
	PageID string

	// APIKey authenticates the write
	APIKey string

	// UpDownMetricID is the boolean availability metric. It is always
	// reported, even when latency samples are unavailable.
	UpDownMetricID string
}

// Sample is one latency measurement for a named metric.
type Sample struct {
	MetricID string
	Value    float64
}

// Client is the metrics API client. A nil Client is valid and performs
// no network calls, which is how a run without dashboard credentials
// degrades.
type Client struct {
	creds *Credentials
	httpc *http.Client
	log   *logging.Logger
}

// New creates a client for the given credentials. Passing nil
// credentials yields a no-op client.
func New(creds *Credentials, log *logging.Logger) *Client {
	if creds == nil {
		return nil
	}
	return &Client{
		creds: creds,
		httpc: &http.Client{Timeout: 10 * time.Second},
		log:   log,
	}
}

type dataPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// PostUpDown submits only the availability signal. This is the
// supervisor's path when a run dies before producing latency samples:
// the high-priority up/down metric still gets its data point.
func (c *Client) PostUpDown(upOrDown int) {
	if c == nil {
		return
	}

	body := map[string]dataPoint{
		"data": {Timestamp: time.Now().Unix(), Value: float64(upOrDown)},
	}

	url := fmt.Sprintf("%s/v1/pages/%s/metrics/%s/data.json", c.baseURL(), c.creds.PageID, c.creds.UpDownMetricID)
	c.post(url, body)
}

// PostMetrics submits the availability signal and the run's latency
// samples as a single batched write, one data point per metric.
func (c *Client) PostMetrics(upOrDown int, samples []Sample) {
	if c == nil {
		return
	}

	timestamp := time.Now().Unix()
	data := map[string][]dataPoint{
		c.creds.UpDownMetricID: {{Timestamp: timestamp, Value: float64(upOrDown)}},
	}
	for _, s := range samples {
		data[s.MetricID] = []dataPoint{{Timestamp: timestamp, Value: s.Value}}
	}

	body := map[string]interface{}{"data": data}
	url := fmt.Sprintf("%s/v1/pages/%s/metrics/data.json", c.baseURL(), c.creds.PageID)
	c.post(url, body)
}

// post performs the write and interprets the API's response codes.
// Nothing here returns an error: the caller has no recovery to perform.
func (c *Client) post(url string, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		c.log.Errorf("failed to encode metrics payload: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.log.Errorf("failed to build metrics request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "OAuth "+c.creds.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Errorf("unable to reach metrics API: %v", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.handleStatus(resp.StatusCode)
}

// handleStatus logs the API's verdict. 201/202 are accepted; the data
// rejection codes are logged for diagnosis but never retried.
func (c *Client) handleStatus(status int) {
	switch status {
	case http.StatusCreated:
		// response accepted
	case http.StatusAccepted:
		// batch accepted, queued for processing
	case http.StatusForbidden:
		c.log.Errorf("metrics API returned %d: metric not found for ID, or too many data points submitted", status)
	case http.StatusMethodNotAllowed:
		c.log.Errorf("metrics API returned %d: data cannot be submitted for this type of metric", status)
	case http.StatusUnprocessableEntity:
		c.log.Errorf("metrics API returned %d: validation error on provided data", status)
	default:
		c.log.Errorf("metrics API returned %d: unknown error on provided data", status)
	}
}

// baseURL normalizes APIBase into a scheme-qualified base.
func (c *Client) baseURL() string {
	base := strings.TrimSuffix(c.creds.APIBase, "/")
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return base
	}
	return "https://" + base
}
