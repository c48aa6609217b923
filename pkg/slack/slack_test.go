package slack

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/vigil/pkg/logging"
)

func webhookServer(t *testing.T) (*httptest.Server, *[]message) {
	t.Helper()
	var messages []message

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg message
		require.NoError(t, json.Unmarshal(body, &msg))
		messages = append(messages, msg)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server, &messages
}

func testNotifier(serverURL string) *Notifier {
	return New(&Config{
		WebhookURL: serverURL,
		Channel:    "monitoring",
		Username:   "vigil",
	}, logging.NewLogger("test"))
}

func TestNotifier_SuccessMessage(t *testing.T) {
	server, messages := webhookServer(t)
	notifier := testNotifier(server.URL)

	notifier.Notify(nil, 12345*time.Millisecond)

	require.Len(t, *messages, 1)
	msg := (*messages)[0]
	assert.Equal(t, "#monitoring", msg.Channel)
	assert.Equal(t, "vigil", msg.Username)
	assert.Equal(t, ":satellite:", msg.IconEmoji)
	assert.Equal(t, "`SUCCESS!` Login monitor succeeded. HTML content has been validated. Time taken: 12.35 sec.", msg.Text)
}

func TestNotifier_FailureMessage(t *testing.T) {
	server, messages := webhookServer(t)
	notifier := testNotifier(server.URL)

	notifier.Notify(errors.New("could not verify content due to missing key term \"Premium\" in HTML"), 3*time.Second)

	require.Len(t, *messages, 1)
	msg := (*messages)[0]
	assert.Contains(t, msg.Text, "`FAILED!` Login monitor failed.")
	assert.Contains(t, msg.Text, "missing key term \"Premium\"")
	assert.Contains(t, msg.Text, "Time taken: 3.00 sec.")
}

func TestNotifier_WebhookErrorIsSwallowed(t *testing.T) {
	notifier := testNotifier("http://127.0.0.1:1") // nothing listens here

	assert.NotPanics(t, func() {
		notifier.Notify(nil, time.Second)
	})
}

func TestNotifier_NilIsNoOp(t *testing.T) {
	var notifier *Notifier
	assert.NotPanics(t, func() {
		notifier.Notify(errors.New("down"), time.Second)
	})

	assert.Nil(t, New(nil, logging.NewLogger("test")))
}
