package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func webhookServer(t *testing.T, status int) (*httptest.Server, <-chan SlackMessage) {
	t.Helper()
	received := make(chan SlackMessage, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg SlackMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err == nil {
			received <- msg
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, received
}

func TestNewSlackServiceRequiresWebhook(t *testing.T) {
	_, err := NewSlackService(quietLogger(), "")
	assert.Error(t, err)
}

func TestFormatJobNotification(t *testing.T) {
	service := NewNotificationService(nil)
	service.now = func() time.Time { return time.Unix(5000, 0) }

	entry := types.ExecutionLogEntry{
		Hook:        "my_custom_job",
		ScheduledAt: 2000,
		Hash:        "0123456789abcdef0123456789abcdef",
		Duration:    1500 * time.Millisecond,
		Output:      "x=1",
	}

	msg := service.formatJobNotification(entry)
	assert.Equal(t, "✅ Manual Run: My Custom Job", msg.Text)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "good", msg.Attachments[0].Color)
	assert.Equal(t, int64(5000), msg.Attachments[0].Ts)
	assert.Contains(t, msg.Attachments[0].Footer, entry.Hash)

	titles := map[string]string{}
	for _, f := range msg.Attachments[0].Fields {
		titles[f.Title] = f.Value
	}
	assert.Equal(t, "success", titles["Status"])
	assert.Equal(t, "1.5000s", titles["Duration"])
	assert.Equal(t, "```x=1```", titles["Output"])
	assert.NotContains(t, titles, "Error")

	entry.Error = "hook my_custom_job failed: disk full"
	msg = service.formatJobNotification(entry)
	assert.Equal(t, "danger", msg.Attachments[0].Color)
	assert.True(t, strings.HasPrefix(msg.Text, "❌"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("  short\n"))

	long := strings.Repeat("a", maxExcerpt+10)
	assert.Equal(t, strings.Repeat("a", maxExcerpt)+"…", excerpt(long))
}

func TestNotifyExecutionPostsToWebhook(t *testing.T) {
	server, received := webhookServer(t, http.StatusOK)

	slack, err := NewSlackService(quietLogger(), server.URL)
	require.NoError(t, err)
	service := NewNotificationService(slack)

	err = service.NotifyExecution(context.Background(), types.ExecutionLogEntry{Hook: "echo", ScheduledAt: 42})
	require.NoError(t, err)

	msg := <-received
	assert.Equal(t, "✅ Manual Run: Echo", msg.Text)
}

func TestNotifyExecutionReportsWebhookFailure(t *testing.T) {
	server, _ := webhookServer(t, http.StatusInternalServerError)

	slack, err := NewSlackService(quietLogger(), server.URL)
	require.NoError(t, err)
	slack.WithRetry(0, 0)

	err = NewNotificationService(slack).NotifyExecution(context.Background(), types.ExecutionLogEntry{Hook: "echo"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSendSlackMessageRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	slack, err := NewSlackService(quietLogger(), server.URL)
	require.NoError(t, err)
	slack.WithRetry(2, time.Millisecond)

	require.NoError(t, slack.SendSlackMessage(context.Background(), &SlackMessage{Text: "hi"}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendSlackMessageDoesNotRetryClientErrors(t *testing.T) {
	server, received := webhookServer(t, http.StatusBadRequest)

	slack, err := NewSlackService(quietLogger(), server.URL)
	require.NoError(t, err)
	slack.WithRetry(2, time.Millisecond)

	assert.Error(t, slack.SendSlackMessage(context.Background(), &SlackMessage{Text: "hi"}))
	<-received
	assert.Empty(t, received)
}

func TestNotifyStartup(t *testing.T) {
	server, received := webhookServer(t, http.StatusOK)

	slack, err := NewSlackService(quietLogger(), server.URL)
	require.NoError(t, err)

	st := store.NewMemoryStore(nil)
	_, err = st.Schedule(context.Background(), time.Now().Add(time.Hour).Unix(), "heartbeat", "hourly", nil)
	require.NoError(t, err)

	notifier := NewStartupNotifier(st, func() []string { return []string{"echo", "heartbeat"} }, NewNotificationService(slack), quietLogger())
	notifier.initialDelay = 0

	require.NoError(t, notifier.NotifyStartup(context.Background()))

	msg := <-received
	assert.Equal(t, "🚀 Cron Panel Started", msg.Text)
	titles := map[string]string{}
	for _, f := range msg.Attachments[0].Fields {
		titles[f.Title] = f.Value
	}
	assert.Equal(t, "2", titles["Registered Hooks"])
	assert.Equal(t, "1", titles["Pending Events"])
	assert.Equal(t, "echo, heartbeat", titles["Hooks"])
	assert.Contains(t, titles, "Next Event")
}

func TestNotifyStartupHonoursContext(t *testing.T) {
	notifier := NewStartupNotifier(store.NewMemoryStore(nil), func() []string { return nil }, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, notifier.NotifyStartup(ctx), context.Canceled)
}

func TestSlackNotificationManual(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	rootDir := filepath.Dir(filepath.Dir(wd))
	if err := godotenv.Load(filepath.Join(rootDir, ".env.test")); err != nil {
		t.Log("No .env.test file found, using environment variables")
	}

	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		t.Skip("SLACK_WEBHOOK_URL not set")
	}

	slack, err := NewSlackService(quietLogger(), webhookURL)
	require.NoError(t, err)

	err = NewNotificationService(slack).NotifyExecution(context.Background(), types.ExecutionLogEntry{
		Hook:        "scheduler_report",
		ScheduledAt: time.Now().Unix(),
		TriggeredAt: time.Now(),
		Duration:    120 * time.Millisecond,
		Output:      "total: 3",
	})
	require.NoError(t, err)
}
