package hooks

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xPuncker/cron-panel/internal/cron"
	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Registrar = (*cron.Scheduler)(nil)

func newBuiltins(t *testing.T) (*Builtins, store.JobStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st := store.NewMemoryStore(nil)
	return NewBuiltins(logger, st), st
}

func TestRegister(t *testing.T) {
	b, st := newBuiltins(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	scheduler := cron.NewScheduler(logger, st, types.JobConfig{}, nil)
	b.Register(scheduler)

	assert.Equal(t, []string{Echo, Heartbeat, HTTPCheck, SchedulerReport}, scheduler.Hooks())
}

func TestHeartbeat(t *testing.T) {
	b, _ := newBuiltins(t)
	b.started = time.Unix(1000, 0)
	b.now = func() time.Time { return time.Unix(1090, 0) }

	var out bytes.Buffer
	require.NoError(t, b.Heartbeat(context.Background(), &out, nil))
	assert.Contains(t, out.String(), "alive at ")
	assert.Contains(t, out.String(), "up 1 minutes")
}

func TestSchedulerReport(t *testing.T) {
	b, st := newBuiltins(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, b.SchedulerReport(ctx, &out, nil))
	assert.Equal(t, "nothing scheduled\n", out.String())

	_, err := st.Schedule(ctx, 1000, "a", "", nil)
	require.NoError(t, err)
	_, err = st.Schedule(ctx, 1000, "b", "", types.Args{{Key: "k", Value: "v"}})
	require.NoError(t, err)
	_, err = st.Schedule(ctx, 2000, "a", "", nil)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, b.SchedulerReport(ctx, &out, nil))
	assert.Contains(t, out.String(), "(1000): 2 pending [a, b]")
	assert.Contains(t, out.String(), "(2000): 1 pending [a]")
	assert.Contains(t, out.String(), "total: 3")
}

func TestEcho(t *testing.T) {
	b, _ := newBuiltins(t)

	var out bytes.Buffer
	require.NoError(t, b.Echo(context.Background(), &out, types.Args{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}))
	assert.Equal(t, "x => 1\ny => 2\n", out.String())

	out.Reset()
	require.NoError(t, b.Echo(context.Background(), &out, nil))
	assert.Equal(t, "No Args\n", out.String())
}

func TestHTTPCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b, _ := newBuiltins(t)
	b.WithHTTPClient(server.Client())
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, b.HTTPCheck(ctx, &out, types.Args{{Key: "url", Value: server.URL + "/up"}}))
	assert.Contains(t, out.String(), "200 OK")

	out.Reset()
	err := b.HTTPCheck(ctx, &out, types.Args{{Key: "url", Value: server.URL + "/down"}})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "503")

	assert.Error(t, b.HTTPCheck(ctx, &out, nil))
}
