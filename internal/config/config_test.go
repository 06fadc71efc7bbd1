package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	hooksconfig "github.com/0xPuncker/cron-panel/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": "9090"},
		"store": {"driver": "sqlite", "path": "/tmp/panel.db"},
		"panel": {"strict_triggers": false, "trigger_timeout": "5s"},
		"jobs": {"max_concurrent": 3, "predefined": [{"hook": "heartbeat", "schedule": "hourly", "enabled": true}]}
	}`), 0o644))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "sqlite", config.Store.Driver)
	assert.False(t, config.Panel.Strict())
	assert.Equal(t, 5*time.Second, Duration(config.Panel.TriggerTimeout))
	assert.Equal(t, 3, config.Jobs.MaxConcurrent)
	assert.Equal(t, "@every 1m", config.Jobs.Tick)
	require.Len(t, config.Jobs.Predefined, 1)
	assert.Equal(t, "heartbeat", config.Jobs.Predefined[0].Hook)
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TRIGGER_TIMEOUT", "45s")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")

	config, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "7070", config.Server.Port)
	assert.Equal(t, "memory", config.Store.Driver)
	assert.Equal(t, 45*time.Second, Duration(config.Panel.TriggerTimeout))
	assert.Equal(t, "https://hooks.slack.test/x", config.Slack.WebhookURL)
	assert.True(t, config.Panel.Strict())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"server":`},
		{"bad duration", `{"panel": {"trigger_timeout": "forever"}}`},
		{"unknown driver", `{"store": {"driver": "mongo"}}`},
		{"sqlite without path", `{"store": {"driver": "sqlite"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, "8080", config.Server.Port)
	assert.True(t, config.Panel.Strict())
	assert.Equal(t, 30*time.Second, Duration(config.Panel.TriggerTimeout))
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestHooksWatcherDefaultsWhenMissing(t *testing.T) {
	w, err := NewHooksWatcher(filepath.Join(t.TempDir(), "hooks.yaml"), quietLogger())
	require.NoError(t, err)
	assert.True(t, w.AllowList().Contains("wp_version_check"))
}

func TestHooksWatcherRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system_hooks: [unterminated"), 0o644))

	_, err := NewHooksWatcher(path, quietLogger())
	assert.Error(t, err)
}

func TestHooksWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system_hooks: [alpha]\n"), 0o644))

	w, err := NewHooksWatcher(path, quietLogger())
	require.NoError(t, err)
	assert.True(t, w.AllowList().Contains("alpha"))

	var seen []string
	w.OnChange(func(f *hooksconfig.HooksFile) { seen = f.SystemHookNames() })

	require.NoError(t, os.WriteFile(path, []byte("system_hooks: [beta]\n"), 0o644))
	require.NoError(t, w.Reload())
	assert.False(t, w.AllowList().Contains("alpha"))
	assert.True(t, w.AllowList().Contains("beta"))
	assert.Equal(t, []string{"beta"}, seen)

	require.NoError(t, os.WriteFile(path, []byte("system_hooks: [broken"), 0o644))
	assert.Error(t, w.Reload())
	assert.True(t, w.AllowList().Contains("beta"))
}

func TestHooksWatcherPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system_hooks: [alpha]\n"), 0o644))

	w, err := NewHooksWatcher(path, quietLogger())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("system_hooks: [gamma]\n"), 0o644)
		return w.AllowList().Contains("gamma")
	}, 2*time.Second, 50*time.Millisecond)
}
