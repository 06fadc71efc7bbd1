package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHooks = `
system_hooks:
  - wp_version_check
  - " heartbeat "
  - ""
schedules:
  - name: hourly
    interval: 1h
    display: Once Hourly
  - name: every_five
    interval: 5m
`

func TestLoadHooksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleHooks), 0o644))

	file, err := LoadHooksFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"wp_version_check", "heartbeat"}, file.SystemHookNames())

	schedules, err := file.RecurrenceSchedules()
	require.NoError(t, err)
	assert.Equal(t, []types.RecurrenceSchedule{
		{Name: "hourly", Interval: 3600, Display: "Once Hourly"},
		{Name: "every_five", Interval: 300, Display: "every_five"},
	}, schedules)
}

func TestLoadHooksFileMissing(t *testing.T) {
	_, err := LoadHooksFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseHooksFileRejectsBadSchedules(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad interval", "schedules:\n  - name: x\n    interval: often\n"},
		{"too short", "schedules:\n  - name: x\n    interval: 10ms\n"},
		{"no name", "schedules:\n  - interval: 1h\n"},
		{"duplicate", "schedules:\n  - name: x\n    interval: 1h\n  - name: x\n    interval: 2h\n"},
		{"not yaml", "system_hooks: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHooksFile([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDefaultHooksFile(t *testing.T) {
	file := DefaultHooksFile()
	assert.Contains(t, file.SystemHookNames(), "wp_version_check")
	assert.Contains(t, file.SystemHookNames(), "heartbeat")

	schedules, err := file.RecurrenceSchedules()
	require.NoError(t, err)
	assert.Empty(t, schedules)
}
