package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xPuncker/cron-panel/pkg/types"
	"gopkg.in/yaml.v3"
)

// DefaultSystemHooks is used when no hooks file is present: the host platform's own
// maintenance hooks plus the built-ins that report on the runner itself.
var DefaultSystemHooks = []string{
	"wp_scheduled_delete",
	"upgrader_scheduled_cleanup",
	"importer_scheduled_cleanup",
	"publish_future_post",
	"akismet_schedule_cron_recheck",
	"akismet_scheduled_delete",
	"do_pings",
	"wp_version_check",
	"wp_update_plugins",
	"wp_update_themes",
	"heartbeat",
	"scheduler_report",
}

type Schedule struct {
	Name     string `yaml:"name"`
	Interval string `yaml:"interval"`
	Display  string `yaml:"display"`
}

// HooksFile is the YAML document that classifies hooks and names recurrence schedules.
type HooksFile struct {
	SystemHooks []string   `yaml:"system_hooks"`
	Schedules   []Schedule `yaml:"schedules"`
}

func DefaultHooksFile() *HooksFile {
	return &HooksFile{
		SystemHooks: append([]string(nil), DefaultSystemHooks...),
	}
}

func LoadHooksFile(path string) (*HooksFile, error) {
	if path == "" {
		path = "config/hooks.yaml"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hooks file: %w", err)
	}

	return ParseHooksFile(data)
}

func ParseHooksFile(data []byte) (*HooksFile, error) {
	var file HooksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse hooks file: %w", err)
	}

	if _, err := file.RecurrenceSchedules(); err != nil {
		return nil, err
	}

	return &file, nil
}

// SystemHookNames returns the trimmed, non-empty allow-list entries.
func (f *HooksFile) SystemHookNames() []string {
	names := make([]string, 0, len(f.SystemHooks))
	for _, name := range f.SystemHooks {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// RecurrenceSchedules converts the file's schedules. An empty list means the store
// keeps its defaults.
func (f *HooksFile) RecurrenceSchedules() ([]types.RecurrenceSchedule, error) {
	schedules := make([]types.RecurrenceSchedule, 0, len(f.Schedules))
	seen := make(map[string]bool, len(f.Schedules))

	for _, s := range f.Schedules {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("schedule name cannot be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate schedule %q", name)
		}
		seen[name] = true

		interval, err := time.ParseDuration(s.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval for schedule %s: %w", name, err)
		}
		if interval < time.Second {
			return nil, fmt.Errorf("interval for schedule %s must be at least one second", name)
		}

		display := s.Display
		if display == "" {
			display = name
		}

		schedules = append(schedules, types.RecurrenceSchedule{
			Name:     name,
			Interval: int64(interval / time.Second),
			Display:  display,
		})
	}

	return schedules, nil
}
