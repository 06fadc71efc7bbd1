package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0xPuncker/cron-panel/pkg/types"
)

var (
	ErrNotFound        = errors.New("occurrence not found")
	ErrUnknownSchedule = errors.New("unknown schedule")
)

// JobStore is the host scheduler's queue of pending occurrences.
type JobStore interface {
	Enumerate(ctx context.Context) (types.Snapshot, error)
	Schedules(ctx context.Context) (map[string]types.RecurrenceSchedule, error)
	Schedule(ctx context.Context, at int64, hook, schedule string, args types.Args) (string, error)
	Unschedule(ctx context.Context, at int64, hook, hash string) error
	Close() error
}

type Config struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
}

func DefaultSchedules() []types.RecurrenceSchedule {
	return []types.RecurrenceSchedule{
		{Name: "hourly", Interval: 3600, Display: "Once Hourly"},
		{Name: "twicedaily", Interval: 43200, Display: "Twice Daily"},
		{Name: "daily", Interval: 86400, Display: "Once Daily"},
	}
}

// Open returns the store selected by cfg.Driver.
func Open(cfg Config, schedules []types.RecurrenceSchedule) (JobStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(schedules), nil
	case "sqlite":
		return OpenSQLite(cfg.Path, schedules)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func scheduleIndex(schedules []types.RecurrenceSchedule) map[string]types.RecurrenceSchedule {
	if len(schedules) == 0 {
		schedules = DefaultSchedules()
	}
	out := make(map[string]types.RecurrenceSchedule, len(schedules))
	for _, s := range schedules {
		out[s.Name] = s
	}
	return out
}

func copySchedules(in map[string]types.RecurrenceSchedule) map[string]types.RecurrenceSchedule {
	out := make(map[string]types.RecurrenceSchedule, len(in))
	for name, s := range in {
		out[name] = s
	}
	return out
}

// resolveInterval maps a schedule name to its interval; "" is a one-shot job.
func resolveInterval(schedules map[string]types.RecurrenceSchedule, schedule string) (int64, error) {
	if schedule == "" {
		return 0, nil
	}
	s, ok := schedules[schedule]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSchedule, schedule)
	}
	return s.Interval, nil
}

func validateHook(hook string) error {
	if strings.TrimSpace(hook) == "" {
		return fmt.Errorf("hook name cannot be empty")
	}
	return nil
}
