package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xPuncker/cron-panel/pkg/identity"
	"github.com/0xPuncker/cron-panel/pkg/types"
)

type MemoryStore struct {
	mu        sync.RWMutex
	events    types.Snapshot
	schedules map[string]types.RecurrenceSchedule
}

func NewMemoryStore(schedules []types.RecurrenceSchedule) *MemoryStore {
	return &MemoryStore{
		events:    make(types.Snapshot),
		schedules: scheduleIndex(schedules),
	}
}

// Enumerate returns a deep copy, so callers may hold it across store mutations.
func (m *MemoryStore) Enumerate(ctx context.Context) (types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events.Clone(), nil
}

func (m *MemoryStore) Schedules(ctx context.Context) (map[string]types.RecurrenceSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySchedules(m.schedules), nil
}

// Schedule adds an occurrence and returns its identity hash. Scheduling the same
// hook, time and args twice replaces the earlier entry.
func (m *MemoryStore) Schedule(ctx context.Context, at int64, hook, schedule string, args types.Args) (string, error) {
	if err := validateHook(hook); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	interval, err := resolveInterval(m.schedules, schedule)
	if err != nil {
		return "", err
	}

	hash := identity.Hash(args)
	m.events.Put(at, hook, hash, types.OccurrenceData{
		Schedule: schedule,
		Interval: interval,
		Args:     args.Clone(),
	})
	return hash, nil
}

func (m *MemoryStore) Unschedule(ctx context.Context, at int64, hook, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events.Lookup(at, hook, hash); !ok {
		return fmt.Errorf("%w: %s@%d (%s)", ErrNotFound, hook, at, hash)
	}

	delete(m.events[at][hook], hash)
	if len(m.events[at][hook]) == 0 {
		delete(m.events[at], hook)
	}
	if len(m.events[at]) == 0 {
		delete(m.events, at)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
