package console

import (
	"sync"
	"time"

	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/patrickmn/go-cache"
)

const slotKey = "console"

type record struct {
	entry     types.ExecutionLogEntry
	expiresAt time.Time
}

// Store is the single-slot execution log. A Put overwrites any unread entry and a
// Take consumes it. Two operators triggering at once race on the same slot; the
// last write wins.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
}

// New creates the slot. A ttl of zero keeps the entry until it is read.
func New(ttl time.Duration) *Store {
	cleanup := 10 * time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &Store{
		cache: cache.New(cache.NoExpiration, cleanup),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the clock used to judge expiry.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Put(entry types.ExecutionLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{entry: entry}
	expiration := cache.NoExpiration
	if s.ttl > 0 {
		rec.expiresAt = s.now().Add(s.ttl)
		expiration = s.ttl
	}
	s.cache.Set(slotKey, rec, expiration)
}

// Take returns the pending entry and removes it.
func (s *Store) Take() (types.ExecutionLogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(slotKey)
	if !found {
		return types.ExecutionLogEntry{}, false
	}
	s.cache.Delete(slotKey)

	rec := v.(record)
	if !rec.expiresAt.IsZero() && !s.now().Before(rec.expiresAt) {
		return types.ExecutionLogEntry{}, false
	}
	return rec.entry, true
}

func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(slotKey)
	if !found {
		return false
	}
	rec := v.(record)
	return rec.expiresAt.IsZero() || s.now().Before(rec.expiresAt)
}
