package console

import (
	"sync"
	"testing"
	"time"

	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func entry(hook string) types.ExecutionLogEntry {
	return types.ExecutionLogEntry{
		Hook:        hook,
		ScheduledAt: 2000,
		Hash:        "0123456789abcdef0123456789abcdef",
		TriggeredAt: time.Unix(5000, 0),
		Duration:    25 * time.Millisecond,
		Output:      "hello",
	}
}

func TestTakeConsumesEntry(t *testing.T) {
	s := New(time.Hour)

	s.Put(entry("my_custom_job"))
	assert.True(t, s.Pending())

	got, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, "my_custom_job", got.Hook)
	assert.Equal(t, "hello", got.Output)

	_, ok = s.Take()
	assert.False(t, ok, "second read in the same cycle must observe nothing")
	assert.False(t, s.Pending())
}

func TestPutOverwritesUnreadEntry(t *testing.T) {
	s := New(0)

	s.Put(entry("first"))
	s.Put(entry("second"))

	got, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, "second", got.Hook)

	_, ok = s.Take()
	assert.False(t, ok)
}

func TestEntryExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10_000, 0)}
	s := New(time.Minute).WithClock(clock.Now)

	s.Put(entry("my_custom_job"))
	clock.Advance(30 * time.Second)
	assert.True(t, s.Pending())

	clock.Advance(31 * time.Second)
	assert.False(t, s.Pending())

	_, ok := s.Take()
	assert.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10_000, 0)}
	s := New(0).WithClock(clock.Now)

	s.Put(entry("my_custom_job"))
	clock.Advance(365 * 24 * time.Hour)

	_, ok := s.Take()
	assert.True(t, ok)
}

func TestConcurrentWritersLastWriteWins(t *testing.T) {
	s := New(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Put(entry("racer"))
		}()
	}
	wg.Wait()

	_, ok := s.Take()
	assert.True(t, ok)
	_, ok = s.Take()
	assert.False(t, ok)
}
