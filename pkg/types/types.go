package types

import (
	"sort"
	"time"
)

// Arg is a single named hook argument
type Arg struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Args is an ordered argument set. Order is part of the occurrence identity.
type Args []Arg

// Values returns the positional argument list handed to a hook.
func (a Args) Values() []string {
	values := make([]string, len(a))
	for i, arg := range a {
		values[i] = arg.Value
	}
	return values
}

func (a Args) Get(key string) (string, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return "", false
}

func (a Args) Clone() Args {
	if a == nil {
		return nil
	}
	out := make(Args, len(a))
	copy(out, a)
	return out
}

// OccurrenceData is what the store keeps for one identity under a hook and timestamp
type OccurrenceData struct {
	Schedule string `json:"schedule,omitempty"`
	Interval int64  `json:"interval,omitempty"`
	Args     Args   `json:"args"`
}

func (d OccurrenceData) Recurring() bool {
	return d.Interval > 0
}

// Snapshot maps timestamp -> hook -> identity hash -> occurrence data.
type Snapshot map[int64]map[string]map[string]OccurrenceData

// Times returns the snapshot timestamps, soonest first.
func (s Snapshot) Times() []int64 {
	times := make([]int64, 0, len(s))
	for at := range s {
		times = append(times, at)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}

func (s Snapshot) Hooks(at int64) []string {
	hooks := make([]string, 0, len(s[at]))
	for hook := range s[at] {
		hooks = append(hooks, hook)
	}
	sort.Strings(hooks)
	return hooks
}

func (s Snapshot) Hashes(at int64, hook string) []string {
	entries := s[at][hook]
	hashes := make([]string, 0, len(entries))
	for hash := range entries {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes
}

func (s Snapshot) Lookup(at int64, hook, hash string) (OccurrenceData, bool) {
	data, ok := s[at][hook][hash]
	return data, ok
}

// Put inserts data, creating the intermediate maps as needed.
func (s Snapshot) Put(at int64, hook, hash string, data OccurrenceData) {
	hooks, ok := s[at]
	if !ok {
		hooks = make(map[string]map[string]OccurrenceData)
		s[at] = hooks
	}
	entries, ok := hooks[hook]
	if !ok {
		entries = make(map[string]OccurrenceData)
		hooks[hook] = entries
	}
	entries[hash] = data
}

// Len counts every occurrence in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, hooks := range s {
		for _, entries := range hooks {
			n += len(entries)
		}
	}
	return n
}

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for at, hooks := range s {
		for hook, entries := range hooks {
			for hash, data := range entries {
				data.Args = data.Args.Clone()
				out.Put(at, hook, hash, data)
			}
		}
	}
	return out
}

// Occurrence is one concrete scheduled firing
type Occurrence struct {
	ScheduledAt int64  `json:"scheduled_at"`
	Hook        string `json:"hook"`
	Hash        string `json:"hash"`
	Schedule    string `json:"schedule,omitempty"`
	Interval    int64  `json:"interval,omitempty"`
	Args        Args   `json:"args"`
}

func (o Occurrence) Recurring() bool {
	return o.Interval > 0
}

// RecurrenceSchedule is a named interval definition
type RecurrenceSchedule struct {
	Name     string `json:"name" yaml:"name"`
	Interval int64  `json:"interval" yaml:"interval"`
	Display  string `json:"display" yaml:"display"`
}

// ExecutionLogEntry records the outcome of one manual trigger
type ExecutionLogEntry struct {
	Hook        string        `json:"hook"`
	ScheduledAt int64         `json:"time"`
	Hash        string        `json:"hash"`
	TriggeredAt time.Time     `json:"now"`
	Duration    time.Duration `json:"duration"`
	Output      string        `json:"contents"`
	Error       string        `json:"error,omitempty"`
}

func (e ExecutionLogEntry) DurationSeconds() float64 {
	if e.Duration < 0 {
		return 0
	}
	return e.Duration.Seconds()
}

func (e ExecutionLogEntry) Failed() bool {
	return e.Error != ""
}
