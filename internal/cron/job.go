package cron

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xPuncker/cron-panel/internal/metrics"
	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/0xPuncker/cron-panel/internal/trigger"
	"github.com/0xPuncker/cron-panel/pkg/identity"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultTick = "@every 1m"

var (
	ErrNoHandler   = trigger.ErrNoHandler
	ErrPassRunning = errors.New("runner pass already in progress")
)

// HookFunc is a hook handler. Anything the handler wants an operator to see goes to out.
type HookFunc = func(ctx context.Context, out io.Writer, args types.Args) error

// Scheduler is the host runner: it owns the hook registry and periodically runs the
// occurrences in the store that have come due.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logrus.Logger
	store   store.JobStore
	metrics metrics.Sink

	mu            sync.RWMutex
	hooks         map[string]HookFunc
	started       bool
	tick          string
	maxConcurrent int

	doing atomic.Bool
	now   func() time.Time
}

func NewScheduler(logger *logrus.Logger, st store.JobStore, config types.JobConfig, sink metrics.Sink) *Scheduler {
	tick := config.Tick
	if tick == "" {
		tick = DefaultTick
	}
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}

	return &Scheduler{
		cron:          cron.New(),
		logger:        logger,
		store:         st,
		metrics:       sink,
		hooks:         make(map[string]HookFunc),
		tick:          tick,
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

// WithClock replaces the clock used to decide which occurrences are due.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) RegisterHook(name string, fn HookFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[name] = fn
}

func (s *Scheduler) HasHook(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hooks[name]
	return ok
}

func (s *Scheduler) Hooks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.hooks))
	for name := range s.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke dispatches to the registered handler for hook.
func (s *Scheduler) Invoke(ctx context.Context, hook string, out io.Writer, args types.Args) error {
	s.mu.RLock()
	fn, ok := s.hooks[hook]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, hook)
	}
	return fn(ctx, out, args)
}

// LoadPredefinedJobs seeds the store. A job whose hook and args are already pending
// is left alone so restarts against a persistent store do not pile up duplicates.
func (s *Scheduler) LoadPredefinedJobs(ctx context.Context, jobs []types.Job) error {
	snapshot, err := s.store.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate events: %w", err)
	}

	pending := make(map[string]bool)
	for _, at := range snapshot.Times() {
		for _, hook := range snapshot.Hooks(at) {
			for _, hash := range snapshot.Hashes(at, hook) {
				pending[hook+"/"+identity.Hash(snapshot[at][hook][hash].Args)] = true
			}
		}
	}

	for _, job := range jobs {
		if !job.Enabled {
			s.logger.Infof("Skipping disabled job: %s", job.Hook)
			continue
		}

		if !s.HasHook(job.Hook) {
			return fmt.Errorf("hook %s not registered", job.Hook)
		}

		if pending[job.Hook+"/"+identity.Hash(job.Args)] {
			s.logger.WithField("hook", job.Hook).Debug("Job already scheduled")
			continue
		}

		var delay time.Duration
		if job.Delay != "" {
			delay, err = time.ParseDuration(job.Delay)
			if err != nil {
				return fmt.Errorf("invalid delay for job %s: %w", job.Hook, err)
			}
		}

		at := s.now().Add(delay).Unix()
		hash, err := s.store.Schedule(ctx, at, job.Hook, job.Schedule, job.Args)
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Hook, err)
		}

		s.logger.WithFields(logrus.Fields{
			"hook":        job.Hook,
			"schedule":    job.Schedule,
			"at":          at,
			"hash":        hash,
			"description": job.Description,
		}).Info("Job scheduled successfully")
	}

	return nil
}

// NextRun returns the first interval boundary after now for an occurrence first due at at.
func NextRun(at, interval, now int64) int64 {
	if interval <= 0 {
		return now
	}
	if now < at {
		return at + interval
	}
	return now + (interval - (now-at)%interval)
}

type dueEvent struct {
	at   int64
	hook string
	hash string
	data types.OccurrenceData
}

// Spawn runs every occurrence whose time has come. Each one is removed from the store
// first, and recurring ones are put back at their next boundary.
func (s *Scheduler) Spawn(ctx context.Context) (int, error) {
	if !s.doing.CompareAndSwap(false, true) {
		return 0, ErrPassRunning
	}
	defer s.doing.Store(false)

	start := time.Now()
	ran, err := s.spawn(ctx)
	s.metrics.SpawnCompleted(ran, time.Since(start), err)
	return ran, err
}

func (s *Scheduler) spawn(ctx context.Context) (int, error) {
	snapshot, err := s.store.Enumerate(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate events: %w", err)
	}

	now := s.now().Unix()
	var due []dueEvent
	for _, at := range snapshot.Times() {
		if at > now {
			break
		}
		for _, hook := range snapshot.Hooks(at) {
			for _, hash := range snapshot.Hashes(at, hook) {
				data := snapshot[at][hook][hash]
				if err := s.store.Unschedule(ctx, at, hook, hash); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						continue
					}
					return 0, err
				}

				if data.Recurring() {
					next := NextRun(at, data.Interval, now)
					if _, err := s.store.Schedule(ctx, next, hook, data.Schedule, data.Args); err != nil {
						s.logger.WithFields(logrus.Fields{
							"hook":  hook,
							"error": err.Error(),
						}).Error("Failed to reschedule recurring job")
					}
				}

				due = append(due, dueEvent{at: at, hook: hook, hash: hash, data: data})
			}
		}
	}

	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, s.maxConcurrent)
	)

	for _, ev := range due {
		wg.Add(1)
		go func(ev dueEvent) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			s.run(ctx, ev)
		}(ev)
	}

	wg.Wait()
	return len(due), nil
}

func (s *Scheduler) run(ctx context.Context, ev dueEvent) {
	log := s.logger.WithFields(logrus.Fields{
		"hook": ev.hook,
		"at":   ev.at,
		"hash": ev.hash,
	})

	out := log.WriterLevel(logrus.DebugLevel)
	defer out.Close()

	log.Info("Starting job execution")
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return s.Invoke(ctx, ev.hook, out, ev.data.Args)
	}()

	if err != nil {
		log.WithFields(logrus.Fields{
			"error":    err.Error(),
			"duration": formatDuration(time.Since(start)),
		}).Error("Job execution failed")
		return
	}

	log.WithField("duration", formatDuration(time.Since(start))).Info("Job execution completed successfully")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(d.Microseconds()))
	} else if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Milliseconds()))
	} else if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	} else {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
}

// Doing reports whether a runner pass is in progress.
func (s *Scheduler) Doing() bool {
	return s.doing.Load()
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	if len(s.cron.Entries()) == 0 {
		_, err := s.cron.AddFunc(s.tick, func() {
			ran, err := s.Spawn(context.Background())
			if errors.Is(err, ErrPassRunning) {
				s.logger.Warn("Previous runner pass still in progress, skipping tick")
				return
			}
			if err != nil {
				s.logger.WithError(err).Error("Runner pass failed")
				return
			}
			if ran > 0 {
				s.logger.WithField("ran", ran).Info("Runner pass completed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule runner tick %q: %w", s.tick, err)
		}
	}

	s.cron.Start()
	s.started = true
	s.logger.WithField("tick", s.tick).Info("Scheduler started...")

	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	ctx := s.cron.Stop()
	s.mu.Unlock()

	// In-flight passes still need the hook registry lock.
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
