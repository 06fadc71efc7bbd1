package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/0xPuncker/cron-panel/internal/index"
	"github.com/0xPuncker/cron-panel/internal/metrics"
	"github.com/0xPuncker/cron-panel/pkg/identity"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 64 * 1024
)

type state string

const (
	stateIdle       state = "idle"
	stateValidating state = "validating"
	stateExecuting  state = "executing"
	stateLogged     state = "logged"
)

type Invoker interface {
	Invoke(ctx context.Context, hook string, out io.Writer, args types.Args) error
}

type NonceVerifier interface {
	Verify(token string) bool
}

type LogStore interface {
	Put(entry types.ExecutionLogEntry)
}

type Notifier interface {
	NotifyExecution(ctx context.Context, entry types.ExecutionLogEntry) error
}

type Config struct {
	Timeout   time.Duration
	MaxOutput int
	Strict    bool
}

// Validator checks a request against the index built for it.
type Validator struct {
	Nonces NonceVerifier
	Strict bool
}

func (v Validator) Validate(req Request, idx *index.Index) error {
	if req.Nonce == "" {
		return &ValidationError{Field: "nonce", Reason: "missing"}
	}
	if v.Nonces == nil || !v.Nonces.Verify(req.Nonce) {
		return &ValidationError{Field: "nonce", Reason: "expired or unknown"}
	}
	if !req.Action.Known() {
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", req.Action)}
	}
	if !idx.KnownHook(req.Hook) {
		return &ValidationError{Field: "hook", Reason: "not scheduled"}
	}
	if !idx.KnownTime(req.Time) {
		return &ValidationError{Field: "time", Reason: "not scheduled"}
	}
	if !identity.Valid(req.Hash) || !idx.KnownHash(req.Hash) {
		return &ValidationError{Field: "hash", Reason: "not scheduled"}
	}
	if v.Strict && !idx.Contains(index.Key{At: req.Time, Hook: req.Hook, Hash: req.Hash}) {
		return &ValidationError{Field: "occurrence", Reason: "time, hook and hash do not name one occurrence"}
	}
	return nil
}

// Executor runs a validated trigger synchronously and records the outcome in the
// execution log slot.
type Executor struct {
	validator Validator
	invoker   Invoker
	log       LogStore
	notifier  Notifier
	metrics   metrics.Sink
	logger    *logrus.Logger

	timeout   time.Duration
	maxOutput int
	now       func() time.Time
}

func NewExecutor(logger *logrus.Logger, invoker Invoker, log LogStore, nonces NonceVerifier, cfg Config, sink metrics.Sink) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}

	return &Executor{
		validator: Validator{Nonces: nonces, Strict: cfg.Strict},
		invoker:   invoker,
		log:       log,
		metrics:   sink,
		logger:    logger,
		timeout:   cfg.Timeout,
		maxOutput: cfg.MaxOutput,
		now:       time.Now,
	}
}

func (e *Executor) WithNotifier(n Notifier) *Executor {
	e.notifier = n
	return e
}

func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

func (e *Executor) transition(req Request, s state) {
	e.logger.WithFields(logrus.Fields{
		"state":  s,
		"action": req.Action,
		"hook":   req.Hook,
		"time":   req.Time,
	}).Debug("Trigger state transition")
}

// Handle validates req against idx and, when it passes, executes it. A returned
// error is always a *ValidationError and means nothing ran and nothing was logged.
func (e *Executor) Handle(ctx context.Context, req Request, idx *index.Index) (types.ExecutionLogEntry, error) {
	e.transition(req, stateValidating)

	if err := e.validator.Validate(req, idx); err != nil {
		e.reject(req, err)
		return types.ExecutionLogEntry{}, err
	}

	if req.Action != ActionRun {
		err := &ValidationError{Field: "action", Reason: string(req.Action) + " is not supported", Err: ErrUnsupportedAction}
		e.reject(req, err)
		return types.ExecutionLogEntry{}, err
	}

	return e.Execute(ctx, req, idx), nil
}

func (e *Executor) reject(req Request, err error) {
	var verr *ValidationError
	reason := "invalid"
	if errors.As(err, &verr) {
		reason = verr.Field
	}
	e.metrics.TriggerRejected(reason)

	e.logger.WithFields(logrus.Fields{
		"action": req.Action,
		"hook":   req.Hook,
		"time":   req.Time,
		"error":  err.Error(),
	}).Warn("Trigger request rejected")
	e.transition(req, stateIdle)
}

// Execute runs the occurrence named by req. Failures are recorded in the entry,
// never returned.
func (e *Executor) Execute(ctx context.Context, req Request, idx *index.Index) types.ExecutionLogEntry {
	e.transition(req, stateExecuting)

	entry := types.ExecutionLogEntry{
		Hook:        req.Hook,
		ScheduledAt: req.Time,
		Hash:        req.Hash,
	}

	key := index.Key{At: req.Time, Hook: req.Hook, Hash: req.Hash}
	occ, ok := idx.Lookup(key)

	start := e.now()
	entry.TriggeredAt = start

	var (
		output string
		err    error
	)
	if !ok {
		err = &LookupError{Key: key}
	} else {
		output, err = e.invoke(ctx, occ)
	}

	entry.Duration = e.now().Sub(start)
	if entry.Duration < 0 {
		entry.Duration = 0
	}
	entry.Output = output
	if err != nil {
		entry.Error = err.Error()
	}

	e.log.Put(entry)
	e.transition(req, stateLogged)

	outcome := outcomeOf(err)
	e.metrics.TriggerCompleted(outcome, entry.Duration)

	log := e.logger.WithFields(logrus.Fields{
		"hook":     entry.Hook,
		"time":     entry.ScheduledAt,
		"hash":     entry.Hash,
		"outcome":  outcome,
		"duration": entry.Duration.String(),
	})
	if err != nil {
		log.WithField("error", err.Error()).Error("Manual trigger failed")
	} else {
		log.Info("Manual trigger completed")
	}

	if e.notifier != nil {
		if nerr := e.notifier.NotifyExecution(ctx, entry); nerr != nil {
			e.logger.WithError(nerr).Warn("Failed to send trigger notification")
		}
	}

	e.transition(req, stateIdle)
	return entry
}

type invokeResult struct {
	err error
}

func (e *Executor) invoke(ctx context.Context, occ types.Occurrence) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	sink := newCaptureBuffer(e.maxOutput)
	done := make(chan invokeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeResult{err: &HandlerError{Hook: occ.Hook, Err: fmt.Errorf("%v", r), Panic: true}}
			}
		}()

		err := e.invoker.Invoke(ctx, occ.Hook, sink, occ.Args)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoHandler):
		default:
			err = &HandlerError{Hook: occ.Hook, Err: err}
		}
		done <- invokeResult{err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return sink.release(), fmt.Errorf("%w (%s)", ErrTimeout, e.timeout)
		}
		return sink.release(), res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return sink.release(), fmt.Errorf("%w (%s)", ErrTimeout, e.timeout)
		}
		return sink.release(), ctx.Err()
	}
}

func outcomeOf(err error) string {
	var lookup *LookupError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &lookup):
		return metrics.OutcomeLookup
	case errors.Is(err, ErrTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFailed
	}
}
