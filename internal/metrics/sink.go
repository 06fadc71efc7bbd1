package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations must not block or propagate errors.
type Sink interface {
	// Panel metrics
	PendingUpdate(core, user int)

	// Trigger metrics
	TriggerRejected(reason string)
	TriggerCompleted(outcome string, duration time.Duration)

	// Host runner metrics
	SpawnCompleted(ran int, duration time.Duration, err error)
}

// Outcome constants for TriggerCompleted.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
	OutcomeLookup  = "lookup_error"
)
