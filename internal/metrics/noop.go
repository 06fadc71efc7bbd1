package metrics

import "time"

// NoopSink is used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) PendingUpdate(core, user int)                              {}
func (n *NoopSink) TriggerRejected(reason string)                             {}
func (n *NoopSink) TriggerCompleted(outcome string, duration time.Duration)   {}
func (n *NoopSink) SpawnCompleted(ran int, duration time.Duration, err error) {}
