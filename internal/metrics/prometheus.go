package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged, never propagated.
type PrometheusSink struct {
	pending *prometheus.GaugeVec

	triggerRejections *prometheus.CounterVec
	triggerOutcomes   *prometheus.CounterVec
	triggerDuration   prometheus.Histogram

	spawnRuns     prometheus.Counter
	spawnErrors   prometheus.Counter
	spawnDuration prometheus.Histogram

	logger *logrus.Logger
}

func NewPrometheusSink(reg prometheus.Registerer, logger *logrus.Logger) *PrometheusSink {
	s := &PrometheusSink{logger: logger}

	s.pending = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cronpanel_pending_events",
		Help: "Pending scheduled events seen by the last panel render, by class.",
	}, []string{"class"})

	s.triggerRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cronpanel_trigger_rejections_total",
		Help: "Manual trigger requests rejected during validation.",
	}, []string{"reason"})
	s.triggerOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cronpanel_trigger_outcomes_total",
		Help: "Manual trigger executions by outcome.",
	}, []string{"outcome"})
	s.triggerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cronpanel_trigger_duration_seconds",
		Help:    "Wall-clock duration of manually triggered hooks.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	s.spawnRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cronpanel_runner_events_run_total",
		Help: "Due events run by the host runner.",
	})
	s.spawnErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cronpanel_runner_errors_total",
		Help: "Host runner passes that ended with an error.",
	})
	s.spawnDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cronpanel_runner_pass_duration_seconds",
		Help:    "Duration of each host runner pass.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60},
	})

	for name, c := range map[string]prometheus.Collector{
		"cronpanel_pending_events":               s.pending,
		"cronpanel_trigger_rejections_total":     s.triggerRejections,
		"cronpanel_trigger_outcomes_total":       s.triggerOutcomes,
		"cronpanel_trigger_duration_seconds":     s.triggerDuration,
		"cronpanel_runner_events_run_total":      s.spawnRuns,
		"cronpanel_runner_errors_total":          s.spawnErrors,
		"cronpanel_runner_pass_duration_seconds": s.spawnDuration,
	} {
		s.register(reg, c, name)
	}

	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"metric": name,
				"error":  err.Error(),
			}).Warn("Failed to register metric")
		}
	}
}

func (s *PrometheusSink) PendingUpdate(core, user int) {
	s.pending.WithLabelValues("core").Set(float64(core))
	s.pending.WithLabelValues("user").Set(float64(user))
}

func (s *PrometheusSink) TriggerRejected(reason string) {
	s.triggerRejections.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) TriggerCompleted(outcome string, duration time.Duration) {
	s.triggerOutcomes.WithLabelValues(outcome).Inc()
	s.triggerDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) SpawnCompleted(ran int, duration time.Duration, err error) {
	s.spawnRuns.Add(float64(ran))
	s.spawnDuration.Observe(duration.Seconds())
	if err != nil {
		s.spawnErrors.Inc()
	}
}
