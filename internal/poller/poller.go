package poller

import (
	"context"
	"sync"
	"time"

	"github.com/0xPuncker/cron-panel/internal/index"
	"github.com/0xPuncker/cron-panel/internal/metrics"
	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/sirupsen/logrus"
)

const DefaultInterval = 30 * time.Second

// Poller periodically classifies the store so the pending-events gauge stays
// current between panel renders.
type Poller struct {
	store     store.JobStore
	allowList func() index.AllowList
	metrics   metrics.Sink
	logger    *logrus.Logger
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func New(st store.JobStore, allowList func() index.AllowList, sink metrics.Sink, logger *logrus.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		store:     st,
		allowList: allowList,
		metrics:   sink,
		logger:    logger,
		interval:  interval,
		stop:      make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.update(ctx)

	for {
		select {
		case <-ticker.C:
			p.update(ctx)
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *Poller) update(ctx context.Context) {
	snapshot, err := p.store.Enumerate(ctx)
	if err != nil {
		p.logger.Errorf("Failed to enumerate events: %v", err)
		return
	}

	idx := index.Build(snapshot, p.allowList())
	p.metrics.PendingUpdate(idx.CoreCount(), idx.UserCount())
	p.logger.Debugf("Pending events: %d core, %d user", idx.CoreCount(), idx.UserCount())
}
