package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/sirupsen/logrus"
)

// StartupNotifier announces the panel on Slack once the process is up.
type StartupNotifier struct {
	store        store.JobStore
	hooks        func() []string
	service      *NotificationService
	logger       *logrus.Logger
	initialDelay time.Duration
}

func NewStartupNotifier(st store.JobStore, hooks func() []string, service *NotificationService, logger *logrus.Logger) *StartupNotifier {
	return &StartupNotifier{
		store:        st,
		hooks:        hooks,
		service:      service,
		logger:       logger,
		initialDelay: 5 * time.Second,
	}
}

func (n *StartupNotifier) NotifyStartup(ctx context.Context) error {
	select {
	case <-time.After(n.initialDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	snapshot, err := n.store.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate events: %w", err)
	}

	var next int64
	if times := snapshot.Times(); len(times) > 0 {
		next = times[0]
	}

	hooks := n.hooks()
	n.logger.Debugf("Sending startup notification: %d hooks, %d pending events", len(hooks), snapshot.Len())

	message := n.service.formatStartupNotification(hooks, snapshot.Len(), next)
	return n.service.slackService.SendSlackMessage(ctx, message)
}
