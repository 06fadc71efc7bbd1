package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/0xPuncker/cron-panel/pkg/utils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxExcerpt = 500

type NotificationService struct {
	slackService *SlackService
	now          func() time.Time
}

func NewNotificationService(slackService *SlackService) *NotificationService {
	return &NotificationService{
		slackService: slackService,
		now:          time.Now,
	}
}

// NotifyExecution posts the outcome of a manual trigger.
func (s *NotificationService) NotifyExecution(ctx context.Context, entry types.ExecutionLogEntry) error {
	return s.slackService.SendSlackMessage(ctx, s.formatJobNotification(entry))
}

func (s *NotificationService) formatJobNotification(entry types.ExecutionLogEntry) *SlackMessage {
	status, color, icon := "success", "good", "✅"
	if entry.Failed() {
		status, color, icon = "failed", "danger", "❌"
	}

	fields := []Field{
		{
			Title: "Hook",
			Value: entry.Hook,
			Short: true,
		},
		{
			Title: "Status",
			Value: status,
			Short: true,
		},
		{
			Title: "Scheduled For",
			Value: fmt.Sprintf("%s (%d)", time.Unix(entry.ScheduledAt, 0).UTC().Format(time.RFC1123), entry.ScheduledAt),
			Short: true,
		},
		{
			Title: "Duration",
			Value: fmt.Sprintf("%.4fs", entry.DurationSeconds()),
			Short: true,
		},
	}

	if entry.Error != "" {
		fields = append(fields, Field{
			Title: "Error",
			Value: entry.Error,
			Short: false,
		})
	}

	if out := excerpt(entry.Output); out != "" {
		fields = append(fields, Field{
			Title: "Output",
			Value: "```" + out + "```",
			Short: false,
		})
	}

	return &SlackMessage{
		Text: fmt.Sprintf("%s Manual Run: %s", icon, titleHook(entry.Hook)),
		Attachments: []Attachment{
			{
				Color:  color,
				Fields: fields,
				Footer: fmt.Sprintf("Hash: %s", entry.Hash),
				Ts:     s.now().Unix(),
			},
		},
	}
}

func (s *NotificationService) formatStartupNotification(hooks []string, pending int, next int64) *SlackMessage {
	fields := []Field{
		{
			Title: "Registered Hooks",
			Value: fmt.Sprintf("%d", len(hooks)),
			Short: true,
		},
		{
			Title: "Pending Events",
			Value: fmt.Sprintf("%d", pending),
			Short: true,
		},
	}

	if next > 0 {
		now := s.now()
		fields = append(fields, Field{
			Title: "Next Event",
			Value: fmt.Sprintf("%s (in %s)", time.Unix(next, 0).UTC().Format(time.RFC1123), utils.FormatDuration(time.Unix(next, 0).Sub(now))),
			Short: false,
		})
	}

	if len(hooks) > 0 {
		fields = append(fields, Field{
			Title: "Hooks",
			Value: strings.Join(hooks, ", "),
			Short: false,
		})
	}

	return &SlackMessage{
		Text: "🚀 Cron Panel Started",
		Attachments: []Attachment{
			{
				Color:  "#36a64f",
				Fields: fields,
				Ts:     s.now().Unix(),
			},
		},
	}
}

// titleHook turns "wp_version_check" into "Wp Version Check".
func titleHook(hook string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(hook, "_", " "))
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxExcerpt {
		return s
	}
	return s[:maxExcerpt] + "…"
}
