package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "cronctl",
		Usage: "Inspect and control a running cron panel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "base URL of the panel server",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("CRON_PANEL_URL"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "request timeout",
				Value: 10 * time.Second,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "events",
				Usage:  "List pending events",
				Action: EventsAction,
			},
			{
				Name:   "schedules",
				Usage:  "List recurrence schedules",
				Action: SchedulesAction,
			},
			{
				Name:   "hooks",
				Usage:  "List registered handlers and system hooks",
				Action: HooksAction,
			},
			{
				Name:   "health",
				Usage:  "Show server health",
				Action: HealthAction,
			},
			{
				Name:  "scheduler",
				Usage: "Control the background runner",
				Commands: []*cli.Command{
					{
						Name:   "start",
						Usage:  "Start the runner",
						Action: schedulerAction("/scheduler/start"),
					},
					{
						Name:   "stop",
						Usage:  "Stop the runner",
						Action: schedulerAction("/scheduler/stop"),
					},
				},
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
