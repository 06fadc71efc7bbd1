package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/0xPuncker/cron-panel/internal/api"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/0xPuncker/cron-panel/pkg/utils"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const apiPrefix = "/api/v1"

func clientFrom(cmd *cli.Command) *apiClient {
	return newAPIClient(cmd.String("server"), cmd.Duration("timeout"))
}

func writerFrom(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// EventsAction lists pending occurrences, split into user and core events.
func EventsAction(ctx context.Context, cmd *cli.Command) error {
	var resp api.EventsResponse
	if err := clientFrom(cmd).get(ctx, apiPrefix+"/events", &resp); err != nil {
		return err
	}

	w := writerFrom(cmd)
	doing := "No"
	if resp.Doing {
		doing = "Yes"
	}
	fmt.Fprintf(w, "Total Events: %d  Doing Cron: %s\n", resp.Total, doing)
	if resp.Next != nil {
		fmt.Fprintf(w, "Next Event:   %s (%s)\n", time.Unix(*resp.Next, 0).Format("2006-01-02 15:04:05"),
			utils.HumanTimeDiff(time.Now(), time.Unix(*resp.Next, 0)))
	}
	if resp.Total == 0 {
		fmt.Fprintln(w, "Nothing scheduled.")
		return nil
	}

	fmt.Fprintln(w, "\nCustom Events")
	if err := renderEvents(w, resp.User, "No Custom Events scheduled."); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nCore Events")
	return renderEvents(w, resp.Core, "No Core Events scheduled.")
}

func renderEvents(w io.Writer, events []api.EventResponse, empty string) error {
	if len(events) == 0 {
		fmt.Fprintln(w, empty)
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Next Execution", "Hook", "Interval Hook", "Interval", "Args", "Hash")
	for _, ev := range events {
		schedule, interval := "Single Event", "Single Event"
		if ev.Schedule != "" {
			schedule = ev.Schedule
		}
		if ev.Interval > 0 {
			interval = utils.FormatInterval(ev.Interval, time.Second) + "s"
		}
		if err := table.Append(ev.Date, ev.Hook, schedule, interval, formatArgs(ev.Args), ev.Hash); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatArgs(args types.Args) string {
	if len(args) == 0 {
		return "No Args"
	}
	lines := make([]string, 0, len(args))
	for _, arg := range args {
		lines = append(lines, arg.Key+" => "+arg.Value)
	}
	return strings.Join(lines, "\n")
}

// SchedulesAction lists the recurrence schedules known to the store.
func SchedulesAction(ctx context.Context, cmd *cli.Command) error {
	var resp struct {
		Schedules []types.RecurrenceSchedule `json:"schedules"`
	}
	if err := clientFrom(cmd).get(ctx, apiPrefix+"/schedules", &resp); err != nil {
		return err
	}

	table := tablewriter.NewWriter(writerFrom(cmd))
	table.Header("Interval Hook", "Interval (S)", "Interval (M)", "Interval (H)", "Display Name")
	for _, s := range resp.Schedules {
		if err := table.Append(
			s.Name,
			utils.FormatInterval(s.Interval, time.Second),
			utils.FormatInterval(s.Interval, time.Minute),
			utils.FormatInterval(s.Interval, time.Hour),
			s.Display,
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func HooksAction(ctx context.Context, cmd *cli.Command) error {
	var resp struct {
		Registered  []string `json:"registered"`
		SystemHooks []string `json:"system_hooks"`
	}
	if err := clientFrom(cmd).get(ctx, apiPrefix+"/hooks", &resp); err != nil {
		return err
	}

	w := writerFrom(cmd)
	fmt.Fprintf(w, "Registered handlers (%d):\n", len(resp.Registered))
	for _, h := range resp.Registered {
		fmt.Fprintf(w, "  %s\n", h)
	}
	fmt.Fprintf(w, "System hooks (%d):\n", len(resp.SystemHooks))
	for _, h := range resp.SystemHooks {
		fmt.Fprintf(w, "  %s\n", h)
	}
	return nil
}

func HealthAction(ctx context.Context, cmd *cli.Command) error {
	var resp struct {
		Status           string `json:"status"`
		SchedulerRunning bool   `json:"scheduler_running"`
		DoingCron        bool   `json:"doing_cron"`
	}
	if err := clientFrom(cmd).get(ctx, apiPrefix+"/health", &resp); err != nil {
		return err
	}

	fmt.Fprintf(writerFrom(cmd), "status=%s scheduler_running=%t doing_cron=%t\n",
		resp.Status, resp.SchedulerRunning, resp.DoingCron)
	return nil
}

func schedulerAction(path string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		var resp map[string]string
		if err := clientFrom(cmd).post(ctx, apiPrefix+path, &resp); err != nil {
			return err
		}
		fmt.Fprintln(writerFrom(cmd), resp["status"])
		return nil
	}
}
