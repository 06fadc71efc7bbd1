package hooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/0xPuncker/cron-panel/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	Heartbeat       = "heartbeat"
	SchedulerReport = "scheduler_report"
	Echo            = "echo"
	HTTPCheck       = "http_check"
)

// SystemHooks are the built-ins that belong on the core side of the panel.
var SystemHooks = []string{Heartbeat, SchedulerReport}

// Registrar is satisfied by the host scheduler.
type Registrar interface {
	RegisterHook(name string, fn func(ctx context.Context, out io.Writer, args types.Args) error)
}

type Builtins struct {
	store   store.JobStore
	client  *http.Client
	logger  *logrus.Logger
	started time.Time
	now     func() time.Time
}

func NewBuiltins(logger *logrus.Logger, st store.JobStore) *Builtins {
	return &Builtins{
		store:   st,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		started: time.Now(),
		now:     time.Now,
	}
}

func (b *Builtins) WithHTTPClient(client *http.Client) *Builtins {
	b.client = client
	return b
}

func (b *Builtins) Register(r Registrar) {
	r.RegisterHook(Heartbeat, b.Heartbeat)
	r.RegisterHook(SchedulerReport, b.SchedulerReport)
	r.RegisterHook(Echo, b.Echo)
	r.RegisterHook(HTTPCheck, b.HTTPCheck)
	b.logger.WithField("hooks", []string{Heartbeat, SchedulerReport, Echo, HTTPCheck}).Debug("Registered built-in hooks")
}

func (b *Builtins) Heartbeat(ctx context.Context, out io.Writer, args types.Args) error {
	now := b.now()
	_, err := fmt.Fprintf(out, "alive at %s, up %s\n", now.Format(time.RFC3339), utils.FormatDuration(now.Sub(b.started)))
	return err
}

// SchedulerReport writes how many occurrences are pending at each timestamp.
func (b *Builtins) SchedulerReport(ctx context.Context, out io.Writer, args types.Args) error {
	snapshot, err := b.store.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate events: %w", err)
	}

	if snapshot.Len() == 0 {
		_, err = io.WriteString(out, "nothing scheduled\n")
		return err
	}

	for _, at := range snapshot.Times() {
		count := 0
		for _, hook := range snapshot.Hooks(at) {
			count += len(snapshot.Hashes(at, hook))
		}
		fmt.Fprintf(out, "%s (%d): %d pending [%s]\n",
			time.Unix(at, 0).UTC().Format(time.RFC3339), at, count, strings.Join(snapshot.Hooks(at), ", "))
	}
	_, err = fmt.Fprintf(out, "total: %d\n", snapshot.Len())
	return err
}

func (b *Builtins) Echo(ctx context.Context, out io.Writer, args types.Args) error {
	if len(args) == 0 {
		_, err := io.WriteString(out, "No Args\n")
		return err
	}
	for _, arg := range args {
		if _, err := fmt.Fprintf(out, "%s => %s\n", arg.Key, arg.Value); err != nil {
			return err
		}
	}
	return nil
}

// HTTPCheck fetches args[url] and fails on anything but a 2xx status.
func (b *Builtins) HTTPCheck(ctx context.Context, out io.Writer, args types.Args) error {
	target, ok := args.Get("url")
	if !ok || strings.TrimSpace(target) == "" {
		return fmt.Errorf("http_check requires a url argument")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	fmt.Fprintf(out, "GET %s -> %s in %s\n", target, resp.Status, utils.FormatDuration(time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", target, resp.StatusCode)
	}
	return nil
}
