package api

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/0xPuncker/cron-panel/internal/index"
	"github.com/0xPuncker/cron-panel/internal/trigger"
	"github.com/0xPuncker/cron-panel/pkg/identity"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/0xPuncker/cron-panel/pkg/utils"
)

const (
	PanelPath   = "/panel"
	ActionPath  = "/panel/action"
	NoticeParam = "zt-notice"
)

//go:embed templates/panel.html
var templateFS embed.FS

var panelTemplate = template.Must(template.ParseFS(templateFS, "templates/panel.html"))

var noticeText = map[string]string{
	"invalid_nonce":      "The link has expired. Reload the panel and try again.",
	"invalid_action":     "Unknown action.",
	"unsupported_action": "Only running an event is supported from the panel.",
	"invalid_hook":       "That hook is no longer scheduled.",
	"invalid_time":       "That event time is no longer scheduled.",
	"invalid_hash":       "That event is no longer scheduled.",
	"invalid_occurrence": "The link does not match a scheduled event.",
	"invalid_request":    "The request could not be read.",
	"rate_limited":       "Too many manual runs. Wait a moment and try again.",
	"store_unavailable":  "The job store could not be read.",
}

type timeView struct {
	Date string
	Unix int64
	Diff string
}

type eventView struct {
	Next     timeView
	Hook     string
	Schedule string
	Interval []string
	Args     []string
	RunURL   string
}

type scheduleView struct {
	Name    string
	Seconds string
	Minutes string
	Hours   string
	Display string
}

type consoleView struct {
	Hook      string
	Scheduled int64
	Executed  string
	Duration  string
	Error     string
	Output    string
}

type panelView struct {
	Total     int
	Doing     string
	Next      *timeView
	Now       string
	Notice    string
	Console   *consoleView
	Empty     bool
	User      []eventView
	Core      []eventView
	Schedules []scheduleView
}

// Panel renders the read-only view. The console entry, if any, is consumed here.
func (h *Handler) Panel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now()

	snapshot, err := h.store.Enumerate(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to enumerate events, rendering as empty")
		snapshot = nil
	}
	idx := index.Build(snapshot, h.allowList())
	h.metrics.PendingUpdate(idx.CoreCount(), idx.UserCount())

	schedules, err := h.store.Schedules(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read schedules")
	}

	token := h.nonces.Mint()

	doing := "No"
	if h.Scheduler.Doing() {
		doing = "Yes"
	}

	view := panelView{
		Total:  idx.Total,
		Doing:  doing,
		Now:    now.In(h.location).Format("15:04:05"),
		Notice: noticeText[r.URL.Query().Get(NoticeParam)],
		Empty:  idx.Empty(),
		User:   h.eventViews(idx, idx.User, now, token),
		Core:   h.eventViews(idx, idx.Core, now, token),
	}
	if next, ok := idx.Next(); ok {
		tv := h.timeView(next, now)
		view.Next = &tv
	}
	for _, s := range sortedSchedules(schedules) {
		view.Schedules = append(view.Schedules, scheduleView{
			Name:    identity.Sanitize(s.Name),
			Seconds: utils.FormatInterval(s.Interval, time.Second),
			Minutes: utils.FormatInterval(s.Interval, time.Minute),
			Hours:   utils.FormatInterval(s.Interval, time.Hour),
			Display: identity.Sanitize(s.Display),
		})
	}
	if entry, ok := h.console.Take(); ok {
		view.Console = h.consoleView(entry)
	}

	var buf bytes.Buffer
	if err := panelTemplate.Execute(&buf, view); err != nil {
		h.handleError(w, fmt.Errorf("failed to render panel: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) timeView(at int64, now time.Time) timeView {
	return timeView{
		Date: h.formatDate(at),
		Unix: at,
		Diff: utils.HumanTimeDiff(now, time.Unix(at, 0)),
	}
}

func (h *Handler) eventViews(idx *index.Index, set types.Snapshot, now time.Time, token string) []eventView {
	occurrences := idx.Occurrences(set)
	views := make([]eventView, 0, len(occurrences))

	for _, occ := range occurrences {
		v := eventView{
			Next:     h.timeView(occ.ScheduledAt, now),
			Hook:     identity.Sanitize(occ.Hook),
			Schedule: "Single Event",
			Interval: []string{"Single Event"},
			Args:     []string{"No Args"},
		}
		if occ.Schedule != "" {
			v.Schedule = identity.Sanitize(occ.Schedule)
		}
		if occ.Recurring() {
			v.Interval = []string{
				utils.FormatInterval(occ.Interval, time.Second) + "s",
				utils.FormatInterval(occ.Interval, time.Minute) + "m",
				utils.FormatInterval(occ.Interval, time.Hour) + "h",
			}
		}
		if len(occ.Args) > 0 {
			v.Args = v.Args[:0]
			for _, arg := range occ.Args {
				v.Args = append(v.Args, identity.Sanitize(arg.Key)+" => "+identity.Sanitize(arg.Value))
			}
		}

		req := trigger.Request{
			Action: trigger.ActionRun,
			Hook:   occ.Hook,
			Time:   occ.ScheduledAt,
			Hash:   occ.Hash,
			Nonce:  token,
		}
		v.RunURL = ActionPath + "?" + req.Values().Encode()

		views = append(views, v)
	}
	return views
}

func (h *Handler) consoleView(entry types.ExecutionLogEntry) *consoleView {
	return &consoleView{
		Hook:      entry.Hook,
		Scheduled: entry.ScheduledAt,
		Executed:  entry.TriggeredAt.In(h.location).Format("2006-01-02 15:04:05"),
		Duration:  fmt.Sprintf("%.6f", entry.DurationSeconds()),
		Error:     entry.Error,
		Output:    strings.TrimRight(entry.Output, "\n"),
	}
}

// TriggerAction handles a run link. It always answers with a redirect.
func (h *Handler) TriggerAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "invalid_request")
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.metrics.TriggerRejected("rate_limited")
		h.logger.WithField("remote_ip", r.RemoteAddr).Warn("Trigger request rate limited")
		h.redirect(w, r, "rate_limited")
		return
	}

	req, err := trigger.ParseRequest(r.Form)
	if err != nil {
		var verr *trigger.ValidationError
		if errors.As(err, &verr) {
			h.metrics.TriggerRejected(verr.Field)
		}
		h.logger.WithError(err).Warn("Trigger request rejected")
		h.redirect(w, r, noticeOf(err))
		return
	}

	snapshot, err := h.store.Enumerate(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to enumerate events")
		h.redirect(w, r, "store_unavailable")
		return
	}

	idx := index.Build(snapshot, h.allowList())
	if _, err := h.executor.Handle(r.Context(), req, idx); err != nil {
		h.redirect(w, r, noticeOf(err))
		return
	}

	h.redirect(w, r, "")
}

func noticeOf(err error) string {
	var verr *trigger.ValidationError
	if errors.As(err, &verr) {
		return verr.Notice()
	}
	return "invalid_request"
}

// redirect sends the operator back where they came from when that is this host,
// and to the panel otherwise.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, notice string) {
	target := &url.URL{Path: PanelPath}

	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && ref.Path != "" && ref.Path != ActionPath {
		target = &url.URL{Path: ref.Path, RawQuery: ref.RawQuery}
	}

	query := target.Query()
	query.Del(NoticeParam)
	if notice != "" {
		query.Set(NoticeParam, notice)
	}
	target.RawQuery = query.Encode()

	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}
