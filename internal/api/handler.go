package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/0xPuncker/cron-panel/internal/console"
	"github.com/0xPuncker/cron-panel/internal/cron"
	"github.com/0xPuncker/cron-panel/internal/index"
	"github.com/0xPuncker/cron-panel/internal/metrics"
	"github.com/0xPuncker/cron-panel/internal/nonce"
	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/0xPuncker/cron-panel/internal/trigger"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Dependencies struct {
	Store     store.JobStore
	Scheduler *cron.Scheduler
	Executor  *trigger.Executor
	Console   *console.Store
	Nonces    *nonce.Store
	AllowList func() index.AllowList
	Metrics   metrics.Sink
	Limiter   *rate.Limiter
}

type Handler struct {
	store     store.JobStore
	Scheduler *cron.Scheduler
	executor  *trigger.Executor
	console   *console.Store
	nonces    *nonce.Store
	allowList func() index.AllowList
	metrics   metrics.Sink
	limiter   *rate.Limiter
	logger    *logrus.Logger
	now       func() time.Time
	location  *time.Location
}

type EventResponse struct {
	Time     int64      `json:"time"`
	Date     string     `json:"date"`
	Hook     string     `json:"hook"`
	Hash     string     `json:"hash"`
	Class    string     `json:"class"`
	Schedule string     `json:"schedule,omitempty"`
	Interval int64      `json:"interval,omitempty"`
	Args     types.Args `json:"args"`
}

type EventsResponse struct {
	Total       int             `json:"total"`
	Doing       bool            `json:"doing_cron"`
	Next        *int64          `json:"next_event,omitempty"`
	Core        []EventResponse `json:"core"`
	User        []EventResponse `json:"user"`
	LastUpdated time.Time       `json:"last_updated"`
}

func NewHandler(logger *logrus.Logger, deps Dependencies) *Handler {
	sink := deps.Metrics
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	allowList := deps.AllowList
	if allowList == nil {
		allowList = func() index.AllowList { return index.NewAllowList() }
	}

	return &Handler{
		store:     deps.Store,
		Scheduler: deps.Scheduler,
		executor:  deps.Executor,
		console:   deps.Console,
		nonces:    deps.Nonces,
		allowList: allowList,
		metrics:   sink,
		limiter:   deps.Limiter,
		logger:    logger,
		now:       time.Now,
		location:  time.Local,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":            "ok",
		"scheduler_running": h.Scheduler.IsRunning(),
		"doing_cron":        h.Scheduler.Doing(),
	})
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Enumerate(r.Context())
	if err != nil {
		h.handleError(w, err, http.StatusServiceUnavailable)
		return
	}

	idx := index.Build(snapshot, h.allowList())
	h.metrics.PendingUpdate(idx.CoreCount(), idx.UserCount())

	response := EventsResponse{
		Total:       idx.Total,
		Doing:       h.Scheduler.Doing(),
		Core:        h.eventsOf(idx, idx.Core, "core"),
		User:        h.eventsOf(idx, idx.User, "user"),
		LastUpdated: h.now(),
	}
	if next, ok := idx.Next(); ok {
		response.Next = &next
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) eventsOf(idx *index.Index, set types.Snapshot, class string) []EventResponse {
	occurrences := idx.Occurrences(set)
	events := make([]EventResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		args := occ.Args
		if args == nil {
			args = types.Args{}
		}
		events = append(events, EventResponse{
			Time:     occ.ScheduledAt,
			Date:     h.formatDate(occ.ScheduledAt),
			Hook:     occ.Hook,
			Hash:     occ.Hash,
			Class:    class,
			Schedule: occ.Schedule,
			Interval: occ.Interval,
			Args:     args,
		})
	}
	return events
}

func (h *Handler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.store.Schedules(r.Context())
	if err != nil {
		h.handleError(w, err, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"schedules": sortedSchedules(schedules),
	})
}

func (h *Handler) GetHooks(w http.ResponseWriter, r *http.Request) {
	system := make([]string, 0)
	for name := range h.allowList() {
		system = append(system, name)
	}
	sort.Strings(system)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"registered":   h.Scheduler.Hooks(),
		"system_hooks": system,
	})
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.Scheduler.Start(); err != nil {
		h.handleError(w, err, http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "scheduler started successfully",
	})
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Stop()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "scheduler stopped successfully",
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error, code int) {
	h.logger.Error(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	})
}

func (h *Handler) formatDate(at int64) string {
	return time.Unix(at, 0).In(h.location).Format("2006-01-02 15:04:05")
}

// sortedSchedules orders by interval, then name.
func sortedSchedules(schedules map[string]types.RecurrenceSchedule) []types.RecurrenceSchedule {
	out := make([]types.RecurrenceSchedule, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Interval == out[j].Interval {
			return out[i].Name < out[j].Name
		}
		return out[i].Interval < out[j].Interval
	})
	return out
}
