package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes wires the panel, the JSON API and, when metrics is non-nil, the
// metrics endpoint.
func SetupRoutes(router *mux.Router, handler *Handler, metrics http.Handler, metricsPath string) {
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, PanelPath, http.StatusFound)
	}).Methods(http.MethodGet)

	router.HandleFunc(PanelPath, handler.Panel).Methods(http.MethodGet)
	router.HandleFunc(ActionPath, handler.TriggerAction).Methods(http.MethodGet, http.MethodPost)

	router.HandleFunc("/api/v1/health", handler.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/events", handler.GetEvents).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/schedules", handler.GetSchedules).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/hooks", handler.GetHooks).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/scheduler/start", handler.StartScheduler).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/scheduler/stop", handler.StopScheduler).Methods(http.MethodPost)

	if metrics != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.Handle(metricsPath, metrics).Methods(http.MethodGet)
	}
}
