package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/0xPuncker/cron-panel/internal/trigger"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type ServerOptions struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Metrics      http.Handler
	MetricsPath  string
}

func NewRouter(handler *Handler, opts ServerOptions) *mux.Router {
	router := mux.NewRouter()

	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	router.Use(loggingMiddleware(handler.logger, "/api/v1/health", metricsPath))
	router.Use(securityHeaders)
	router.Use(corsMiddleware)

	SetupRoutes(router, handler, opts.Metrics, metricsPath)
	return router
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, handler *Handler, opts ServerOptions) error {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", opts.Port),
		Handler:      NewRouter(handler, opts),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		handler.logger.Infof("Server listening on :%s", opts.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// loggingMiddleware logs every request. Probes and scrapes are logged at debug so
// they do not drown out panel traffic.
func loggingMiddleware(logger *logrus.Logger, quiet ...string) mux.MiddlewareFunc {
	quietPaths := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			entry := logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rw.status,
				"duration":   requestDuration(time.Since(start)),
				"user_agent": r.UserAgent(),
				"remote_ip":  r.RemoteAddr,
			})
			if r.URL.Path == ActionPath {
				entry = entry.WithFields(logrus.Fields{
					"hook":     r.FormValue(trigger.ParamHook),
					"location": rw.Header().Get("Location"),
				})
			}

			if quietPaths[r.URL.Path] {
				entry.Debug("Request processed")
				return
			}
			entry.Info("Request processed")
		})
	}
}

func requestDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// securityHeaders keeps the panel out of frames and limits the referrer to this
// origin, which is all the trigger redirect needs.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		if strings.HasPrefix(r.URL.Path, PanelPath) {
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware opens the JSON API to other origins. The panel and its trigger
// endpoint stay same-origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
