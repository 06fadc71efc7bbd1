package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/0xPuncker/cron-panel/internal/api"
	"github.com/0xPuncker/cron-panel/internal/config"
	"github.com/0xPuncker/cron-panel/internal/console"
	"github.com/0xPuncker/cron-panel/internal/cron"
	"github.com/0xPuncker/cron-panel/internal/hooks"
	"github.com/0xPuncker/cron-panel/internal/metrics"
	"github.com/0xPuncker/cron-panel/internal/nonce"
	"github.com/0xPuncker/cron-panel/internal/notifications"
	"github.com/0xPuncker/cron-panel/internal/poller"
	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/0xPuncker/cron-panel/internal/trigger"
	hooksconfig "github.com/0xPuncker/cron-panel/pkg/config"
	"github.com/dimiro1/banner"
	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const bannerText = `
{{ .Title "Cron Panel" "" 0 }}
{{ .AnsiBackground.BrightBlue }}{{ .AnsiColor.White }}
{{ .AnsiReset }}
`

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
		}
	}

	banner.Init(colorable.NewColorableStdout(), true, true, strings.NewReader(bannerText))

	configPath := flag.String("config", "config/config.json", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          false,
		DisableTimestamp:       false,
		TimestampFormat:        "2006-01-02T15:04:05-07:00",
		DisableLevelTruncation: false,
		PadLevelText:           false,
	})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewHooksWatcher(cfg.Panel.HooksFile, logger)
	if err != nil {
		logger.Fatalf("Failed to load hooks file: %v", err)
	}
	watcher.OnChange(func(f *hooksconfig.HooksFile) {
		logger.WithField("system_hooks", len(f.SystemHooks)).Info("System hook allow-list reloaded")
	})

	schedules, err := watcher.Current().RecurrenceSchedules()
	if err != nil {
		logger.Fatalf("Invalid schedules in hooks file: %v", err)
	}

	st, err := store.Open(cfg.Store, schedules)
	if err != nil {
		logger.Fatalf("Failed to open job store: %v", err)
	}
	defer st.Close()

	var (
		sink           metrics.Sink = metrics.NewNoopSink()
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink = metrics.NewPrometheusSink(reg, logger)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	scheduler := cron.NewScheduler(logger, st, cfg.Jobs, sink)
	hooks.NewBuiltins(logger, st).Register(scheduler)

	if err := scheduler.LoadPredefinedJobs(ctx, cfg.Jobs.Predefined); err != nil {
		logger.Fatalf("Failed to load predefined jobs: %v", err)
	}

	slot := console.New(config.Duration(cfg.Panel.ConsoleTTL))
	nonces := nonce.New(config.Duration(cfg.Panel.NonceTTL))

	executor := trigger.NewExecutor(logger, scheduler, slot, nonces, trigger.Config{
		Timeout:   config.Duration(cfg.Panel.TriggerTimeout),
		MaxOutput: cfg.Panel.MaxOutput,
		Strict:    cfg.Panel.Strict(),
	}, sink)

	var notifier *notifications.NotificationService
	if cfg.Slack.WebhookURL != "" {
		slack, err := notifications.NewSlackService(logger, cfg.Slack.WebhookURL)
		if err != nil {
			logger.Warnf("Failed to initialize Slack service: %v", err)
		} else {
			notifier = notifications.NewNotificationService(slack)
			executor.WithNotifier(notifier)
		}
	}

	handler := api.NewHandler(logger, api.Dependencies{
		Store:     st,
		Scheduler: scheduler,
		Executor:  executor,
		Console:   slot,
		Nonces:    nonces,
		AllowList: watcher.AllowList,
		Metrics:   sink,
		Limiter:   rate.NewLimiter(rate.Limit(cfg.Panel.RateLimit), cfg.Panel.RateBurst),
	})

	p := poller.New(st, watcher.AllowList, sink, logger, config.Duration(cfg.Panel.PollInterval))
	go p.Start(ctx)

	go func() {
		if err := watcher.Watch(ctx); err != nil {
			logger.WithError(err).Warn("Hooks file watcher stopped")
		}
	}()

	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	if notifier != nil {
		startupNotifier := notifications.NewStartupNotifier(st, scheduler.Hooks, notifier, logger)
		go func() {
			if err := startupNotifier.NotifyStartup(ctx); err != nil {
				logger.WithError(err).Warn("Startup notification failed")
			}
		}()
	}

	logger.Infof("Panel available at http://localhost:%s%s - Press Ctrl+C to stop.", cfg.Server.Port, api.PanelPath)

	err = api.StartServer(ctx, handler, api.ServerOptions{
		Port:         cfg.Server.Port,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
		Metrics:      metricsHandler,
		MetricsPath:  cfg.Metrics.Path,
	})

	logger.Info("Shutting down...")
	p.Stop()
	scheduler.Stop()

	if err != nil {
		logger.Errorf("Server stopped with error: %v", err)
		return
	}
	logger.Info("Server stopped")
}
