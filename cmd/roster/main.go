package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/cleaning-roster/internal/application"
	"github.com/example/cleaning-roster/internal/config"
	"github.com/example/cleaning-roster/internal/dates"
	httptransport "github.com/example/cleaning-roster/internal/http"
	"github.com/example/cleaning-roster/internal/logging"
	"github.com/example/cleaning-roster/internal/notify"
	"github.com/example/cleaning-roster/internal/persistence/sqlite"
	"github.com/example/cleaning-roster/internal/seed"
	"github.com/example/cleaning-roster/internal/semester"
	"github.com/example/cleaning-roster/internal/sweep"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	location := cfg.Location()

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString

	if cfg.SeedFile != "" {
		file, err := seed.Load(cfg.SeedFile)
		if err != nil {
			logger.Error("failed to load seed file", "error", err)
			os.Exit(1)
		}
		if _, err := seed.Apply(ctx, store, file, idGenerator, logger); err != nil {
			logger.Error("failed to apply seed file", "error", err)
			os.Exit(1)
		}
	}

	var notifier application.Notifier = application.NopNotifier{}
	var messenger application.Messenger = application.NopMessenger{}
	if cfg.ChatBaseURL != "" {
		chat := notify.NewClient(cfg.ChatBaseURL, notify.Options{
			Token:               cfg.ChatToken,
			AuditChannelRef:     cfg.AuditChannelRef,
			ImportantChannelRef: cfg.ImportantChannelRef,
			Timeout:             cfg.NotifyTimeout,
			Logger:              logger,
		})
		notifier = chat
		messenger = chat
	} else {
		logger.Warn("no chat gateway configured, notifications are disabled")
	}

	templateService := application.NewTemplateService(store, store, messenger, notifier, idGenerator, logger)
	scheduleService := application.NewScheduleService(store, store, messenger, notifier, idGenerator, logger)
	rosterService := application.NewRosterService(store, messenger, notifier, time.Now, location, logger)
	userService := application.NewUserService(store, notifier, idGenerator, logger)
	reportService := application.NewReportService(store, store, store, logger)

	resolver := semester.NewResolver(cfg.SemesterURLs, cfg.SemesterFallback(), location, nil, time.Now, logger)
	sweeper := sweep.New(store, notifier, time.Now, location, logger)

	manager := httptransport.RequireManager(cfg.ManagerTokenHash, logger)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Roster:     httptransport.NewRosterHandler(rosterService, logger),
		Schedules:  httptransport.NewScheduleHandler(scheduleService, logger),
		Templates:  httptransport.NewTemplateHandler(templateService, logger),
		Users:      httptransport.NewUserHandler(userService, logger),
		Reports:    httptransport.NewReportHandler(reportService, resolver.Current, logger),
		Manager:    manager,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	runSweep := func(trigger string) {
		sweepCtx := logging.ContextWithLogger(context.Background(), logger.With("job", "sweep", "trigger", trigger))
		if err := sweeper.Run(sweepCtx); err != nil {
			logger.Error("weekly sweep failed", "trigger", trigger, "error", err)
		}
	}
	postReports := func() {
		reportCtx := logging.ContextWithLogger(context.Background(), logger.With("job", "reports"))
		publishReports(reportCtx, reportService, notifier, resolver.Current(reportCtx), logger)
	}

	scheduler := cron.New(cron.WithLocation(location))
	if _, err := scheduler.AddFunc(cfg.SweepCron, func() { runSweep("cron") }); err != nil {
		logger.Error("invalid sweep cron expression", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc(cfg.ReportCron, postReports); err != nil {
		logger.Error("invalid report cron expression", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Catch up on anything the service slept through.
	go runSweep("startup")

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("roster API listening", "addr", server.Addr, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func publishReports(ctx context.Context, reports *application.ReportService, notifier application.Notifier, span dates.Span, logger *slog.Logger) {
	userReport, err := reports.UserReport(ctx, span)
	if err != nil {
		logger.Error("failed to build user report", "error", err)
	} else if err := notifier.PostAuditLog(ctx, userReport); err != nil {
		logger.Warn("failed to post user report", "error", err)
	}

	templateReport, err := reports.TemplateReport(ctx)
	if err != nil {
		logger.Error("failed to build template report", "error", err)
	} else if err := notifier.PostAuditLog(ctx, templateReport); err != nil {
		logger.Warn("failed to post template report", "error", err)
	}
}
