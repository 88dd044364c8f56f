// Command taskmate runs the conversational ticket assistant: a LINE webhook
// server bridging chat messages to a Redmine tracker through a Gemini agent
// loop, plus a daily overdue-ticket reminder.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/harukisa/taskmate/internal/adapter/gemini"
	tmhttp "github.com/harukisa/taskmate/internal/adapter/http"
	"github.com/harukisa/taskmate/internal/adapter/line"
	"github.com/harukisa/taskmate/internal/adapter/memory"
	"github.com/harukisa/taskmate/internal/adapter/otel"
	"github.com/harukisa/taskmate/internal/adapter/redmine"
	"github.com/harukisa/taskmate/internal/adapter/ristretto"
	"github.com/harukisa/taskmate/internal/config"
	"github.com/harukisa/taskmate/internal/domain/ticket"
	"github.com/harukisa/taskmate/internal/logger"
	"github.com/harukisa/taskmate/internal/middleware"
	"github.com/harukisa/taskmate/internal/resilience"
	"github.com/harukisa/taskmate/internal/service"
)

// overdueSchedule fires the reminder sweep at 08:00 in the service zone.
const overdueSchedule = "0 8 * * *"

const dedupCacheEntries = 10000

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.Gemini.Model,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	trackerClient := redmine.NewClient(cfg.Redmine.URL, cfg.Redmine.APIKey)
	trackerClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	llmClient := gemini.New(gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
	})

	lineClient := line.NewClient(cfg.Line.ChannelAccessToken, cfg.Line.ChannelSecret)

	seen, err := ristretto.New(dedupCacheEntries)
	if err != nil {
		return fmt.Errorf("dedup cache: %w", err)
	}
	defer seen.Close()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Startup self-check ---
	// Both backends must answer before we accept traffic: the model with a
	// trivial generation, the tracker with the priority enumeration that the
	// tool layer depends on.

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var priorities *service.PriorityTable
	g, gctx := errgroup.WithContext(checkCtx)
	g.Go(func() error {
		if err := llmClient.Ping(gctx); err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		pt, err := service.LoadPriorityTable(gctx, trackerClient)
		if err != nil {
			return fmt.Errorf("redmine: %w", err)
		}
		priorities = pt
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("startup check: %w", err)
	}
	slog.Info("startup check passed")

	// --- Services ---

	store := memory.NewStore()
	tools := service.NewRegistry(trackerClient, priorities, cfg.Redmine.ProjectID,
		cfg.Redmine.PublicURL, cfg.Redmine.OpenStatusIDSet())
	agent := service.NewAgent(llmClient, store, tools, metrics)
	dispatcher := service.NewDispatcher(agent, lineClient, seen,
		int64(cfg.Dispatch.MaxConcurrent), cfg.Dispatch.DedupTTL)

	notifier := service.NewOverdueNotifier(trackerClient, lineClient,
		cfg.Notify.UserID, cfg.Redmine.PublicURL, cfg.Redmine.OpenStatusIDSet())

	sched := cron.New(cron.WithLocation(ticket.Zone))
	if _, err := sched.AddFunc(overdueSchedule, func() { notifier.Run(ctx) }); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// --- HTTP ---

	handlers := &tmhttp.Handlers{
		Webhook:    lineClient,
		Dispatcher: dispatcher,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tmhttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	tmhttp.MountRoutes(r, handlers, lineClient)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let in-flight conversations finish before the process exits.
	dispatcher.Wait()
	return nil
}
