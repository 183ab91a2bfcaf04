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

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"quizforge/internal/activities"
	"quizforge/internal/api"
	"quizforge/internal/app"
	"quizforge/internal/config"
	"quizforge/internal/pipeline"
	"quizforge/internal/workflows"
)

const janitorInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("quizforge api failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger, closeLog := config.SetupLogger(cfg.LogFile, config.ParseLogLevel(cfg.LogLevel))
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("failed to close vector store", "error", err)
		}
	}()

	var dispatcher pipeline.Dispatcher
	var goDispatcher *pipeline.GoDispatcher
	switch cfg.Dispatcher {
	case "temporal":
		c, err := tclient.Dial(tclient.Options{
			HostPort: cfg.TemporalAddress,
			Logger:   tlog.NewStructuredLogger(logger),
		})
		if err != nil {
			return fmt.Errorf("connect temporal at %s: %w", cfg.TemporalAddress, err)
		}
		defer c.Close()
		w, err := workflows.StartWorker(c, cfg.TemporalTaskQueue, activities.New(a.Orchestrator, a.Registry))
		if err != nil {
			return err
		}
		defer w.Stop()
		dispatcher = workflows.NewTemporalDispatcher(c, cfg.TemporalTaskQueue)
	default:
		goDispatcher = pipeline.NewGoDispatcher(a.Orchestrator)
		dispatcher = goDispatcher
	}

	srv := api.NewServer(api.Deps{
		Layout:         a.Layout,
		Registry:       a.Registry,
		Intake:         pipeline.NewIntake(a.Layout, a.Registry, dispatcher, cfg.MaxUploadBytes),
		Collections:    a.Collections,
		Generator:      a.Generator,
		Evaluator:      a.Evaluator,
		Decoders:       a.Extractor.Registry(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		LLMProviders:   a.Providers.LLMNames(),
	})
	httpServer := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go runJanitor(ctx, a, cfg.JobTTL)
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("quizforge api listening",
			"addr", cfg.APIAddr,
			"dispatcher", cfg.Dispatcher,
			"vector_backend", cfg.VectorBackend,
			"llm_providers", cfg.LLMProviders,
			"embed_providers", cfg.EmbedProviders)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("serve: %w", err)
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if goDispatcher != nil {
		goDispatcher.Wait()
	}
	slog.Info("server stopped")
	return runErr
}

func runJanitor(ctx context.Context, a *app.App, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.Prune(ttl); n > 0 {
				slog.Info("pruned expired jobs", "count", n)
			}
		}
	}
}
