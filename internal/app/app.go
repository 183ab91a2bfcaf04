// Package app assembles the shared components from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quizforge/internal/config"
	"quizforge/internal/extract"
	"quizforge/internal/jobs"
	"quizforge/internal/pipeline"
	"quizforge/internal/providers"
	"quizforge/internal/quiz"
	"quizforge/internal/storage"
	"quizforge/internal/vector"
)

const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type App struct {
	Config       config.Config
	Layout       *storage.Layout
	Registry     *jobs.Registry
	Providers    *providers.Manager
	Collections  *vector.Collections
	Extractor    *extract.Extractor
	Orchestrator *pipeline.Orchestrator
	Generator    *quiz.Generator
	Evaluator    *quiz.Evaluator
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	layout, err := storage.NewLayout(cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("init providers: %w", err)
	}
	if len(pm.LLMNames()) == 0 {
		return nil, errors.New("no llm providers configured")
	}
	store, err := OpenStore(ctx, cfg, layout)
	if err != nil {
		return nil, err
	}

	llm := pm.LLM()
	if pg, ok := store.(*vector.PGStore); ok {
		repo := storage.NewLLMAuditRepo(pg.DB())
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		llm = providers.WithAudit(llm, auditRecorder{repo: repo})
	}

	collections := vector.NewCollections(store, pm.Embedder(), vector.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Dimension:    pm.EmbedDim(),
	})
	extractor := extract.New(extract.Options{
		OCR:          cfg.OCREnabled,
		MaxTextBytes: cfg.MaxTextBytes,
		Workers:      cfg.ExtractWorkers,
	})
	registry := jobs.NewRegistry()
	opts := quiz.Options{
		ContextBudget: cfg.ContextBudget,
		Temperature:   cfg.QuizTemperature,
		Timeout:       cfg.GeneratorTimeout,
	}
	return &App{
		Config:       cfg,
		Layout:       layout,
		Registry:     registry,
		Providers:    pm,
		Collections:  collections,
		Extractor:    extractor,
		Orchestrator: pipeline.NewOrchestrator(layout, registry, extractor, collections),
		Generator:    quiz.NewGenerator(llm, opts),
		Evaluator:    quiz.NewEvaluator(llm, opts),
	}, nil
}

// OpenStore opens the vector backend named by cfg.VectorBackend.
func OpenStore(ctx context.Context, cfg config.Config, layout *storage.Layout) (vector.Store, error) {
	switch cfg.VectorBackend {
	case BackendSQLite, "":
		dir, err := layout.IndexDir()
		if err != nil {
			return nil, err
		}
		return vector.OpenSQLiteStore(ctx, dir)
	case BackendMemory:
		return vector.NewMemoryStore(), nil
	case BackendPostgres:
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := storage.NewDB(dialCtx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		pg := vector.NewPGStore(db, cfg.EmbedDim)
		if err := pg.EnsureSchema(dialCtx); err != nil {
			db.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// Prune forgets jobs older than ttl and removes their files.
func (a *App) Prune(ttl time.Duration) int {
	ids := a.Registry.Prune(ttl)
	for _, id := range ids {
		if err := a.Layout.Cleanup(id); err != nil {
			slog.Warn("cleanup pruned job", "job_id", id, "error", err)
		}
	}
	return len(ids)
}

type auditRecorder struct {
	repo *storage.LLMAuditRepo
}

func (r auditRecorder) RecordCall(ctx context.Context, rec providers.CallRecord) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := r.repo.Insert(ctx, storage.LLMCallRecord{
		Operation:    rec.Operation,
		ProviderName: rec.Provider.Name,
		Model:        rec.Provider.Model,
		Status:       rec.Status,
		ErrorType:    string(rec.ErrorType),
		LatencyMS:    rec.Latency.Milliseconds(),
	})
	if err != nil {
		slog.Warn("record llm call", "operation", rec.Operation, "error", err)
	}
}

func (a *App) Close() error {
	return a.Collections.Close()
}
