// Package pipeline drives a job from uploaded files to an indexed docset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"quizforge/internal/extract"
	"quizforge/internal/jobs"
	"quizforge/internal/storage"
	"quizforge/internal/util"
	"quizforge/internal/vector"
)

const (
	ManifestName = "manifest.json"

	progressExtracting = 10
	progressIndexing   = 40
	progressIndexed    = 95
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrResultNotReady = errors.New("result not ready")
	ErrJobFailed      = errors.New("job failed")
	ErrResultExpired  = errors.New("result no longer available")
	ErrNoValidFiles   = errors.New("no valid files uploaded")
	ErrUploadTooLarge = errors.New("upload too large")
)

// Manifest is written to out/manifest.json when a job succeeds.
type Manifest struct {
	JobID         string          `json:"job_id"`
	ChunksIndexed int             `json:"chunks_indexed"`
	Documents     []ManifestEntry `json:"documents"`
	CompletedAt   time.Time       `json:"completed_at"`
}

type ManifestEntry struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

type Orchestrator struct {
	layout      *storage.Layout
	registry    *jobs.Registry
	extractor   *extract.Extractor
	collections *vector.Collections
	log         *slog.Logger
}

func NewOrchestrator(layout *storage.Layout, registry *jobs.Registry, extractor *extract.Extractor, collections *vector.Collections) *Orchestrator {
	return &Orchestrator{
		layout:      layout,
		registry:    registry,
		extractor:   extractor,
		collections: collections,
		log:         slog.Default().With("component", "orchestrator"),
	}
}

// Run processes one job to a terminal state. Failures are recorded on the
// job, not returned; the only error is an unknown job id. The input
// directory is removed whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (err error) {
	if _, ok := o.registry.Get(jobID); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	started := time.Now()
	log := o.log.With("job_id", jobID)

	defer func() {
		if cerr := o.layout.CleanupInput(jobID); cerr != nil {
			log.Warn("cleanup input failed", "error", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("orchestration panicked", "panic", r)
			o.fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if _, err := o.registry.Update(jobID, func(j *jobs.Job) error {
		j.Status = jobs.StatusProcessing
		j.Progress = 0
		return nil
	}); err != nil {
		log.Warn("job not runnable", "error", err)
		return nil
	}

	manifest, err := o.process(ctx, jobID)
	if err != nil {
		log.Error("job failed", "error", err, "duration_ms", time.Since(started).Milliseconds())
		o.fail(jobID, err.Error())
		return nil
	}

	outDir, err := o.layout.OutputDir(jobID)
	if err != nil {
		o.fail(jobID, fmt.Sprintf("create output dir: %v", err))
		return nil
	}
	ref := filepath.Join(outDir, ManifestName)
	if err := util.WriteJSONAtomic(ref, manifest); err != nil {
		o.fail(jobID, fmt.Sprintf("write manifest: %v", err))
		return nil
	}
	o.setJob(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusSucceeded
		j.Progress = 100
		j.ChunksIndexed = manifest.ChunksIndexed
		j.ResultRef = ref
	})
	log.Info("job succeeded", "chunks_indexed", manifest.ChunksIndexed, "documents", len(manifest.Documents), "duration_ms", time.Since(started).Milliseconds())
	return nil
}

func (o *Orchestrator) process(ctx context.Context, jobID string) (Manifest, error) {
	if !o.layout.HasInput(jobID) {
		return Manifest{}, errors.New("input directory missing")
	}
	inDir := o.layout.InputPath(jobID)

	o.setProgress(jobID, progressExtracting)
	docs, err := o.extractor.ExtractAll(ctx, []string{inDir}, inDir)
	if err != nil {
		return Manifest{}, fmt.Errorf("extract: %w", err)
	}
	if len(docs) == 0 {
		return Manifest{}, errors.New("no text extracted from files")
	}

	o.setProgress(jobID, progressIndexing)
	ix, err := o.collections.Index(jobID)
	if err != nil {
		return Manifest{}, err
	}
	manifest := Manifest{JobID: jobID, Documents: make([]ManifestEntry, 0, len(docs))}
	for i, doc := range docs {
		n, err := ix.AddDocument(ctx, doc.Source, doc.Text)
		if err != nil {
			return Manifest{}, fmt.Errorf("index %s: %w", doc.Source, err)
		}
		manifest.ChunksIndexed += n
		manifest.Documents = append(manifest.Documents, ManifestEntry{Source: doc.Source, Chunks: n})
		o.setProgress(jobID, progressIndexing+(i+1)*(progressIndexed-progressIndexing)/len(docs))
	}
	manifest.CompletedAt = time.Now().UTC()
	return manifest, nil
}

func (o *Orchestrator) setProgress(jobID string, p int) {
	o.setJob(jobID, func(j *jobs.Job) { j.Progress = p })
}

func (o *Orchestrator) setJob(jobID string, fn func(j *jobs.Job)) {
	if _, err := o.registry.Update(jobID, func(j *jobs.Job) error {
		fn(j)
		return nil
	}); err != nil {
		o.log.Warn("job update rejected", "job_id", jobID, "error", err)
	}
}

func (o *Orchestrator) fail(jobID, msg string) {
	o.setJob(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusFailed
		j.Error = msg
	})
}
