package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"quizforge/internal/jobs"
	"quizforge/internal/storage"
)

const DefaultMaxUploadBytes = 200 << 20

// Upload is one named stream from the client.
type Upload struct {
	Name string
	Body io.Reader
}

type SavedFile struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type Accepted struct {
	JobID string      `json:"job_id"`
	Files []SavedFile `json:"files"`
}

type Intake struct {
	layout     *storage.Layout
	registry   *jobs.Registry
	dispatcher Dispatcher
	maxBytes   int64
	newID      func() string
}

func NewIntake(layout *storage.Layout, registry *jobs.Registry, dispatcher Dispatcher, maxBytes int64) *Intake {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Intake{
		layout:     layout,
		registry:   registry,
		dispatcher: dispatcher,
		maxBytes:   maxBytes,
		newID:      uuid.NewString,
	}
}

// Accept writes uploads under a fresh job's in/ directory, registers the job
// and dispatches it. The job exists only once every file is on disk. Empty
// streams are skipped; exceeding the cumulative byte ceiling purges the job
// area and returns ErrUploadTooLarge.
func (in *Intake) Accept(ctx context.Context, uploads []Upload) (Accepted, error) {
	jobID := in.newID()
	dir, err := in.layout.InputDir(jobID)
	if err != nil {
		return Accepted{}, fmt.Errorf("create input dir: %w", err)
	}
	purge := func() {
		if err := in.layout.Cleanup(jobID); err != nil {
			slog.Warn("purge upload failed", "job_id", jobID, "error", err)
		}
	}

	var total int64
	saved := make([]SavedFile, 0, len(uploads))
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			purge()
			return Accepted{}, err
		}
		f, err := saveUpload(dir, u, in.maxBytes-total)
		if err != nil {
			purge()
			return Accepted{}, err
		}
		if f.Size == 0 {
			continue
		}
		total += f.Size
		saved = append(saved, f)
	}
	if len(saved) == 0 {
		purge()
		return Accepted{}, ErrNoValidFiles
	}

	if _, err := in.registry.Create(jobID); err != nil {
		purge()
		return Accepted{}, err
	}
	if err := in.dispatcher.Dispatch(ctx, jobID); err != nil {
		slog.Error("dispatch failed", "job_id", jobID, "error", err)
		_, _ = in.registry.Update(jobID, func(j *jobs.Job) error {
			j.Status = jobs.StatusFailed
			j.Error = fmt.Sprintf("dispatch failed: %v", err)
			return nil
		})
		_ = in.layout.CleanupInput(jobID)
	}
	slog.Info("upload accepted", "job_id", jobID, "files", len(saved), "bytes", total)
	return Accepted{JobID: jobID, Files: saved}, nil
}

// saveUpload streams u into dir under a sanitized, collision-free name.
// Zero-byte uploads leave nothing behind.
func saveUpload(dir string, u Upload, remaining int64) (SavedFile, error) {
	path, err := storage.UniquePath(dir, storage.Sanitize(u.Name))
	if err != nil {
		return SavedFile{}, err
	}
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create upload file: %w", err)
	}
	defer func() {
		_ = dst.Close()
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, h), io.LimitReader(u.Body, remaining+1))
	if err != nil {
		return SavedFile{}, fmt.Errorf("write upload: %w", err)
	}
	if n > remaining {
		return SavedFile{}, ErrUploadTooLarge
	}
	if err := dst.Close(); err != nil {
		return SavedFile{}, err
	}
	if n == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return SavedFile{}, err
		}
		return SavedFile{}, nil
	}
	return SavedFile{Name: filepath.Base(path), Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}
