package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUIZFORGE_MAX_UPLOAD_MB", "")
	t.Setenv("QUIZFORGE_CHUNK_SIZE", "")
	cfg := Load()
	assert.Equal(t, int64(200<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 1200, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 12000, cfg.ContextBudget)
	assert.Equal(t, 60*time.Second, cfg.GeneratorTimeout)
	assert.False(t, cfg.OCREnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUIZFORGE_MAX_UPLOAD_MB", "5")
	t.Setenv("QUIZFORGE_OCR", "true")
	t.Setenv("QUIZFORGE_VECTOR_BACKEND", "Memory")
	t.Setenv("QUIZFORGE_CHUNK_SIZE", "not-a-number")
	cfg := Load()
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.True(t, cfg.OCREnabled)
	assert.Equal(t, "memory", cfg.VectorBackend)
	assert.Equal(t, 1200, cfg.ChunkSize)
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("job finished", "job_id", "abc")
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "job_id=abc")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "job finished", rec["msg"])
	assert.NotContains(t, stderr.String(), "hidden")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel(""))
}
