package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/config"
	"quizforge/internal/jobs"
)

func testConfig(t *testing.T, backend string) config.Config {
	cfg := config.Load()
	cfg.WorkDir = t.TempDir()
	cfg.VectorBackend = backend
	cfg.LLMProviders = "mock"
	cfg.EmbedProviders = "mock"
	cfg.EmbedDim = 16
	return cfg
}

func TestNewWiresSQLiteBackend(t *testing.T) {
	cfg := testConfig(t, BackendSQLite)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.FileExists(t, filepath.Join(cfg.WorkDir, "chroma", "index.db"))
	assert.Equal(t, []string{"mock"}, a.Providers.LLMNames())
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "cassandra"))
	require.ErrorContains(t, err, `unknown vector backend "cassandra"`)
}

func TestPruneRemovesJobFiles(t *testing.T) {
	cfg := testConfig(t, BackendMemory)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	old := uuid.NewString()
	_, err = a.Registry.Create(old)
	require.NoError(t, err)
	_, err = a.Registry.Update(old, func(j *jobs.Job) error {
		j.Status = jobs.StatusFailed
		return nil
	})
	require.NoError(t, err)
	dir, err := a.Layout.InputDir(old)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	assert.Equal(t, 0, a.Prune(time.Hour))
	assert.Equal(t, 1, a.Prune(-time.Second))
	_, ok := a.Registry.Get(old)
	assert.False(t, ok)
	assert.NoDirExists(t, filepath.Join(cfg.WorkDir, old))
}
