package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"report.pdf":          "report.pdf",
		"my report (v2).docx": "my_report_v2_.docx",
		"../../etc/passwd":    ".._.._etc_passwd",
		`C:\temp\a.txt`:       "C_temp_a.txt",
		"":                    "file",
		"..":                  "file",
		"日本語.txt":             "_.txt",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
	assert.Len(t, Sanitize(strings.Repeat("a", 500)), 200)
}

func TestLayoutDirsAreIdempotent(t *testing.T) {
	l, err := NewLayout(t.TempDir())
	require.NoError(t, err)
	job := uuid.NewString()

	in1, err := l.InputDir(job)
	require.NoError(t, err)
	in2, err := l.InputDir(job)
	require.NoError(t, err)
	assert.Equal(t, in1, in2)
	assert.Equal(t, filepath.Join(l.Root(), job, "in"), in1)

	out, err := l.OutputDir(job)
	require.NoError(t, err)
	assert.DirExists(t, out)
	assert.True(t, l.HasInput(job))
	assert.False(t, l.HasInput(uuid.NewString()))
}

func TestCleanupToleratesMissingAndPartialDirs(t *testing.T) {
	l, err := NewLayout(t.TempDir())
	require.NoError(t, err)
	job := uuid.NewString()

	require.NoError(t, l.Cleanup(uuid.NewString()))
	require.NoError(t, l.CleanupInput(uuid.NewString()))

	in, err := l.InputDir(job)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.txt"), []byte("x"), 0o644))
	out, err := l.OutputDir(job)
	require.NoError(t, err)

	require.NoError(t, l.CleanupInput(job))
	require.NoError(t, l.CleanupInput(job))
	assert.NoDirExists(t, in)
	assert.DirExists(t, out)

	require.NoError(t, l.Cleanup(job))
	require.NoError(t, l.Cleanup(job))
	dir, err := l.JobDir(job)
	require.NoError(t, err)
	assert.NoDirExists(t, dir)
}

func TestNonJobIDsNeverReachTheFilesystem(t *testing.T) {
	l, err := NewLayout(t.TempDir())
	require.NoError(t, err)
	index, err := l.IndexDir()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(index, "index.db"), []byte("db"), 0o644))

	upper := strings.ToUpper(uuid.NewString())
	for _, id := range []string{"chroma", "", ".", "..", "../chroma", "job-1", upper, "{" + uuid.NewString() + "}"} {
		_, err := l.JobDir(id)
		assert.ErrorIs(t, err, ErrInvalidJobID, "JobDir(%q)", id)
		_, err = l.InputDir(id)
		assert.ErrorIs(t, err, ErrInvalidJobID, "InputDir(%q)", id)
		_, err = l.OutputDir(id)
		assert.ErrorIs(t, err, ErrInvalidJobID, "OutputDir(%q)", id)
		assert.ErrorIs(t, l.Cleanup(id), ErrInvalidJobID, "Cleanup(%q)", id)
		assert.ErrorIs(t, l.CleanupInput(id), ErrInvalidJobID, "CleanupInput(%q)", id)
		assert.False(t, l.HasInput(id))
	}
	assert.FileExists(t, filepath.Join(index, "index.db"))
	assert.NoDirExists(t, filepath.Join(l.Root(), "job-1"))
}

func TestUniquePathAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	p, err := UniquePath(dir, "notes.txt")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte("1"), 0o644))

	p2, err := UniquePath(dir, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes_1.txt"), p2)
}

func TestNewLayoutRequiresRoot(t *testing.T) {
	_, err := NewLayout("  ")
	require.Error(t, err)
}
