package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"quizforge/internal/util"
)

const (
	inputDirName  = "in"
	outputDirName = "out"
	indexDirName  = "chroma"

	maxFilenameLen  = 200
	fallbackName    = "file"
	maxCollisionTry = 10000
)

// ErrInvalidJobID marks an id that is not a canonical job UUID.
var ErrInvalidJobID = errors.New("invalid job id")

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Layout maps job ids onto <root>/<jobId>/{in,out}. The shared vector
// index lives beside the job areas under <root>/chroma.
type Layout struct {
	root string
}

func NewLayout(root string) (*Layout, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required: %w", util.ErrInvalidArgument)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := util.EnsureDir(abs); err != nil {
		return nil, err
	}
	return &Layout{root: abs}, nil
}

func (l *Layout) Root() string { return l.root }

// ValidateJobID accepts only the canonical lower-case UUID form that intake
// hands out.
func ValidateJobID(jobID string) error {
	u, err := uuid.Parse(jobID)
	if err != nil || u.String() != jobID {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return nil
}

func (l *Layout) JobDir(jobID string) (string, error) {
	if err := ValidateJobID(jobID); err != nil {
		return "", err
	}
	return filepath.Join(l.root, jobID), nil
}

// InputPath and OutputPath only build paths; callers that touch the
// filesystem go through the validating methods below.
func (l *Layout) InputPath(jobID string) string {
	return filepath.Join(l.root, filepath.Base(jobID), inputDirName)
}

func (l *Layout) OutputPath(jobID string) string {
	return filepath.Join(l.root, filepath.Base(jobID), outputDirName)
}

// InputDir creates (if needed) and returns the job's input directory.
func (l *Layout) InputDir(jobID string) (string, error) {
	if err := ValidateJobID(jobID); err != nil {
		return "", err
	}
	p := l.InputPath(jobID)
	return p, util.EnsureDir(p)
}

// OutputDir creates (if needed) and returns the job's output directory.
func (l *Layout) OutputDir(jobID string) (string, error) {
	if err := ValidateJobID(jobID); err != nil {
		return "", err
	}
	p := l.OutputPath(jobID)
	return p, util.EnsureDir(p)
}

func (l *Layout) HasInput(jobID string) bool {
	return ValidateJobID(jobID) == nil && util.DirExists(l.InputPath(jobID))
}

func (l *Layout) IndexDir() (string, error) {
	p := filepath.Join(l.root, indexDirName)
	return p, util.EnsureDir(p)
}

// Cleanup removes the whole job area. Absent or partial directories are fine.
func (l *Layout) Cleanup(jobID string) error {
	dir, err := l.JobDir(jobID)
	if err != nil {
		return err
	}
	return util.RemoveTree(dir)
}

// CleanupInput removes only the uploaded inputs, keeping out/.
func (l *Layout) CleanupInput(jobID string) error {
	if err := ValidateJobID(jobID); err != nil {
		return err
	}
	return util.RemoveTree(l.InputPath(jobID))
}

// Sanitize maps a client-supplied filename onto [A-Za-z0-9._-]. Separators
// become underscores, so the result never leaves the target directory.
func Sanitize(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	if name == "" || name == "." || name == ".." {
		return fallbackName
	}
	return name
}

// UniquePath returns dir/name, or dir/stem_N.ext when that path is taken.
func UniquePath(dir, name string) (string, error) {
	p := filepath.Join(dir, name)
	if _, err := os.Lstat(p); os.IsNotExist(err) {
		return p, nil
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i < maxCollisionTry; i++ {
		p = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Lstat(p); os.IsNotExist(err) {
			return p, nil
		}
	}
	return "", fmt.Errorf("no free filename for %s in %s", name, dir)
}
