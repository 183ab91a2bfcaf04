package pipeline

import (
	"fmt"

	"quizforge/internal/jobs"
	"quizforge/internal/util"
)

// ResultPath returns the artifact of a SUCCEEDED job.
func ResultPath(registry *jobs.Registry, jobID string) (string, error) {
	j, ok := registry.Get(jobID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	switch j.Status {
	case jobs.StatusSucceeded:
	case jobs.StatusFailed:
		return "", fmt.Errorf("%w: %s", ErrJobFailed, j.Error)
	default:
		return "", ErrResultNotReady
	}
	if j.ResultRef == "" || !util.FileExists(j.ResultRef) {
		return "", ErrResultExpired
	}
	return j.ResultRef, nil
}
