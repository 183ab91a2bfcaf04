package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"quizforge/internal/jobs"
	"quizforge/internal/pipeline"
)

type Activities struct {
	runner   pipeline.Runner
	registry *jobs.Registry
}

func New(runner pipeline.Runner, registry *jobs.Registry) *Activities {
	return &Activities{runner: runner, registry: registry}
}

// ProcessJobActivity runs the orchestrator for one job and reports its
// terminal state. A failed job is a successful activity; only an unknown
// job id is an error, and it is never retried.
func (a *Activities) ProcessJobActivity(ctx context.Context, in ProcessJobInput) (ProcessJobOutput, error) {
	logger := activity.GetLogger(ctx)
	if err := a.runner.Run(ctx, in.JobID); err != nil {
		if errors.Is(err, pipeline.ErrJobNotFound) {
			return ProcessJobOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "JobNotFound", err)
		}
		return ProcessJobOutput{}, fmt.Errorf("run job %s: %w", in.JobID, err)
	}
	j, ok := a.registry.Get(in.JobID)
	if !ok {
		return ProcessJobOutput{}, temporal.NewNonRetryableApplicationError("job evicted during run", "JobNotFound", nil)
	}
	logger.Info("job processed", "job_id", j.ID, "status", j.Status, "chunks_indexed", j.ChunksIndexed)
	return ProcessJobOutput{
		JobID:         j.ID,
		Status:        string(j.Status),
		ChunksIndexed: j.ChunksIndexed,
		Error:         j.Error,
	}, nil
}
