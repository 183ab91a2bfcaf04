package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"quizforge/internal/activities"
)

const (
	QueryGetJobStatus = "GetJobStatus"

	processJobTimeout = 30 * time.Minute
)

// JobIngestWorkflow runs ProcessJobActivity exactly once. Job failures are
// recorded in the registry by the activity, so retrying would only repeat a
// deterministic failure on inputs that have already been removed.
func JobIngestWorkflow(ctx workflow.Context, input JobIngestInput) (activities.ProcessJobOutput, error) {
	status := "running"
	if err := workflow.SetQueryHandler(ctx, QueryGetJobStatus, func() (string, error) {
		return status, nil
	}); err != nil {
		return activities.ProcessJobOutput{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: processJobTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out activities.ProcessJobOutput
	if err := workflow.ExecuteActivity(ctx, "ProcessJobActivity", activities.ProcessJobInput{JobID: input.JobID}).Get(ctx, &out); err != nil {
		status = "error"
		return activities.ProcessJobOutput{}, err
	}
	status = out.Status
	workflow.GetLogger(ctx).Info("job workflow finished", "job_id", input.JobID, "status", out.Status)
	return out, nil
}
