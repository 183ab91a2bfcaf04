package workflows

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"quizforge/internal/activities"
)

// TemporalDispatcher starts one JobIngestWorkflow per job id.
type TemporalDispatcher struct {
	client    tclient.Client
	taskQueue string
}

func NewTemporalDispatcher(c tclient.Client, taskQueue string) *TemporalDispatcher {
	return &TemporalDispatcher{client: c, taskQueue: taskQueue}
}

func WorkflowID(jobID string) string { return "job-" + jobID }

func (d *TemporalDispatcher) Dispatch(ctx context.Context, jobID string) error {
	_, err := d.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       WorkflowID(jobID),
		TaskQueue:                                d.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, JobIngestWorkflow, JobIngestInput{JobID: jobID})
	if err != nil {
		return fmt.Errorf("start job workflow: %w", err)
	}
	return nil
}

// StartWorker runs a worker for the job workflow and its activity in this
// process. The job registry is in memory, so the worker must share it.
func StartWorker(c tclient.Client, taskQueue string, a *activities.Activities) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})
	Register(w)
	activities.Register(w, a)
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("start temporal worker: %w", err)
	}
	return w, nil
}
