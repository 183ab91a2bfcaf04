package pipeline

import (
	"context"
	"log/slog"
	"sync"
)

// Runner processes a job by id.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// Dispatcher schedules a job for asynchronous processing. Only the id is
// handed over; everything else is read back from the registry and layout.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// GoDispatcher runs each job on its own goroutine. In-flight jobs are not
// cancelled when the dispatching request ends.
type GoDispatcher struct {
	runner Runner
	wg     sync.WaitGroup
}

func NewGoDispatcher(runner Runner) *GoDispatcher {
	return &GoDispatcher{runner: runner}
}

func (d *GoDispatcher) Dispatch(ctx context.Context, jobID string) error {
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("job goroutine panicked", "job_id", jobID, "panic", r)
			}
		}()
		if err := d.runner.Run(runCtx, jobID); err != nil {
			slog.Error("job run failed", "job_id", jobID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has returned.
func (d *GoDispatcher) Wait() { d.wg.Wait() }
