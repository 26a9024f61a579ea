package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/desertthunder/subsync/internal/library"
	"github.com/desertthunder/subsync/internal/shared"
	"golang.org/x/time/rate"
)

// batchJob is one unit of work: an item, plus its play events for
// history replay.
type batchJob struct {
	item   *library.Item
	events []HistoryEvent
}

// runBatch executes op for every job across a bounded worker pool.
//
// Per-item failures are recorded and do not abort the batch. An
// authentication failure is fatal: dispatch stops, in-flight items
// finish and report, undispatched items are recorded as skipped, and
// the auth error is returned alongside the partial result. Every input
// job yields exactly one outcome; completion order is unspecified.
func (e *SyncEngine) runBatch(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	operation string,
	phase Phase,
	jobs []batchJob,
	op func(context.Context, batchJob) Outcome,
) (*BatchResult, error) {
	result := &BatchResult{
		RunID:     shared.GenerateID(),
		Operation: operation,
		Total:     len(jobs),
		Outcomes:  make([]Outcome, 0, len(jobs)),
	}
	if len(jobs) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(e.opts.RateLimit), 1)

	jobsCh := make(chan batchJob, len(jobs))
	resultsCh := make(chan Outcome, len(jobs))

	// Closed exactly once on the first fatal error; workers stop
	// starting new items, the dispatcher stops admitting them.
	stop := make(chan struct{})
	var stopOnce sync.Once
	var fatalErr error

	halt := func(err error) {
		stopOnce.Do(func() {
			fatalErr = err
			close(stop)
		})
	}

	// Per-item work is detached from cancellation: an item that has
	// started finishes all of its requests instead of being abandoned
	// mid-flight. Admission below still stops on ctx.Done, and the
	// client's per-call timeout bounds each request.
	opCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsCh {
				select {
				case <-stop:
					resultsCh <- skippedOutcome(job.item, "batch aborted before item started")
					continue
				default:
				}

				out := op(opCtx, job)
				if errors.Is(out.Err, shared.ErrAuthFailed) {
					halt(out.Err)
				}
				resultsCh <- out
			}
		}()
	}

	go func() {
		defer close(jobsCh)
		for i, job := range jobs {
			select {
			case <-stop:
				e.skipRemaining(resultsCh, jobs[i:])
				return
			case <-ctx.Done():
				halt(ctx.Err())
				e.skipRemaining(resultsCh, jobs[i:])
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				halt(err)
				e.skipRemaining(resultsCh, jobs[i:])
				return
			}

			jobsCh <- job
		}
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	e.sendProgress(prog, startUpdate(phase, len(jobs)))

	completed := 0
	for out := range resultsCh {
		completed++
		result.Outcomes = append(result.Outcomes, out)

		switch out.Status {
		case StatusSuccess:
			result.Succeeded++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}

		e.sendProgress(prog, completedUpdate(phase, completed, len(jobs), out))
	}

	if fatalErr != nil {
		e.logger.Error("batch aborted", "operation", operation, "error", fatalErr)
	}
	return result, fatalErr
}

// skipRemaining records an outcome for jobs that never started.
func (e *SyncEngine) skipRemaining(resultsCh chan<- Outcome, remaining []batchJob) {
	for _, job := range remaining {
		resultsCh <- skippedOutcome(job.item, "batch aborted before item started")
	}
}

// sendProgress sends a progress update through the channel without
// blocking. Reporting never stalls execution.
func (e *SyncEngine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
