package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	jobTracer      = otel.Tracer("budget/scheduler")
	jobMeter       = otel.Meter("budget/scheduler")
	jobDuration, _ = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _    = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
)

// jobTimeout bounds a single job so a hung provider call cannot stall the
// whole cycle.
const jobTimeout = 120 * time.Second

// WorkerPool manages a pool of concurrent workers that process sync jobs.
// Jobs never fail the pool: panics and errors are captured into JobResults
// and reported back to the submitting cycle.
type WorkerPool struct {
	workerCount int
	tasks       chan *task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

type task struct {
	job  Job
	done func(JobResult)
}

// NewWorkerPool creates a new worker pool.
// workerCount: number of concurrent workers (goroutines)
// queueSize: buffer size for the task channel
func NewWorkerPool(workerCount, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		tasks:       make(chan *task, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// worker is the main loop for each worker goroutine. It continuously
// processes tasks from the channel until shutdown.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	log.Printf("Worker %d started", id)

	for {
		select {
		case <-wp.ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return

		case t, ok := <-wp.tasks:
			if !ok {
				log.Printf("Worker %d: task channel closed", id)
				return
			}
			err := wp.processJob(id, t.job)
			t.done(JobResult{Job: t.job, Err: err})
		}
	}
}

// RunBatch submits a batch of jobs and blocks until every one has settled,
// returning one result per job. Jobs that could not be submitted because
// the pool is shutting down settle with the context error.
func (wp *WorkerPool) RunBatch(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, 0, len(jobs))
	var mu sync.Mutex
	var batch sync.WaitGroup

	record := func(res JobResult) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		batch.Done()
	}

	for _, job := range jobs {
		batch.Add(1)
		t := &task{job: job, done: record}
		select {
		case wp.tasks <- t:
		case <-ctx.Done():
			record(JobResult{Job: job, Err: ctx.Err()})
		case <-wp.ctx.Done():
			record(JobResult{Job: job, Err: wp.ctx.Err()})
		}
	}

	batch.Wait()
	return results
}

// processJob executes a single job with panic recovery, logging, and
// telemetry. A panicking job is converted to an error result; it must
// never take a worker down with it.
func (wp *WorkerPool) processJob(workerID int, job Job) (err error) {
	log.Printf("Worker %d: Processing %s for item %s", workerID, job.Description(), job.ItemID())

	ctx, cancel := context.WithTimeout(wp.ctx, jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.String("job.item_id", job.ItemID()),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			log.Printf("Worker %d: Panic in %s for item %s: %v\n%s",
				workerID, job.Description(), job.ItemID(), r, debug.Stack())
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		} else {
			jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
		}
		jobDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if err = job.Execute(ctx); err != nil {
		log.Printf("Worker %d: Error processing %s for item %s: %v",
			workerID, job.Description(), job.ItemID(), err)
		return err
	}

	log.Printf("Worker %d: Successfully completed %s for item %s",
		workerID, job.Description(), job.ItemID())
	return nil
}

// Shutdown gracefully stops the worker pool. It closes the task channel,
// waits for workers to finish, then cancels the context.
func (wp *WorkerPool) Shutdown(timeout time.Duration) {
	log.Printf("Worker pool: Initiating graceful shutdown with %v timeout", timeout)

	close(wp.tasks)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Worker pool: All workers finished gracefully")
	case <-time.After(timeout):
		log.Println("Worker pool: Timeout reached, forcing shutdown")
	}

	wp.cancel()
	log.Println("Worker pool: Shutdown complete")
}
