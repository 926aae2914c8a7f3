package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	cycleDuration, _ = jobMeter.Float64Histogram("scheduler.cycle.duration", metric.WithDescription("Sync cycle duration in seconds"), metric.WithUnit("s"))
	cycleTotal, _    = jobMeter.Int64Counter("scheduler.cycle.total", metric.WithDescription("Total sync cycles by outcome"))
)

// Clock abstracts time for the scheduler so tests can simulate N cycles
// without real sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler drives every linked item through its sync jobs on a fixed
// interval, forever. A cycle never fails the loop: jobs settle as success
// or failure, the aggregate is logged, and the next cycle is scheduled
// from this cycle's completion.
type Scheduler struct {
	workerPool   *WorkerPool
	interval     time.Duration
	runOnStartup bool
	jobProvider  func(context.Context) ([]Job, error)
	clock        Clock

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Config holds configuration for the scheduler.
type Config struct {
	Interval     time.Duration
	WorkerCount  int
	QueueSize    int
	RunOnStartup bool
	JobProvider  func(context.Context) ([]Job, error)

	// Clock may be nil; the wall clock is used.
	Clock Clock
}

// New creates a scheduler with the given configuration.
func New(config Config) *Scheduler {
	clock := config.Clock
	if clock == nil {
		clock = realClock{}
	}

	log.Printf("Scheduler initialized: interval=%v workers=%d", config.Interval, config.WorkerCount)

	return &Scheduler{
		workerPool:   NewWorkerPool(config.WorkerCount, config.QueueSize),
		interval:     config.Interval,
		runOnStartup: config.RunOnStartup,
		jobProvider:  config.JobProvider,
		clock:        clock,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the worker pool and the scheduling loop.
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")
	s.workerPool.Start()
	go s.loop()
	log.Println("Scheduler started")
}

// loop runs cycles until Shutdown. The interval is measured from each
// cycle's completion, not aligned to the wall clock, so a slow cycle
// pushes the next one back instead of stacking up.
func (s *Scheduler) loop() {
	defer close(s.done)

	if s.runOnStartup {
		log.Println("Scheduler: Running initial cycle on startup")
		s.runCycle()
	}

	for {
		select {
		case <-s.stop:
			log.Println("Scheduler loop: stop requested, shutting down")
			return
		case <-s.clock.After(s.interval):
			s.runCycle()
		}
	}
}

// runCycle fetches the current job set and runs it to completion. Nothing
// a job does can propagate out of here; the loop always schedules again.
func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := s.clock.Now()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		log.Printf("Scheduler: Failed to fetch jobs: %v", err)
		cycleTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "provider_error")))
		return
	}
	if len(jobs) == 0 {
		log.Println("Scheduler: No jobs to process this cycle")
		cycleTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "empty")))
		return
	}

	log.Printf("Scheduler: Running cycle with %d jobs", len(jobs))
	results := s.workerPool.RunBatch(ctx, jobs)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	elapsed := s.clock.Now().Sub(start)
	outcome := "success"
	if failed > 0 {
		outcome = "partial_failure"
	}
	cycleTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	cycleDuration.Record(ctx, elapsed.Seconds())

	log.Printf("Scheduler: Cycle complete in %v - jobs=%d succeeded=%d failed=%d",
		elapsed, len(results), len(results)-failed, failed)
}

// Shutdown stops the scheduling loop and drains the worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	log.Println("Scheduler: Initiating graceful shutdown...")

	s.stopOnce.Do(func() { close(s.stop) })

	select {
	case <-s.done:
		log.Println("Scheduler: Loop stopped gracefully")
	case <-time.After(timeout):
		log.Println("Scheduler: Timeout waiting for loop to stop")
	}

	s.workerPool.Shutdown(timeout)
	log.Println("Scheduler: Shutdown complete")
}
