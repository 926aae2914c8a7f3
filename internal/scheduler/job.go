package scheduler

import "context"

// Job represents a unit of work that can be executed by the worker pool.
// This interface allows for extensibility - different types of jobs can be
// implemented (e.g., sync jobs, cleanup jobs).
type Job interface {
	// Execute runs the job with the given context.
	// Context should be respected for cancellation and timeouts.
	Execute(ctx context.Context) error

	// ItemID returns the linked item this job operates on.
	// Useful for logging and tracking which item's data is being processed.
	ItemID() string

	// Description returns a human-readable description of the job.
	// Used for logging purposes.
	Description() string
}

// JobResult is the settled outcome of one job. A cycle's results always
// cover every submitted job, failed or not.
type JobResult struct {
	Job Job
	Err error
}
