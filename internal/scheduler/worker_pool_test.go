package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeJob struct {
	id string
	fn func(ctx context.Context) error
}

func (j *fakeJob) ItemID() string      { return j.id }
func (j *fakeJob) Description() string { return "fake job" }

func (j *fakeJob) Execute(ctx context.Context) error {
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx)
}

func TestRunBatch_AllJobsSettle(t *testing.T) {
	pool := NewWorkerPool(2, 10)
	pool.Start()
	defer pool.Shutdown(time.Second)

	boom := errors.New("fetch failed")
	jobs := []Job{
		&fakeJob{id: "item1"},
		&fakeJob{id: "item2", fn: func(context.Context) error { return boom }},
		&fakeJob{id: "item3"},
	}

	results := pool.RunBatch(context.Background(), jobs)

	if len(results) != 3 {
		t.Fatalf("expected 3 settled results, got %d", len(results))
	}
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			if res.Job.ItemID() != "item2" {
				t.Errorf("unexpected failure for %s: %v", res.Job.ItemID(), res.Err)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly 1 failure, got %d", failed)
	}
}

func TestRunBatch_PanicIsConvertedToError(t *testing.T) {
	pool := NewWorkerPool(2, 10)
	pool.Start()
	defer pool.Shutdown(time.Second)

	jobs := []Job{
		&fakeJob{id: "item1", fn: func(context.Context) error { panic("nil map write") }},
		&fakeJob{id: "item2"},
	}

	results := pool.RunBatch(context.Background(), jobs)

	if len(results) != 2 {
		t.Fatalf("expected 2 settled results, got %d", len(results))
	}
	for _, res := range results {
		switch res.Job.ItemID() {
		case "item1":
			if res.Err == nil || !strings.Contains(res.Err.Error(), "panicked") {
				t.Errorf("expected panic converted to error, got %v", res.Err)
			}
		case "item2":
			if res.Err != nil {
				t.Errorf("expected sibling job unaffected by panic, got %v", res.Err)
			}
		}
	}
}

func TestRunBatch_JobTimeoutEnforced(t *testing.T) {
	pool := NewWorkerPool(1, 10)
	pool.Start()
	defer pool.Shutdown(time.Second)

	jobs := []Job{
		&fakeJob{id: "item1", fn: func(ctx context.Context) error {
			// A well-behaved job honors its deadline.
			deadline, ok := ctx.Deadline()
			if !ok {
				return errors.New("expected a deadline on the job context")
			}
			if time.Until(deadline) > jobTimeout {
				return errors.New("deadline exceeds the job timeout")
			}
			return nil
		}},
	}

	results := pool.RunBatch(context.Background(), jobs)
	if results[0].Err != nil {
		t.Errorf("unexpected error: %v", results[0].Err)
	}
}
