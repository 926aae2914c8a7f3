package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives the scheduler loop from the test: every call to After
// is announced on afterCalled and fires when the test sends on tick.
type fakeClock struct {
	tick        chan time.Time
	afterCalled chan time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		tick:        make(chan time.Time),
		afterCalled: make(chan time.Duration, 16),
	}
}

func (c *fakeClock) Now() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.afterCalled <- d
	return c.tick
}

func waitForExecutions(t *testing.T, executed chan string, n int) map[string]int {
	t.Helper()
	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		select {
		case id := <-executed:
			counts[id]++
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for execution %d of %d", i+1, n)
		}
	}
	return counts
}

func TestScheduler_FailingItemDoesNotStopSiblingsOrNextCycle(t *testing.T) {
	executed := make(chan string, 64)
	jobProvider := func(context.Context) ([]Job, error) {
		return []Job{
			&fakeJob{id: "item1", fn: func(context.Context) error { executed <- "item1"; return nil }},
			&fakeJob{id: "item2", fn: func(context.Context) error { executed <- "item2"; return errors.New("provider down") }},
			&fakeJob{id: "item3", fn: func(context.Context) error { executed <- "item3"; return nil }},
		}, nil
	}

	clock := newFakeClock()
	s := New(Config{
		Interval:     time.Hour,
		WorkerCount:  3,
		QueueSize:    16,
		RunOnStartup: true,
		JobProvider:  jobProvider,
		Clock:        clock,
	})
	s.Start()
	defer s.Shutdown(time.Second)

	// Startup cycle: all three items run even though item2 fails.
	counts := waitForExecutions(t, executed, 3)
	for _, id := range []string{"item1", "item2", "item3"} {
		if counts[id] != 1 {
			t.Errorf("expected %s to run once in the first cycle, ran %d times", id, counts[id])
		}
	}

	// The loop must schedule the next cycle after the failure, measured
	// from cycle completion.
	select {
	case d := <-clock.afterCalled:
		if d != time.Hour {
			t.Errorf("expected next cycle scheduled after 1h, got %v", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler never armed the next cycle")
	}

	clock.tick <- clock.Now()

	counts = waitForExecutions(t, executed, 3)
	if counts["item2"] != 1 {
		t.Errorf("expected failed item retried on the next cycle, ran %d times", counts["item2"])
	}
}

func TestScheduler_NoStartupCycleWaitsForInterval(t *testing.T) {
	executed := make(chan string, 16)
	jobProvider := func(context.Context) ([]Job, error) {
		return []Job{&fakeJob{id: "item1", fn: func(context.Context) error { executed <- "item1"; return nil }}}, nil
	}

	clock := newFakeClock()
	s := New(Config{
		Interval:    time.Hour,
		WorkerCount: 1,
		QueueSize:   4,
		JobProvider: jobProvider,
		Clock:       clock,
	})
	s.Start()
	defer s.Shutdown(time.Second)

	select {
	case <-clock.afterCalled:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler never armed a cycle")
	}
	select {
	case id := <-executed:
		t.Fatalf("expected no jobs before the first tick, got %s", id)
	default:
	}

	clock.tick <- clock.Now()
	waitForExecutions(t, executed, 1)
}

func TestScheduler_ProviderErrorDoesNotStopLoop(t *testing.T) {
	calls := make(chan struct{}, 16)
	jobProvider := func(context.Context) ([]Job, error) {
		calls <- struct{}{}
		return nil, errors.New("store unavailable")
	}

	clock := newFakeClock()
	s := New(Config{
		Interval:     time.Hour,
		WorkerCount:  1,
		QueueSize:    4,
		RunOnStartup: true,
		JobProvider:  jobProvider,
		Clock:        clock,
	})
	s.Start()
	defer s.Shutdown(time.Second)

	<-calls
	select {
	case <-clock.afterCalled:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler stopped after a job provider error")
	}

	clock.tick <- clock.Now()
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler never retried after a job provider error")
	}
}

func TestScheduler_ShutdownStopsLoop(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{
		Interval:    time.Hour,
		WorkerCount: 1,
		QueueSize:   4,
		JobProvider: func(context.Context) ([]Job, error) { return nil, nil },
		Clock:       clock,
	})
	s.Start()

	<-clock.afterCalled
	s.Shutdown(time.Second)

	select {
	case <-s.done:
	default:
		t.Error("expected scheduler loop to have exited after shutdown")
	}
}
