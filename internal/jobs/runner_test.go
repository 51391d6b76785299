package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestRunnerRunsJobRepeatedly(t *testing.T) {
	r := NewRunner(nil)
	defer r.Stop()

	var runs atomic.Int64
	if err := r.Every("tick", 50*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Start()

	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 2 })
}

func TestRunnerKeepsRunningAfterErrorsAndPanics(t *testing.T) {
	r := NewRunner(nil)
	defer r.Stop()

	var runs atomic.Int64
	if err := r.Every("flaky", 40*time.Millisecond, func(context.Context) error {
		n := runs.Add(1)
		if n == 1 {
			panic("boom")
		}
		return errors.New("still failing")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Start()

	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 3 })
}

func TestRunnerRejectsDuplicateAndInvalid(t *testing.T) {
	r := NewRunner(nil)
	defer r.Stop()

	noop := func(context.Context) error { return nil }
	if err := r.Every("sync", time.Minute, noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Every("sync", time.Minute, noop); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
	if err := r.Every("zero", 0, noop); !errors.Is(err, ErrInterval) {
		t.Fatalf("expected ErrInterval, got %v", err)
	}
	if err := r.Remove("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRemoveStopsJob(t *testing.T) {
	r := NewRunner(nil)
	defer r.Stop()

	var runs atomic.Int64
	if err := r.Every("poll", 30*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Start()
	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 1 })

	if err := r.Remove("poll"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(r.Names()) != 0 {
		t.Fatalf("expected no jobs, got %v", r.Names())
	}
	time.Sleep(60 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(120 * time.Millisecond)
	if runs.Load() != settled {
		t.Fatalf("job kept running after remove: %d -> %d", settled, runs.Load())
	}
}

func TestStopCancelsJobContext(t *testing.T) {
	r := NewRunner(nil)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	var once atomic.Bool
	if err := r.Every("long", 20*time.Millisecond, func(ctx context.Context) error {
		if !once.CompareAndSwap(false, true) {
			return nil
		}
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	r.Stop()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context not cancelled on stop")
	}
}
