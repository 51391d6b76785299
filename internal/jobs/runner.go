// Package jobs runs periodic background work (snooze expiry polling, periodic
// sync) on a gocron scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

var (
	ErrJobExists   = errors.New("jobs: job already registered")
	ErrJobNotFound = errors.New("jobs: job not found")
	ErrInterval    = errors.New("jobs: interval must be positive")
)

// Func is one run of a job. The context is cancelled when the runner stops.
type Func func(ctx context.Context) error

type Runner struct {
	mu      sync.Mutex
	sched   *gocron.Scheduler
	jobs    map[string]*gocron.Job
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	logger  *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	sched := gocron.NewScheduler(time.UTC)
	sched.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sched:  sched,
		jobs:   make(map[string]*gocron.Job),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("component", "jobs"),
	}
}

// Every registers fn under name to run every interval. Overlapping runs of the
// same job are skipped.
func (r *Runner) Every(name string, interval time.Duration, fn Func) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInterval, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	job, err := r.sched.Every(interval).Tag(name).Do(r.wrap(name, fn))
	if err != nil {
		return fmt.Errorf("jobs: schedule %s: %w", name, err)
	}
	r.jobs[name] = job
	r.logger.Debug("job registered", "job", name, "interval", interval)
	return nil
}

func (r *Runner) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[name]; !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if err := r.sched.RemoveByTag(name); err != nil {
		return fmt.Errorf("jobs: remove %s: %w", name, err)
	}
	delete(r.jobs, name)
	return nil
}

func (r *Runner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		out = append(out, name)
	}
	return out
}

func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.ctx.Err() != nil {
		return
	}
	r.sched.StartAsync()
	r.running = true
}

// Stop cancels in-flight runs and waits for the scheduler to halt. The runner
// cannot be restarted.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel()
	if !r.running {
		return
	}
	r.sched.Stop()
	r.running = false
}

func (r *Runner) wrap(name string, fn Func) func() {
	return func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("job panicked", "job", name, "panic", rec)
			}
		}()
		if r.ctx.Err() != nil {
			return
		}
		started := time.Now()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("job failed", "job", name, "err", err)
			return
		}
		r.logger.Debug("job finished", "job", name, "took", time.Since(started))
	}
}
