// Package scheduler runs periodic maintenance callbacks.
//
// Every task has its own interval, but callbacks never overlap: each run
// holds a scheduler-wide lock, so maintenance behaves like one more serialized
// tick callback. All tasks stop when the context passed to Start is cancelled
// or Stop is called.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrStarted    = errors.New("scheduler: already started")
	ErrNotStarted = errors.New("scheduler: not started")
)

type task struct {
	name     string
	interval time.Duration
	run      func(context.Context)
}

// Scheduler owns a set of periodic tasks.
type Scheduler struct {
	logger *slog.Logger

	tasks []task

	runMu   sync.Mutex
	started atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger, done: make(chan struct{})}
}

// Every registers fn to run every interval once the scheduler starts.
// A non-positive interval disables the task. Every must be called before Start.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		s.logger.Debug("Periodic task disabled", "task", name)
		return
	}
	s.tasks = append(s.tasks, task{name: name, interval: interval, run: fn})
}

// Tasks returns the names of the registered tasks in registration order.
func (s *Scheduler) Tasks() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.name
	}
	return names
}

// Start launches one ticker goroutine per task.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)

	eg, ctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		eg.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}
	go func() {
		defer close(s.done)
		_ = eg.Wait()
	}()

	s.logger.Info("Scheduler started", "tasks", len(s.tasks))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, t task) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t task) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Periodic task panicked", "task", t.name, "panic", fmt.Sprint(r))
		}
	}()
	t.run(ctx)
}

// Stop cancels every task and waits for in-flight runs to return, or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	if s.stopped.CompareAndSwap(false, true) {
		s.cancel()
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
