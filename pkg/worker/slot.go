/*
Package worker runs background tasks one at a time.

A Slot holds at most one running task. Starting a second task while the
first is still running fails with ErrBusy instead of queueing it. Tasks can
pace themselves through the slot's rate limiter.

Basic usage:

	slot, _ := worker.NewSlot(worker.Config{
		RateLimit: 10, // 10 paced operations per second
	})

	_ = slot.Start(ctx, worker.Task{
		ID: "job-1",
		Execute: func(ctx context.Context) error {
			for _, item := range items {
				if err := slot.Pace(ctx); err != nil {
					return err
				}
				process(item)
			}
			return nil
		},
	})

	err := slot.Wait()
*/
package worker

import (
	"context"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"
)

var (
	// ErrBusy is returned by Start while another task is running.
	ErrBusy = errors.Base("a task is already running")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.Base("slot is stopped")
)

// Task is a unit of work run by a Slot.
type Task struct {
	// ID identifies the task in stats and errors
	ID string

	// Execute performs the work. It must return soon after ctx is done.
	Execute func(ctx context.Context) error

	// OnDone, when set, is called with the task's error once the slot is
	// free again, before Wait returns.
	OnDone func(err error)
}

// Config holds the configuration for a slot
type Config struct {
	// RateLimit is the maximum number of Pace calls per second (0 for unlimited)
	RateLimit int

	// ShutdownTimeout bounds how long Stop waits for the running task.
	// Zero means 500ms.
	ShutdownTimeout time.Duration
}

// Slot defines the interface for a single-occupancy task runner
type Slot interface {
	// Start runs task in the background. It fails with ErrBusy when a task
	// is already running.
	Start(ctx context.Context, task Task) error

	// Pace blocks until the rate limiter admits one more operation.
	Pace(ctx context.Context) error

	// Wait blocks until the current task finishes and returns its error.
	// It returns nil immediately when no task was started.
	Wait() error

	// Busy reports whether a task is running.
	Busy() bool

	// GetStats returns current statistics about the slot
	GetStats() Stats

	// Status returns the current status of the slot
	Status() Status

	// Stop cancels the running task, waits for it and refuses further work.
	Stop() error
}

type slot struct {
	config    Config
	limiter   *rate.Limiter
	startTime time.Time

	mu      sync.Mutex
	stopped bool
	current string
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	stats   Stats
}

// NewSlot creates a new slot with the given configuration
func NewSlot(config Config) (Slot, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 500 * time.Millisecond
	}

	return &slot{
		config:    config,
		limiter:   limiter,
		startTime: time.Now(),
		stats: Stats{
			Status: StatusIdle,
		},
	}, nil
}

// validateConfig checks if the slot configuration is valid
func validateConfig(config Config) error {
	if config.RateLimit < 0 {
		return errors.New("rate limit must be non-negative")
	}
	if config.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must be non-negative")
	}
	return nil
}

func (s *slot) Start(ctx context.Context, task Task) error {
	if task.Execute == nil {
		return errors.New("task has no Execute function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.current != "" {
		return errors.Errorf("cannot start %s while %s runs: %w", task.ID, s.current, ErrBusy)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	s.current = task.ID
	if s.current == "" {
		s.current = "task"
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	s.err = nil
	s.stats.Status = StatusProcessing

	go s.run(taskCtx, task, s.done)
	return nil
}

func (s *slot) run(ctx context.Context, task Task, done chan struct{}) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task %s panicked: %v", task.ID, r)
		}

		s.mu.Lock()
		s.cancel()
		if err != nil {
			s.stats.FailedTasks++
		} else {
			s.stats.CompletedTasks++
		}
		s.err = err
		s.current = ""
		if !s.stopped {
			s.stats.Status = StatusIdle
		}
		s.mu.Unlock()

		if task.OnDone != nil {
			task.OnDone(err)
		}
		close(done)
	}()

	err = task.Execute(ctx)
}

func (s *slot) Pace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return errors.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (s *slot) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != ""
}

func (s *slot) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.CurrentTask = s.current
	stats.Uptime = time.Since(s.startTime)
	return stats
}

func (s *slot) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Status
}

func (s *slot) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true

	done := s.done
	if s.current == "" || done == nil {
		s.stats.Status = StatusStopped
		s.mu.Unlock()
		return nil
	}
	s.stats.Status = StatusShuttingDown
	s.cancel()
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(s.config.ShutdownTimeout):
		return errors.New("shutdown timed out")
	}

	s.mu.Lock()
	s.stats.Status = StatusStopped
	s.mu.Unlock()
	return nil
}
