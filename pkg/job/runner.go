package job

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sonemaro/sortitor/pkg/collision"
	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/scanner"
	"github.com/sonemaro/sortitor/pkg/transfer"
	"github.com/sonemaro/sortitor/pkg/worker"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// State is the lifecycle state of a job.
type State int32

const (
	Idle State = iota
	Scanning
	Processing
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Processing:
		return "processing"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal reports whether s is Completed, Cancelled or Failed.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Result is the terminal outcome of a job.
type Result struct {
	State  State
	Counts Counts
	Total  int
	// Reason and Err are set for Failed results only.
	Reason string
	Err    error
}

// String renders the result as completed(p,s,e), cancelled(p,s,e) or
// failed(reason).
func (r Result) String() string {
	switch r.State {
	case Completed, Cancelled:
		return fmt.Sprintf("%s(%d,%d,%d)", r.State, r.Counts.Processed, r.Counts.Skipped, r.Counts.Errored)
	case Failed:
		return fmt.Sprintf("failed(%s)", r.Reason)
	}
	return r.State.String()
}

// Config holds runner options.
type Config struct {
	// Scan configures source enumeration. Exclude is extended with the
	// target when it lies inside the source.
	Scan scanner.Config

	// EventBuffer is the capacity of the observer channel.
	EventBuffer int
}

// Runner starts jobs in a worker slot.
type Runner struct {
	config Config
	fs     afero.Fs
	slot   worker.Slot
	log    logger.Logger
}

// NewRunner creates a Runner. A nil slot gets a private unpaced one.
func NewRunner(config Config, fs afero.Fs, slot worker.Slot, log logger.Logger) (*Runner, error) {
	if config.EventBuffer < 0 {
		return nil, errors.New("event buffer must be non-negative")
	}
	if slot == nil {
		var err error
		if slot, err = worker.NewSlot(worker.Config{}); err != nil {
			return nil, err
		}
	}
	return &Runner{
		config: config,
		fs:     fs,
		slot:   slot,
		log:    log,
	}, nil
}

// Busy reports whether a job is running.
func (r *Runner) Busy() bool {
	return r.slot.Busy()
}

// Start checks that the source is a readable directory and runs j in the
// background. It returns worker.ErrBusy while another job runs.
func (r *Runner) Start(ctx context.Context, j *Job) (*Handle, error) {
	if j == nil {
		return nil, errors.New("nil job")
	}

	info, err := r.fs.Stat(j.source)
	switch {
	case os.IsNotExist(err):
		return nil, invalid(ErrSourceMissing, "source directory %s does not exist", j.source)
	case err != nil:
		return nil, invalid(ErrSourceUnreadable, "cannot access source directory %s: %v", j.source, err)
	case !info.IsDir():
		return nil, invalid(ErrSourceNotDir, "source %s is not a directory", j.source)
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:       uuid.NewString(),
		job:      j,
		queue:    newQueue(),
		events:   make(chan Event, r.config.EventBuffer),
		discard:  make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   cancel,
		counters: &Counters{},
	}

	var result Result
	err = r.slot.Start(ctx, worker.Task{
		ID: h.id,
		Execute: func(ctx context.Context) error {
			result = r.run(ctx, h)
			if result.State == Failed {
				return result.Err
			}
			return nil
		},
		OnDone: func(error) {
			h.finish(result)
		},
	})
	if err != nil {
		cancel()
		return nil, err
	}

	go h.queue.forward(h.events, h.discard)

	r.log.WithFields(logger.Fields{
		"job":    h.id,
		"source": j.source,
		"target": j.target,
		"mode":   string(j.mode),
		"group":  j.rules.Name,
	}).Info("Job started")

	return h, nil
}

// run executes the job and returns its result. It emits exactly one final
// event.
func (r *Runner) run(ctx context.Context, h *Handle) (result Result) {
	j := h.job
	start := time.Now()
	total := 0

	defer func() {
		if rec := recover(); rec != nil {
			err := errors.Errorf("unexpected failure: %v", rec)
			result = h.fail(total, err.Error(), err)
		}
		r.log.WithFields(logger.Fields{
			"job":       h.id,
			"state":     result.State.String(),
			"processed": result.Counts.Processed,
			"skipped":   result.Counts.Skipped,
			"errored":   result.Counts.Errored,
			"duration":  time.Since(start),
		}).Info("Job finished")
	}()

	h.setState(Scanning)

	if err := r.fs.MkdirAll(j.target, 0o755); err != nil {
		return h.fail(0, fmt.Sprintf("cannot create target directory %s: %v", j.target, err), err)
	}

	scanConfig := r.config.Scan
	if j.targetInsideSource() {
		scanConfig.Exclude = append(append([]string(nil), scanConfig.Exclude...), j.target)
	}

	listing, err := scanner.NewScanner(scanConfig, r.fs, r.log).Scan(ctx, j.source)
	if err != nil {
		if ctx.Err() != nil {
			return h.cancelled(0, start)
		}
		return h.fail(0, fmt.Sprintf("cannot enumerate source: %v", err), err)
	}

	total = len(listing.Files)
	if total == 0 {
		h.logf(LevelInfo, "no files found in %s", j.source)
		return h.complete(0, start)
	}
	h.logf(LevelInfo, "found %d files to process", total)
	h.logf(LevelInfo, "using rule group: %s", j.rules.Name)

	h.setState(Processing)

	exec := transfer.NewExecutor(transfer.Config{
		Target: j.target,
		Mode:   j.mode,
		Rules:  j.rules,
	}, r.fs, collision.NewResolver(r.fs), r.log)

	for i, f := range listing.Files {
		if ctx.Err() != nil {
			return h.cancelled(total, start)
		}
		if err := r.slot.Pace(ctx); err != nil {
			return h.cancelled(total, start)
		}

		outcome, err := exec.Transfer(f.Path)
		if err != nil {
			var fatal *transfer.FatalError
			if errors.As(err, &fatal) {
				return h.fail(total, err.Error(), err)
			}
			return h.fail(total, fmt.Sprintf("transfer of %s failed: %v", f.Path, err), err)
		}

		h.counters.add(outcome.Kind)
		switch outcome.Kind {
		case transfer.Processed:
			h.logf(LevelInfo, "%s: %s -> %s/", j.mode.Verb(), outcome.Name, outcome.Folder)
		case transfer.Errored:
			h.logf(LevelError, "failed to process %s: %v", outcome.Name, outcome.Err)
		}

		h.queue.push(&Progress{
			Index:   i + 1,
			Total:   total,
			Path:    f.Path,
			Name:    outcome.Name,
			Outcome: outcome,
		})
	}

	return h.complete(total, start)
}

// Handle tracks a started job.
type Handle struct {
	id          string
	job         *Job
	queue       *queue
	events      chan Event
	discard     chan struct{}
	discardOnce sync.Once
	done        chan struct{}
	cancel      context.CancelFunc
	counters    *Counters
	state       atomic.Int32

	mu     sync.Mutex
	result Result
}

// ID is a unique identifier of the run.
func (h *Handle) ID() string { return h.id }

// Job returns the job being run.
func (h *Handle) Job() *Job { return h.job }

// Events returns the ordered event stream. It is closed after the final
// event. Callers must drain it or call Discard.
func (h *Handle) Events() <-chan Event { return h.events }

// Discard stops event delivery and closes the event channel.
func (h *Handle) Discard() {
	h.discardOnce.Do(func() { close(h.discard) })
}

// Cancel asks the job to stop before its next file.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed once the job reached a terminal state. Events may still
// be in flight to the observer at that point.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job is finished and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Counts returns the live counters.
func (h *Handle) Counts() Counts { return h.counters.Snapshot() }

func (h *Handle) setState(s State) {
	h.state.Store(int32(s))
}

func (h *Handle) logf(level Level, format string, args ...interface{}) {
	h.queue.push(&LogLine{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (h *Handle) complete(total int, start time.Time) Result {
	counts := h.counters.Snapshot()
	h.queue.push(&Summary{Counts: counts, Total: total, Duration: time.Since(start)})
	return Result{State: Completed, Counts: counts, Total: total}
}

func (h *Handle) cancelled(total int, start time.Time) Result {
	counts := h.counters.Snapshot()
	h.logf(LevelWarn, "cancelled by user")
	h.queue.push(&Summary{Counts: counts, Total: total, Partial: true, Duration: time.Since(start)})
	return Result{State: Cancelled, Counts: counts, Total: total}
}

func (h *Handle) fail(total int, reason string, err error) Result {
	counts := h.counters.Snapshot()
	h.queue.push(&Failure{Reason: reason, Err: err, Counts: counts})
	return Result{State: Failed, Counts: counts, Total: total, Reason: reason, Err: err}
}

// finish records the result, closes the event queue and releases Wait.
func (h *Handle) finish(result Result) {
	h.mu.Lock()
	h.result = result
	h.mu.Unlock()

	h.setState(result.State)
	h.queue.close()
	h.cancel()
	close(h.done)
}
