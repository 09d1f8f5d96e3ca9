package job

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonemaro/sortitor/pkg/transfer"
)

// Event is one message of a job's event stream: *Progress, *LogLine,
// *Summary or *Failure.
type Event interface {
	// Sequence numbers start at 1 and increase by one per event.
	Sequence() uint64
	// Timestamp is when the event was produced.
	Timestamp() time.Time
	isEvent()
}

// Header carries the fields shared by every event.
type Header struct {
	Seq  uint64
	Time time.Time
}

func (h *Header) Sequence() uint64     { return h.Seq }
func (h *Header) Timestamp() time.Time { return h.Time }
func (h *Header) isEvent()             {}
func (h *Header) header() *Header      { return h }

// Progress is emitted after every file of the Processing phase.
type Progress struct {
	Header
	// Index is 1-based and reaches Total with the last file.
	Index   int
	Total   int
	Path    string
	Name    string
	Outcome transfer.Outcome
}

// Percent returns the completion percentage.
func (p *Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Index) * 100 / float64(p.Total)
}

// Level is the severity of a LogLine.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LogLine is a human-readable message about the run.
type LogLine struct {
	Header
	Level   Level
	Message string
}

// Summary is the final event of a run that was not aborted.
type Summary struct {
	Header
	Counts   Counts
	Total    int
	Partial  bool
	Duration time.Duration
}

// Failure is the final event of an aborted run.
type Failure struct {
	Header
	Reason string
	Err    error
	Counts Counts
}

// Counts are the per-outcome file counts of a run.
type Counts struct {
	Processed int64 `json:"processed" yaml:"processed"`
	Skipped   int64 `json:"skipped" yaml:"skipped"`
	Errored   int64 `json:"errored" yaml:"errored"`
}

func (c Counts) String() string {
	return fmt.Sprintf("processed=%d skipped=%d errored=%d", c.Processed, c.Skipped, c.Errored)
}

// Counters hold live counts. They are written by the running job only and
// may be read from any goroutine.
type Counters struct {
	processed atomic.Int64
	skipped   atomic.Int64
	errored   atomic.Int64
}

func (c *Counters) add(kind transfer.Kind) {
	switch kind {
	case transfer.Processed:
		c.processed.Add(1)
	case transfer.Skipped:
		c.skipped.Add(1)
	case transfer.Errored:
		c.errored.Add(1)
	}
}

// Snapshot returns the current counts.
func (c *Counters) Snapshot() Counts {
	return Counts{
		Processed: c.processed.Load(),
		Skipped:   c.skipped.Load(),
		Errored:   c.errored.Load(),
	}
}

type sequenced interface {
	Event
	header() *Header
}

// queue is an unbounded FIFO between the job goroutine and the observer.
// push never blocks; forward delivers in push order and closes out once
// the queue is closed and drained, or when discard is closed.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Event
	seq    uint64
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(e sequenced) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.seq++
	h := e.header()
	h.Seq = q.seq
	h.Time = time.Now()
	q.items = append(q.items, e)
	q.cond.Signal()
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *queue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return e, true
}

func (q *queue) forward(out chan<- Event, discard <-chan struct{}) {
	defer close(out)
	for {
		e, ok := q.pop()
		if !ok {
			return
		}
		select {
		case out <- e:
		case <-discard:
			return
		}
	}
}
