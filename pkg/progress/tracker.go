package progress

import (
	"github.com/sonemaro/sortitor/pkg/job"
	"github.com/sonemaro/sortitor/pkg/transfer"
)

// Tracker feeds job events into a Progress.
type Tracker struct {
	p      Progress
	status Status
}

// NewTracker creates a Tracker drawing on p.
func NewTracker(p Progress) *Tracker {
	return &Tracker{p: p}
}

// Status returns the status built from the events so far.
func (t *Tracker) Status() Status {
	return t.status
}

// Follow applies one event and reports whether it ended the stream.
// Log lines are printed above the progress line.
func (t *Tracker) Follow(ev job.Event) bool {
	switch e := ev.(type) {
	case *job.Progress:
		t.status.Current = int64(e.Index)
		t.status.Total = int64(e.Total)
		t.status.CurrentItem = e.Name
		switch e.Outcome.Kind {
		case transfer.Processed:
			t.status.Processed++
		case transfer.Skipped:
			t.status.Skipped++
		case transfer.Errored:
			t.status.Errored++
		}
		t.p.Update(t.status)
	case *job.LogLine:
		t.p.Println(e.Message)
	case *job.Summary:
		if e.Partial {
			t.p.Error("Organize cancelled")
		} else {
			t.p.Complete("Organize completed")
		}
		return true
	case *job.Failure:
		t.p.Error("Organize failed: " + e.Reason)
		return true
	}
	return false
}
