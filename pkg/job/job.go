/*
Package job runs one organize pass over a source tree in the background
and reports on it through an ordered stream of events.

A Job is an immutable snapshot of what to do: source, target, mode and a
private copy of the rule group. A Runner starts it in its worker slot and
returns a Handle:

	j, err := job.New("/data/inbox", "/data/sorted", transfer.Copy, group)
	if err != nil {
		return err // *job.ValidationError, nothing was touched
	}

	h, err := runner.Start(ctx, j)
	for ev := range h.Events() {
		switch ev := ev.(type) {
		case *job.Progress:
			fmt.Printf("%d/%d %s\n", ev.Index, ev.Total, ev.Name)
		case *job.Summary:
			fmt.Println(ev.Counts)
		}
	}
	result := h.Wait()

A run goes Idle, Scanning, Processing and ends Completed, Cancelled or
Failed. Cancellation is checked before each file; a file being copied is
always finished. The last event is exactly one *Summary (Partial when
cancelled) or one *Failure, and the channel is closed right after it.
*/
package job

import (
	"path/filepath"
	"strings"

	"github.com/sonemaro/sortitor/pkg/rules"
	"github.com/sonemaro/sortitor/pkg/transfer"
)

// Job is one organize run over a fixed source, target, mode and rule
// snapshot. Build it with New.
type Job struct {
	source string
	target string
	mode   transfer.Mode
	rules  *rules.Group
}

// New validates the arguments and snapshots group. It does not touch any
// filesystem; source existence is checked when the job starts.
func New(source, target string, mode transfer.Mode, group *rules.Group) (*Job, error) {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)

	if source == "" {
		return nil, invalid(ErrEmptySource, "source directory cannot be empty")
	}
	if target == "" {
		return nil, invalid(ErrEmptyTarget, "target directory cannot be empty")
	}
	if !mode.Valid() {
		return nil, invalid(ErrInvalidMode, "invalid mode %q: must be copy or move", mode)
	}
	if group.Len() == 0 {
		name := ""
		if group != nil {
			name = group.Name
		}
		return nil, invalid(ErrEmptyRules, "rule group %q has no rules", name)
	}

	source, target = absPath(source), absPath(target)
	if source == target {
		return nil, invalid(ErrSameDirectory, "source and target are the same directory: %s", source)
	}

	return &Job{
		source: source,
		target: target,
		mode:   mode,
		rules:  group.Clone(),
	}, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func (j *Job) Source() string { return j.source }

func (j *Job) Target() string { return j.target }

func (j *Job) Mode() transfer.Mode { return j.mode }

func (j *Job) GroupName() string { return j.rules.Name }

// Rules returns a copy of the job's rule snapshot.
func (j *Job) Rules() *rules.Group { return j.rules.Clone() }

// targetInsideSource reports whether target lies below source, in which
// case the scanner must not walk into it.
func (j *Job) targetInsideSource() bool {
	rel, err := filepath.Rel(j.source, j.target)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
