package output

import (
	"time"

	"github.com/sonemaro/sortitor/pkg/job"
	"github.com/sonemaro/sortitor/pkg/rules"
)

// RuleSet is one group in a listing.
type RuleSet struct {
	Group   string       `json:"group" yaml:"group"`
	Current bool         `json:"current" yaml:"current"`
	Rules   []rules.Rule `json:"rules" yaml:"rules"`
}

// RuleSets lists every group of s in order.
func RuleSets(s *rules.Store) []RuleSet {
	names := s.Groups()
	out := make([]RuleSet, 0, len(names))
	for _, name := range names {
		g, _ := s.Group(name)
		out = append(out, RuleSet{
			Group:   name,
			Current: name == s.Current(),
			Rules:   g.Rules(),
		})
	}
	return out
}

// RunSummary describes a finished organize run.
type RunSummary struct {
	Source  string     `json:"source" yaml:"source"`
	Target  string     `json:"target" yaml:"target"`
	Mode    string     `json:"mode" yaml:"mode"`
	Group   string     `json:"group" yaml:"group"`
	State   string     `json:"state" yaml:"state"`
	Total   int        `json:"total" yaml:"total"`
	Counts  job.Counts `json:"counts" yaml:"counts"`
	Elapsed string     `json:"elapsed" yaml:"elapsed"`
	Reason  string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// NewRunSummary builds the summary of j from its result.
func NewRunSummary(j *job.Job, r job.Result, elapsed time.Duration) RunSummary {
	return RunSummary{
		Source:  j.Source(),
		Target:  j.Target(),
		Mode:    string(j.Mode()),
		Group:   j.GroupName(),
		State:   r.State.String(),
		Total:   r.Total,
		Counts:  r.Counts,
		Elapsed: elapsed.Round(time.Millisecond).String(),
		Reason:  r.Reason,
	}
}
