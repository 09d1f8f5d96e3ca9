/*
Package organizer is the operation surface of sortitor. It owns the rule
store, writes it back to the rules file after every change and starts
organize jobs, one at a time.

	org, err := organizer.New(organizer.Config{
		RulesFile: "/home/me/.config/sortitor/file_rules.json",
	}, afero.NewOsFs(), nil, log)

	_ = org.AddRule("pdf", "Documents", "")
	h, err := org.StartOrganize(ctx, "/home/me/Downloads", "/home/me/Sorted", transfer.Copy, "")
*/
package organizer

import (
	"context"
	"sync"

	"github.com/sonemaro/sortitor/pkg/job"
	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/rulepkg"
	"github.com/sonemaro/sortitor/pkg/rules"
	"github.com/sonemaro/sortitor/pkg/transfer"
	"github.com/sonemaro/sortitor/pkg/worker"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrJobActive is returned by StartOrganize while a job is running.
	ErrJobActive = errors.Base("an organize job is already running")

	// ErrNoJob is returned by Cancel when there is nothing to cancel.
	ErrNoJob = errors.Base("no organize job is running")
)

// Config holds the organizer settings.
type Config struct {
	// RulesFile is where the rule store is loaded from and saved to.
	RulesFile string

	// Runner configures the organize jobs.
	Runner job.Config
}

// GroupInfo describes one rule group in a listing.
type GroupInfo struct {
	Name    string `json:"name" yaml:"name"`
	Rules   int    `json:"rules" yaml:"rules"`
	Current bool   `json:"current" yaml:"current"`
}

// Organizer serializes all rule mutations and job starts.
type Organizer struct {
	config Config
	fs     afero.Fs
	runner *job.Runner
	log    logger.Logger

	mu     sync.Mutex
	store  *rules.Store
	active *job.Handle
}

// New loads the rules file and creates an Organizer. A missing or corrupt
// rules file yields an empty store. slot may be nil.
func New(config Config, fs afero.Fs, slot worker.Slot, log logger.Logger) (*Organizer, error) {
	if config.RulesFile == "" {
		return nil, errors.New("rules file path cannot be empty")
	}

	store, err := rules.Load(fs, config.RulesFile, log)
	if err != nil {
		return nil, errors.Errorf("loading rules: %w", err)
	}

	runner, err := job.NewRunner(config.Runner, fs, slot, log)
	if err != nil {
		return nil, err
	}

	return &Organizer{
		config: config,
		fs:     fs,
		runner: runner,
		log:    log,
		store:  store,
	}, nil
}

// mutate applies fn to a copy of the store, saves the copy and only then
// makes it current. The store is unchanged when fn or the save fails.
func (o *Organizer) mutate(fn func(*rules.Store) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	work := o.store.Clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := rules.Save(o.fs, o.config.RulesFile, work); err != nil {
		o.log.WithFields(logger.Fields{
			"path":  o.config.RulesFile,
			"error": err,
		}).Error("Failed to save rules")
		return err
	}
	o.store.Reset(work)
	return nil
}

// AddRule adds or replaces a rule. An empty folder defaults to the keyword
// and an empty group to the current one; a missing group is created.
func (o *Organizer) AddRule(keyword, folder, group string) error {
	err := o.mutate(func(s *rules.Store) error {
		return s.AddRule(keyword, folder, group)
	})
	if err == nil {
		o.log.WithFields(logger.Fields{
			"keyword": keyword,
			"folder":  folder,
			"group":   group,
		}).Info("Rule added")
	}
	return err
}

// DeleteRule removes a rule from group, or from the current group.
func (o *Organizer) DeleteRule(keyword, group string) error {
	err := o.mutate(func(s *rules.Store) error {
		return s.DeleteRule(keyword, group)
	})
	if err == nil {
		o.log.WithFields(logger.Fields{
			"keyword": keyword,
			"group":   group,
		}).Info("Rule deleted")
	}
	return err
}

// ListRules returns the rules of group, or of the current group.
func (o *Organizer) ListRules(group string) ([]rules.Rule, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.ListRules(group)
}

// Groups lists every group in order with the current one marked.
func (o *Organizer) Groups() []GroupInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := o.store.Groups()
	out := make([]GroupInfo, 0, len(names))
	for _, name := range names {
		g, _ := o.store.Group(name)
		out = append(out, GroupInfo{
			Name:    name,
			Rules:   g.Len(),
			Current: name == o.store.Current(),
		})
	}
	return out
}

// CurrentGroup returns the name of the current group.
func (o *Organizer) CurrentGroup() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Current()
}

// Snapshot returns a copy of the whole store.
func (o *Organizer) Snapshot() *rules.Store {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Clone()
}

func (o *Organizer) AddGroup(name string) error {
	err := o.mutate(func(s *rules.Store) error {
		return s.AddGroup(name)
	})
	if err == nil {
		o.log.WithFields(logger.Fields{"group": name}).Info("Rule group added")
	}
	return err
}

func (o *Organizer) RenameGroup(oldName, newName string) error {
	err := o.mutate(func(s *rules.Store) error {
		return s.RenameGroup(oldName, newName)
	})
	if err == nil {
		o.log.WithFields(logger.Fields{
			"from": oldName,
			"to":   newName,
		}).Info("Rule group renamed")
	}
	return err
}

// DeleteGroup removes a non-default group. Deleting the current group
// makes the default group current.
func (o *Organizer) DeleteGroup(name string) error {
	err := o.mutate(func(s *rules.Store) error {
		return s.DeleteGroup(name)
	})
	if err == nil {
		o.log.WithFields(logger.Fields{"group": name}).Info("Rule group deleted")
	}
	return err
}

func (o *Organizer) SetCurrentGroup(name string) error {
	err := o.mutate(func(s *rules.Store) error {
		return s.SetCurrentGroup(name)
	})
	if err == nil {
		o.log.WithFields(logger.Fields{"group": name}).Info("Current rule group changed")
	}
	return err
}

// StartOrganize validates the request and starts a job over a snapshot of
// group, or of the current group when group is empty. Validation errors
// are *job.ValidationError; a running job gives ErrJobActive.
func (o *Organizer) StartOrganize(ctx context.Context, source, target string, mode transfer.Mode, group string) (*job.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil && !o.active.State().Terminal() {
		return nil, errors.WithStack(ErrJobActive)
	}

	snapshot, err := o.store.Snapshot(group)
	if err != nil {
		return nil, err
	}
	j, err := job.New(source, target, mode, snapshot)
	if err != nil {
		return nil, err
	}

	h, err := o.runner.Start(ctx, j)
	if errors.Is(err, worker.ErrBusy) {
		return nil, errors.WithStack(ErrJobActive)
	}
	if err != nil {
		return nil, err
	}
	o.active = h
	return h, nil
}

// Active returns the running job, or nil.
func (o *Organizer) Active() *job.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil || o.active.State().Terminal() {
		return nil
	}
	return o.active
}

// Cancel asks h to stop before its next file.
func (o *Organizer) Cancel(h *job.Handle) error {
	if h == nil || h.State().Terminal() {
		return errors.WithStack(ErrNoJob)
	}
	h.Cancel()
	o.log.WithFields(logger.Fields{"job": h.ID()}).Info("Cancellation requested")
	return nil
}

// ImportRulePackage reads a rule package and applies it with opts.
func (o *Organizer) ImportRulePackage(path string, opts rulepkg.ImportOptions) (rulepkg.Report, error) {
	var report rulepkg.Report
	err := o.mutate(func(s *rules.Store) error {
		var err error
		_, report, err = rulepkg.Import(o.fs, path, s, opts, o.log)
		return err
	})
	return report, err
}

// ExportRulePackage writes the rules selected by scope to path.
func (o *Organizer) ExportRulePackage(path string, scope rulepkg.Scope) (*rulepkg.Package, error) {
	o.mu.Lock()
	store := o.store.Clone()
	o.mu.Unlock()

	return rulepkg.Export(o.fs, path, store, scope, o.log)
}
