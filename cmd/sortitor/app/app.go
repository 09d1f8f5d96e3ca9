/*
Package app provides the application container for the sortitor CLI. It wires
the organizer, the worker slot, progress visualization and output formatting
from one configuration, and runs organize jobs in the foreground.

The container builds:
- Logger for structured logging, optionally mirrored into a log file
- Organizer holding the rule store and the single job slot
- Progress visualization fed from the job event stream
- Output formatting for listings and run summaries

Usage:

	a, err := app.New(cfg, app.Options{})
	if err != nil {
	    log.Fatal(err)
	}
	defer a.Close()

	result, err := a.Organize(ctx, app.OrganizeOptions{
	    Source: "/home/me/Downloads",
	    Target: "/home/me/Sorted",
	})
*/
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sonemaro/sortitor/internal/config"
	"github.com/sonemaro/sortitor/pkg/job"
	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/organizer"
	"github.com/sonemaro/sortitor/pkg/output"
	"github.com/sonemaro/sortitor/pkg/progress"
	"github.com/sonemaro/sortitor/pkg/scanner"
	"github.com/sonemaro/sortitor/pkg/transfer"
	"github.com/sonemaro/sortitor/pkg/worker"
)

// ErrCancelled is returned by Organize when the run was cancelled.
var ErrCancelled = errors.Base("organize cancelled")

// Options carries the process environment. Zero values mean the real thing.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Fs     afero.Fs

	// Exit terminates the process on a forced shutdown.
	Exit func(code int)

	// Notify subscribes to interrupt signals. See signal.Notify.
	Notify func(c chan<- os.Signal)
}

// OrganizeOptions selects one organize run.
type OrganizeOptions struct {
	Source string
	Target string

	// Mode is copy or move. Empty uses the configured mode.
	Mode string

	// Group names the rule group to apply. Empty uses the current one.
	Group string
}

// App represents the main application container
type App struct {
	config config.Config
	opts   Options
	log    logger.Logger

	slot      worker.Slot
	organizer *organizer.Organizer
	formatter output.Formatter

	logFile io.Closer
}

// New creates the application from a validated configuration.
func New(cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Notify == nil {
		opts.Notify = notifyInterrupt
	}

	if cfg.NoColor {
		color.NoColor = true
	}

	a := &App{
		config: cfg,
		opts:   opts,
	}
	if err := a.initLogger(); err != nil {
		return nil, err
	}
	if err := a.initComponents(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.log.WithFields(logger.Fields{
		"rulesFile": cfg.RulesFile,
		"config":    cfg.ConfigFile,
		"verbose":   cfg.Verbose,
	}).Debug("Application initialized")

	return a, nil
}

// initLogger writes diagnostics to stderr only when verbose: -v shows info
// lines and -vv adds debug. The log file, when configured, receives
// everything.
func (a *App) initLogger() error {
	out, verbosity := io.Discard, 0
	if a.config.Verbose > 0 {
		out, verbosity = a.opts.Stderr, a.config.Verbose-1
	}

	var tee io.Writer
	if a.config.LogFile != "" {
		f, err := a.opts.Fs.OpenFile(a.config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Errorf("opening log file: %w", err)
		}
		a.logFile = f
		tee = f
	}

	a.log = logger.NewLogger(logger.Config{
		Verbosity: verbosity,
		Output:    out,
		Encoding:  logger.EncodingConsole,
		Tee:       tee,
	})
	return nil
}

func (a *App) initComponents() error {
	slot, err := worker.NewSlot(worker.Config{RateLimit: a.config.RateLimit})
	if err != nil {
		return errors.Errorf("creating worker slot: %w", err)
	}
	a.slot = slot

	a.organizer, err = organizer.New(organizer.Config{
		RulesFile: a.config.RulesFile,
		Runner: job.Config{
			Scan: scanner.Config{
				MaxDepth:       a.config.MaxDepth,
				IgnorePatterns: a.config.IgnorePatterns,
				FollowSymlinks: a.config.FollowSymlinks,
			},
			EventBuffer: a.config.EventBuffer,
		},
	}, a.opts.Fs, slot, a.log)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(a.config.Output)
	if err != nil {
		return err
	}
	a.formatter, err = output.NewFormatter(output.Config{
		Format:     format,
		WithStats:  a.config.Verbose > 0,
		WithColors: !a.config.NoColor && isTerminal(a.opts.Stdout),
	}, a.log)
	return err
}

// Organizer returns the rule store and job owner.
func (a *App) Organizer() *organizer.Organizer {
	return a.organizer
}

// Formatter returns the listing formatter.
func (a *App) Formatter() output.Formatter {
	return a.formatter
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.log
}

// Println writes one line to stdout.
func (a *App) Println(s string) {
	fmt.Fprintln(a.opts.Stdout, s)
}

// Organize runs one job in the foreground. Events are rendered while the job
// runs and the formatted summary is printed at the end. A failed run returns
// an error carrying the reason; a cancelled one returns ErrCancelled.
func (a *App) Organize(ctx context.Context, opts OrganizeOptions) (job.Result, error) {
	if opts.Mode == "" {
		opts.Mode = a.config.Mode
	}
	mode, err := transfer.ParseMode(opts.Mode)
	if err != nil {
		return job.Result{}, err
	}

	a.log.WithFields(logger.Fields{
		"source": opts.Source,
		"target": opts.Target,
		"mode":   mode,
		"group":  opts.Group,
	}).Info("Starting organize")

	start := time.Now()
	h, err := a.organizer.StartOrganize(ctx, opts.Source, opts.Target, mode, opts.Group)
	if err != nil {
		return job.Result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.consume(h)
		return nil
	})
	g.Go(func() error {
		a.watchSignals(gctx, h)
		return nil
	})
	_ = g.Wait()

	result := h.Wait()
	text, err := a.formatter.Summary(output.NewRunSummary(h.Job(), result, time.Since(start)))
	if err != nil {
		return result, err
	}
	a.Println(text)

	a.log.WithFields(logger.Fields{
		"job":      h.ID(),
		"state":    result.State.String(),
		"counts":   result.Counts.String(),
		"duration": time.Since(start),
	}).Info("Organize finished")

	switch result.State {
	case job.Failed:
		return result, errors.Errorf("organize failed: %s", result.Reason)
	case job.Cancelled:
		return result, errors.WithStack(ErrCancelled)
	}
	return result, nil
}

// consume drains the event stream of h until it is closed.
func (a *App) consume(h *job.Handle) {
	if a.progressEnabled() {
		p := progress.New(a.progressConfig(), a.log)
		tracker := progress.NewTracker(p)
		p.Start(fmt.Sprintf("Organizing %s", h.Job().Source()))
		defer p.Stop()
		for ev := range h.Events() {
			tracker.Follow(ev)
		}
		return
	}

	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed)
	for ev := range h.Events() {
		line, ok := ev.(*job.LogLine)
		if !ok {
			continue
		}
		switch line.Level {
		case job.LevelWarn:
			a.Println(warn.Sprint(line.Message))
		case job.LevelError:
			a.Println(fail.Sprint(line.Message))
		default:
			a.Println(line.Message)
		}
	}
}

// progressEnabled keeps the progress line off pipes and files. Log lines go
// through the progress writer, so both streams must be the same terminal.
func (a *App) progressEnabled() bool {
	return !a.config.NoProgress && isTerminal(a.opts.Stdout) && isTerminal(a.opts.Stderr)
}

func (a *App) progressConfig() progress.Config {
	style, _ := progress.ParseStyle(a.config.ProgressStyle)
	return progress.Config{
		Style:     style,
		ShowStats: true,
		NoColor:   a.config.NoColor,
		Writer:    a.opts.Stderr,
	}
}

// Close releases the worker slot and the log file.
func (a *App) Close() error {
	var errs []error
	if a.slot != nil {
		if err := a.slot.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
