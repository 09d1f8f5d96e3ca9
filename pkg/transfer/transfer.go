/*
Package transfer copies or moves a single file into the folder its rules
select.

An Executor is bound to one run: a target root, a mode and a private rule
group. For each file it either skips it (hidden, or no rule matches),
transfers it under a collision-free name, or reports a per-file error. Only
the failure to create a destination folder is returned as a *FatalError,
which ends the whole run.

	exec := transfer.NewExecutor(transfer.Config{
		Target: "/data/sorted",
		Mode:   transfer.Copy,
		Rules:  group,
	}, fs, collision.NewResolver(fs), log)

	outcome, err := exec.Transfer("/data/inbox/report.PDF")
*/
package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sonemaro/sortitor/pkg/collision"
	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/rules"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Mode selects between copying and moving files.
type Mode string

const (
	Copy Mode = "copy"
	Move Mode = "move"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Copy:
		return Copy, nil
	case Move:
		return Move, nil
	}
	return "", errors.Errorf("invalid mode %q: must be copy or move", s)
}

// Valid reports whether m is Copy or Move.
func (m Mode) Valid() bool {
	return m == Copy || m == Move
}

// Verb returns the past tense used in log lines.
func (m Mode) Verb() string {
	if m == Move {
		return "moved"
	}
	return "copied"
}

// Kind is the outcome of a single transfer.
type Kind int

const (
	Processed Kind = iota
	Skipped
	Errored
)

func (k Kind) String() string {
	switch k {
	case Processed:
		return "processed"
	case Skipped:
		return "skipped"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SkipReason explains a Skipped outcome.
type SkipReason string

const (
	SkipHidden  SkipReason = "hidden file"
	SkipNoMatch SkipReason = "no matching rule"
)

// Outcome describes what happened to one file.
type Outcome struct {
	Kind   Kind
	Name   string
	Folder string
	Dest   string
	Reason SkipReason
	Err    error
}

// FatalError aborts the run. It is returned when a destination folder
// cannot be created.
type FatalError struct {
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("cannot create destination folder %s: %v", e.Path, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Config binds an Executor to one run.
type Config struct {
	Target string
	Mode   Mode
	Rules  *rules.Group
}

// Executor transfers one file at a time.
type Executor interface {
	// Transfer classifies and transfers the file at path. Per-file
	// failures come back as an Errored outcome with a nil error.
	Transfer(path string) (Outcome, error)
}

type executor struct {
	config   Config
	fs       afero.Fs
	resolver *collision.Resolver
	log      logger.Logger
}

// NewExecutor creates an Executor. A nil resolver gets a fresh one.
func NewExecutor(config Config, fs afero.Fs, resolver *collision.Resolver, log logger.Logger) Executor {
	if resolver == nil {
		resolver = collision.NewResolver(fs)
	}
	return &executor{
		config:   config,
		fs:       fs,
		resolver: resolver,
		log:      log,
	}
}

func (e *executor) Transfer(path string) (Outcome, error) {
	name := filepath.Base(path)
	out := Outcome{Name: name}

	if strings.HasPrefix(name, ".") {
		out.Kind = Skipped
		out.Reason = SkipHidden
		return out, nil
	}

	folder, ok := rules.Match(e.config.Rules, name)
	if !ok {
		out.Kind = Skipped
		out.Reason = SkipNoMatch
		return out, nil
	}
	out.Folder = folder

	dir := filepath.Join(e.config.Target, folder)
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		e.log.WithFields(logger.Fields{
			"path":  dir,
			"error": err,
		}).Error("Failed to create destination folder")
		return out, &FatalError{Path: dir, Err: err}
	}

	dest, err := e.resolver.Resolve(dir, name)
	if err != nil {
		return e.failed(out, path, err), nil
	}
	out.Dest = dest

	if e.config.Mode == Move {
		err = e.move(path, dest)
	} else {
		err = e.copy(path, dest)
	}
	if err != nil {
		e.resolver.Release(dest)
		return e.failed(out, path, err), nil
	}

	e.log.WithFields(logger.Fields{
		"source": path,
		"dest":   dest,
		"mode":   string(e.config.Mode),
	}).Debug("File transferred")

	out.Kind = Processed
	return out, nil
}

func (e *executor) failed(out Outcome, path string, err error) Outcome {
	e.log.WithFields(logger.Fields{
		"path":  path,
		"error": err,
	}).Warn("File transfer failed")
	out.Kind = Errored
	out.Err = err
	return out
}

// copy writes src to a new file at dest and carries over permission bits
// and timestamps. dest must not exist.
func (e *executor) copy(src, dest string) error {
	info, err := e.fs.Stat(src)
	if err != nil {
		return errors.Errorf("stat source: %w", err)
	}

	in, err := e.fs.Open(src)
	if err != nil {
		return errors.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := e.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = e.fs.Remove(dest)
		return errors.Errorf("copy data: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = e.fs.Remove(dest)
		return errors.Errorf("close destination: %w", err)
	}

	if err := e.fs.Chmod(dest, info.Mode().Perm()); err != nil {
		_ = e.fs.Remove(dest)
		return errors.Errorf("set permissions: %w", err)
	}
	if err := e.fs.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		_ = e.fs.Remove(dest)
		return errors.Errorf("set times: %w", err)
	}
	return nil
}

// move renames src to dest, falling back to copy and remove when the two
// are on different devices.
func (e *executor) move(src, dest string) error {
	err := e.fs.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return errors.Errorf("rename: %w", err)
	}

	e.log.WithFields(logger.Fields{
		"source": src,
		"dest":   dest,
	}).Debug("Cross-device move, copying instead")

	if err := e.copy(src, dest); err != nil {
		return err
	}
	if err := e.fs.Remove(src); err != nil {
		return errors.Errorf("remove source after copy: %w", err)
	}
	return nil
}
