/*
Package scanner enumerates the regular files below a source directory.

The scanner walks the tree depth first with directory entries in name order,
so the same tree always yields the same file sequence. The whole listing is
collected before it is returned, which gives callers an exact file count to
report progress against.

Basic usage:

	config := scanner.Config{
		MaxDepth:       -1,
		IgnorePatterns: []string{".git/", "node_modules", "*.tmp"},
	}

	s := scanner.NewScanner(config, fs, log)
	result, err := s.Scan(ctx, "/path/to/source")

Any failure to list a directory or stat an entry aborts the scan with a
*PermissionError or *EnumerationError. Cancelling ctx stops the walk at the
next entry and returns ctx.Err().
*/
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Scanner defines the interface for directory scanning operations
type Scanner interface {
	// Scan lists every regular file below root.
	Scan(ctx context.Context, root string) (Result, error)

	// Progress returns the current scanning progress
	Progress() Progress
}

// scanner implements the Scanner interface
type scanner struct {
	config    Config
	fs        afero.Fs
	log       logger.Logger
	stats     *ScannerStats
	startTime atomic.Pointer[time.Time]
}

// NewScanner creates a scanner over fs.
func NewScanner(config Config, fs afero.Fs, log logger.Logger) Scanner {
	return &scanner{
		config: config,
		fs:     fs,
		log:    log,
		stats:  NewScannerStats(),
	}
}

// ValidatePatterns reports the first malformed ignore pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(strings.TrimSuffix(filepath.ToSlash(p), "/")) {
			return errors.Errorf("invalid ignore pattern %q", p)
		}
	}
	return nil
}

// Scan performs the directory scan operation
func (s *scanner) Scan(ctx context.Context, root string) (Result, error) {
	if err := ValidatePatterns(s.config.IgnorePatterns); err != nil {
		return Result{}, err
	}

	s.log.WithFields(logger.Fields{
		"path":     root,
		"maxDepth": s.config.MaxDepth,
		"patterns": s.config.IgnorePatterns,
		"symlinks": s.config.FollowSymlinks,
	}).Info("Starting scan operation")

	s.stats.Reset()
	start := time.Now()
	s.startTime.Store(&start)
	result := Result{
		Stats: ScanStats{StartTime: start},
	}

	rootInfo, err := s.fs.Stat(root)
	if err != nil {
		s.log.WithFields(logger.Fields{
			"error": err,
			"path":  root,
		}).Error("Failed to stat root directory")
		return result, enumerationError(root, err)
	}
	if !rootInfo.IsDir() {
		return result, &EnumerationError{Path: root, Err: errors.New("not a directory")}
	}

	excluded := make([]string, 0, len(s.config.Exclude))
	for _, p := range s.config.Exclude {
		excluded = append(excluded, filepath.Clean(p))
	}

	if err := s.scanDir(ctx, root, "", 0, excluded, &result); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.log.WithFields(logger.Fields{
				"error": err,
			}).Error("Scan operation failed")
		}
		return result, err
	}

	result.Stats.EndTime = time.Now()
	result.Stats.Duration = result.Stats.EndTime.Sub(result.Stats.StartTime)
	result.Stats.TotalFiles = s.stats.GetFilesFound()
	result.Stats.TotalDirs = s.stats.GetDirectoriesScanned()
	result.Stats.TotalSize = s.stats.GetBytesFound()
	result.Stats.Ignored = s.stats.GetIgnored()

	s.log.WithFields(logger.Fields{
		"duration":   result.Stats.Duration,
		"totalFiles": result.Stats.TotalFiles,
		"totalDirs":  result.Stats.TotalDirs,
		"totalSize":  result.Stats.TotalSize,
		"ignored":    result.Stats.Ignored,
	}).Info("Scan operation completed")

	return result, nil
}

// scanDir recursively scans a directory
func (s *scanner) scanDir(ctx context.Context, dir, rel string, depth int, excluded []string, result *Result) error {
	s.stats.SetCurrentDepth(int32(depth))
	s.stats.AddDirectoriesScanned(1)

	s.log.WithFields(logger.Fields{
		"path":  dir,
		"depth": depth,
	}).Debug("Scanning directory")

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		s.log.WithFields(logger.Fields{
			"error": err,
			"path":  dir,
		}).Error("Failed to read directory")
		return enumerationError(dir, err)
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entryPath := filepath.Join(dir, entry.Name())
		entryRel := entry.Name()
		if rel != "" {
			entryRel = rel + "/" + entry.Name()
		}

		info, err := lstat(s.fs, entryPath)
		if err != nil {
			s.log.WithFields(logger.Fields{
				"error": err,
				"path":  entryPath,
			}).Error("Failed to stat entry")
			return enumerationError(entryPath, err)
		}

		if isExcluded(entryPath, excluded) {
			s.log.WithFields(logger.Fields{
				"path": entryPath,
			}).Debug("Skipping excluded subtree")
			s.stats.AddIgnored(1)
			continue
		}

		if s.shouldIgnore(entryRel, info.IsDir()) {
			s.stats.AddIgnored(1)
			continue
		}

		symlink := info.Mode()&os.ModeSymlink != 0
		if symlink {
			target, ok := s.followSymlink(entryPath)
			if !ok {
				s.stats.AddIgnored(1)
				continue
			}
			info = target
		}

		switch {
		case info.IsDir():
			if s.config.MaxDepth >= 0 && depth >= s.config.MaxDepth {
				s.log.WithFields(logger.Fields{
					"path":  entryPath,
					"depth": depth,
				}).Debug("Max depth reached")
				s.stats.AddIgnored(1)
				continue
			}
			if err := s.scanDir(ctx, entryPath, entryRel, depth+1, excluded, result); err != nil {
				return err
			}
			s.stats.SetCurrentDepth(int32(depth))

		case info.Mode().IsRegular():
			result.Files = append(result.Files, Entry{
				Path:    entryPath,
				Rel:     entryRel,
				Name:    entry.Name(),
				Size:    info.Size(),
				Mode:    info.Mode(),
				ModTime: info.ModTime(),
				Symlink: symlink,
			})
			s.stats.AddFilesFound(1)
			s.stats.AddBytesFound(info.Size())

		default:
			s.log.WithFields(logger.Fields{
				"path": entryPath,
				"mode": info.Mode().String(),
			}).Debug("Skipping non-regular file")
			s.stats.AddIgnored(1)
		}
	}

	return nil
}

// followSymlink returns the info of the link target when the link should be
// listed as a file.
func (s *scanner) followSymlink(path string) (os.FileInfo, bool) {
	if !s.config.FollowSymlinks {
		s.log.WithFields(logger.Fields{
			"path": path,
		}).Debug("Skipping symlink")
		return nil, false
	}

	target, err := s.fs.Stat(path)
	if err != nil {
		s.log.WithFields(logger.Fields{
			"error": err,
			"path":  path,
		}).Warn("Skipping broken symlink")
		return nil, false
	}
	if !target.Mode().IsRegular() {
		s.log.WithFields(logger.Fields{
			"path": path,
		}).Debug("Skipping symlink to non-regular file")
		return nil, false
	}
	return target, true
}

// shouldIgnore checks if a path should be ignored based on ignore patterns
func (s *scanner) shouldIgnore(rel string, isDir bool) bool {
	base := rel[strings.LastIndex(rel, "/")+1:]

	for _, pattern := range s.config.IgnorePatterns {
		pattern = filepath.ToSlash(pattern)
		if strings.HasSuffix(pattern, "/") {
			if !isDir {
				continue
			}
			pattern = strings.TrimSuffix(pattern, "/")
		}

		subject := rel
		if !strings.Contains(pattern, "/") {
			subject = base
		}

		if matched, _ := doublestar.Match(pattern, subject); matched {
			s.log.WithFields(logger.Fields{
				"pattern": pattern,
				"path":    rel,
			}).Debug("Path ignored")
			return true
		}
	}

	return false
}

func isExcluded(path string, excluded []string) bool {
	for _, ex := range excluded {
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Progress returns the current scanning progress
func (s *scanner) Progress() Progress {
	p := Progress{
		FilesFound:         s.stats.GetFilesFound(),
		DirectoriesScanned: s.stats.GetDirectoriesScanned(),
		Ignored:            s.stats.GetIgnored(),
		CurrentDepth:       int(s.stats.GetCurrentDepth()),
	}
	if t := s.startTime.Load(); t != nil {
		p.StartTime = *t
	}
	return p
}
