package scanner

import (
	"os"
	"sync/atomic"
	"time"
)

// Entry is a regular file found under the scanned root.
type Entry struct {
	// Path is the full path of the file on the scanned filesystem.
	Path string
	// Rel is Path relative to the scan root, slash separated.
	Rel     string
	Name    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	// Symlink is set when the entry was reached through a followed link.
	Symlink bool
}

// Result contains the complete scan results. Files are in enumeration
// order: directory entries sorted by name, depth first.
type Result struct {
	Files []Entry
	Stats ScanStats
}

// ScanStats contains statistics about the scanning operation
type ScanStats struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalFiles int64
	TotalDirs  int64
	TotalSize  int64

	// Ignored counts entries dropped by ignore patterns, exclusions,
	// unfollowed symlinks and non-regular files.
	Ignored int64
}

// Config contains scanner configuration options
type Config struct {
	// MaxDepth limits how many directory levels below the root are
	// descended into. Negative means unlimited, 0 lists the root only.
	MaxDepth int

	// IgnorePatterns are doublestar globs. A pattern without a slash is
	// matched against the entry name, otherwise against the path relative
	// to the root. A trailing slash restricts the pattern to directories.
	IgnorePatterns []string

	// FollowSymlinks includes symlinks that point at regular files.
	// Links to directories are never descended into.
	FollowSymlinks bool

	// Exclude lists subtrees that are skipped entirely, such as a target
	// directory nested inside the source.
	Exclude []string
}

// Progress represents the current progress of the scanning operation
type Progress struct {
	FilesFound         int64
	DirectoriesScanned int64
	Ignored            int64
	CurrentDepth       int
	StartTime          time.Time
}

// ScannerStats holds the atomic counters for scanner statistics
type ScannerStats struct {
	filesFound         atomic.Int64
	directoriesScanned atomic.Int64
	bytesFound         atomic.Int64
	ignored            atomic.Int64
	currentDepth       atomic.Int32
}
