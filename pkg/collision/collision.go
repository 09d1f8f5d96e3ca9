// Package collision picks destination paths that do not overwrite existing
// files, by appending a numeric suffix to the file stem.
package collision

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Split splits name at its last dot into stem and extension. The extension
// keeps its dot; a name without a dot has an empty extension.
func Split(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// Candidate returns the n-th candidate name: name itself for n == 0,
// "{stem}_{n}{ext}" otherwise.
func Candidate(name string, n int) string {
	if n == 0 {
		return name
	}
	stem, ext := Split(name)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// Resolve returns dir/name when it does not exist, otherwise the first
// dir/{stem}_{n}{ext} with n = 1, 2, ... that does not exist. It only checks
// existence and creates nothing.
func Resolve(fs afero.Fs, dir, name string) (string, error) {
	for n := 0; ; n++ {
		p := filepath.Join(dir, Candidate(name, n))
		exists, err := exists(fs, p)
		if err != nil {
			return "", err
		}
		if !exists {
			return p, nil
		}
	}
}

func exists(fs afero.Fs, path string) (bool, error) {
	// Lstat so a dangling symlink still counts as taken.
	var err error
	if lstater, ok := fs.(afero.Lstater); ok {
		_, _, err = lstater.LstatIfPossible(path)
	} else {
		_, err = fs.Stat(path)
	}
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking %s: %w", path, err)
}

// Resolver resolves paths like Resolve and also remembers every path it has
// returned, so that one run never hands out the same path twice even before
// the caller has created the file.
type Resolver struct {
	fs       afero.Fs
	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewResolver creates a Resolver over fs.
func NewResolver(fs afero.Fs) *Resolver {
	return &Resolver{
		fs:       fs,
		reserved: make(map[string]struct{}),
	}
}

// Resolve returns a path under dir that neither exists nor was returned
// earlier by this Resolver, and reserves it.
func (r *Resolver) Resolve(dir, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for n := 0; ; n++ {
		p := filepath.Join(dir, Candidate(name, n))
		if _, taken := r.reserved[p]; taken {
			continue
		}
		exists, err := exists(r.fs, p)
		if err != nil {
			return "", err
		}
		if !exists {
			r.reserved[p] = struct{}{}
			return p, nil
		}
	}
}

// Release forgets a reservation, typically after the transfer to path
// failed before anything was written.
func (r *Resolver) Release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, path)
}
