package scanner

import (
	"os"

	"github.com/spf13/afero"
)

// NewScannerStats creates and initializes a new ScannerStats instance
func NewScannerStats() *ScannerStats {
	return &ScannerStats{}
}

// Reset zeroes every counter.
func (s *ScannerStats) Reset() {
	s.filesFound.Store(0)
	s.directoriesScanned.Store(0)
	s.bytesFound.Store(0)
	s.ignored.Store(0)
	s.currentDepth.Store(0)
}

func (s *ScannerStats) AddFilesFound(delta int64) int64 {
	return s.filesFound.Add(delta)
}

func (s *ScannerStats) AddDirectoriesScanned(delta int64) int64 {
	return s.directoriesScanned.Add(delta)
}

func (s *ScannerStats) AddBytesFound(delta int64) int64 {
	return s.bytesFound.Add(delta)
}

func (s *ScannerStats) AddIgnored(delta int64) int64 {
	return s.ignored.Add(delta)
}

func (s *ScannerStats) SetCurrentDepth(depth int32) int32 {
	return s.currentDepth.Swap(depth)
}

func (s *ScannerStats) GetFilesFound() int64 {
	return s.filesFound.Load()
}

func (s *ScannerStats) GetDirectoriesScanned() int64 {
	return s.directoriesScanned.Load()
}

func (s *ScannerStats) GetBytesFound() int64 {
	return s.bytesFound.Load()
}

func (s *ScannerStats) GetIgnored() int64 {
	return s.ignored.Load()
}

func (s *ScannerStats) GetCurrentDepth() int32 {
	return s.currentDepth.Load()
}

// lstat returns the entry's own info when the filesystem can tell links
// apart, and plain Stat otherwise.
func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}
