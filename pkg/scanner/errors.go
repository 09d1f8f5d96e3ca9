package scanner

import (
	"fmt"
	"os"
)

// PermissionError is returned when a directory or entry under the source
// tree cannot be read because of its permissions.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// EnumerationError is any other failure to list the source tree.
type EnumerationError struct {
	Path string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("cannot enumerate %s: %v", e.Path, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

func enumerationError(path string, err error) error {
	if os.IsPermission(err) {
		return &PermissionError{Path: path, Err: err}
	}
	return &EnumerationError{Path: path, Err: err}
}
