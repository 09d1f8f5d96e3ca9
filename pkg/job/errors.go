package job

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ErrorCode identifies why a job was rejected before it started.
type ErrorCode string

const (
	ErrEmptySource      ErrorCode = "EMPTY_SOURCE"
	ErrEmptyTarget      ErrorCode = "EMPTY_TARGET"
	ErrSameDirectory    ErrorCode = "SAME_DIRECTORY"
	ErrInvalidMode      ErrorCode = "INVALID_MODE"
	ErrEmptyRules       ErrorCode = "EMPTY_RULES"
	ErrSourceMissing    ErrorCode = "SOURCE_MISSING"
	ErrSourceNotDir     ErrorCode = "SOURCE_NOT_DIRECTORY"
	ErrSourceUnreadable ErrorCode = "SOURCE_UNREADABLE"
)

// ValidationError is returned synchronously when a job cannot start. No
// job exists when it is returned.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is reports whether target is a *ValidationError with the same code.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func invalid(code ErrorCode, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a *ValidationError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var e *ValidationError
	return errors.As(err, &e) && e.Code == code
}
