package rules

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ErrorCode identifies a class of rule store errors.
type ErrorCode string

const (
	ErrEmptyKeyword    ErrorCode = "EMPTY_KEYWORD"
	ErrInvalidFolder   ErrorCode = "INVALID_FOLDER"
	ErrEmptyGroupName  ErrorCode = "EMPTY_GROUP_NAME"
	ErrGroupExists     ErrorCode = "GROUP_EXISTS"
	ErrGroupNotFound   ErrorCode = "GROUP_NOT_FOUND"
	ErrRuleNotFound    ErrorCode = "RULE_NOT_FOUND"
	ErrDefaultReserved ErrorCode = "DEFAULT_RESERVED"
)

// Error is returned by every Store and Group mutation that is rejected.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a rules *Error carrying code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
