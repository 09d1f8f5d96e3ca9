package rulepkg

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrorCode identifies why a rule package was rejected.
type ErrorCode string

const (
	ErrSyntax            ErrorCode = "SYNTAX"
	ErrNotObject         ErrorCode = "NOT_OBJECT"
	ErrMissingFields     ErrorCode = "MISSING_FIELDS"
	ErrWrongType         ErrorCode = "WRONG_TYPE"
	ErrFieldNotString    ErrorCode = "FIELD_NOT_STRING"
	ErrConflictingFields ErrorCode = "CONFLICTING_FIELDS"
	ErrRulesNotObject    ErrorCode = "RULES_NOT_OBJECT"
	ErrRuleNotString     ErrorCode = "RULE_NOT_STRING"
	ErrRuleEmpty         ErrorCode = "RULE_EMPTY"
	ErrRuleInvalid       ErrorCode = "RULE_INVALID"
	ErrNothingToExport   ErrorCode = "NOTHING_TO_EXPORT"
)

// ValidationError is a user-facing rule package error. Fields names every
// offending field.
type ValidationError struct {
	Code    ErrorCode
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("invalid rule package: %s", e.Message)
	}
	return fmt.Sprintf("invalid rule package: %s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// Is reports whether target is a *ValidationError with the same code.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func invalid(code ErrorCode, message string, fields ...string) *ValidationError {
	return &ValidationError{Code: code, Fields: fields, Message: message}
}

// IsCode reports whether err is a *ValidationError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var e *ValidationError
	return errors.As(err, &e) && e.Code == code
}
