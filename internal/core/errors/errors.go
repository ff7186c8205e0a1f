package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"

	// Lexical and declaration-time codes. Always fatal.
	CodeMalformedToken    ErrorCode = "MALFORMED_TOKEN"
	CodeScopeMismatch     ErrorCode = "SCOPE_MISMATCH"
	CodeDuplicateSignalID ErrorCode = "DUPLICATE_SIGNAL_ID"
	CodeInvalidWidth      ErrorCode = "INVALID_WIDTH"

	// Body-time codes. Fatal in strict mode, counted and skipped in lenient mode.
	CodeUnknownSignalReference ErrorCode = "UNKNOWN_SIGNAL_REFERENCE"
	CodeNonMonotonicTime       ErrorCode = "NON_MONOTONIC_TIME"
	CodeVectorWidthMismatch    ErrorCode = "VECTOR_WIDTH_MISMATCH"

	// Configuration-time.
	CodeNoClockSignal ErrorCode = "NO_CLOCK_SIGNAL"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxLine      = "line"
	CtxOffset    = "offset"
	CtxSignal    = "signal"
	CtxToken     = "token"
	// CtxCycles is the number of cycles captured before a body-time failure.
	CtxCycles = "cycles"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithPosition records where in the input the error was detected.
func (e *DomainError) WithPosition(line int, offset int64) *DomainError {
	return e.WithContext(CtxLine, line).WithContext(CtxOffset, offset)
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if line, ok := e.Context[CtxLine].(int); ok {
		msg = fmt.Sprintf("line %d: %s", line, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if extra := e.extraContext(); extra != "" {
		msg += " " + extra
	}
	return msg
}

// extraContext renders context keys other than the position in a stable order.
func (e *DomainError) extraContext() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		if k == CtxLine || k == CtxOffset {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// AtPosition records an input position on the DomainError in err's chain,
// keeping any position already set. Plain errors are wrapped as internal.
func AtPosition(err error, line int, offset int64) error {
	var de *DomainError
	if !errors.As(err, &de) {
		de = &DomainError{Code: CodeInternal, Message: "wrapped error", Err: err}
		err = de
	}
	if _, ok := de.Context[CtxLine]; !ok {
		de.WithPosition(line, offset)
	}
	return err
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// LineOf returns the input line recorded on err, if any.
func LineOf(err error) (int, bool) {
	var de *DomainError
	if !errors.As(err, &de) {
		return 0, false
	}
	line, ok := de.Context[CtxLine].(int)
	return line, ok
}

// ContextValue returns the value stored under key on the DomainError in
// err's chain.
func ContextValue(err error, key string) (interface{}, bool) {
	var de *DomainError
	if !errors.As(err, &de) {
		return nil, false
	}
	v, ok := de.Context[key]
	return v, ok
}

// IsBodyCode reports whether code belongs to the value-change section and may
// be downgraded to a skipped record in lenient mode.
func IsBodyCode(code ErrorCode) bool {
	switch code {
	case CodeUnknownSignalReference, CodeNonMonotonicTime, CodeVectorWidthMismatch:
		return true
	}
	return false
}
