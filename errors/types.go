package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Raw notification errors
	ErrCodeParse       ErrorCode = "PARSE_ERROR"
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_KIND"

	// Classification diagnostics
	ErrCodeDisambiguation   ErrorCode = "DISAMBIGUATION_FAILED"
	ErrCodeUnmatchedPattern ErrorCode = "UNMATCHED_PATTERN"

	// Source process errors
	ErrCodeSourceSpawn  ErrorCode = "SOURCE_SPAWN"
	ErrCodeSourceExit   ErrorCode = "SOURCE_EXIT"
	ErrCodeSourceStderr ErrorCode = "SOURCE_STDERR"

	// Journal errors
	ErrCodeJournal ErrorCode = "JOURNAL_ERROR"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// NotifyError represents a structured error with context
type NotifyError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *NotifyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *NotifyError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *NotifyError) WithDetail(key string, value interface{}) *NotifyError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *NotifyError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// MarshalJSON includes the cause as a string so errors survive the event stream.
func (e *NotifyError) MarshalJSON() ([]byte, error) {
	type alias NotifyError
	var cause string
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return json.Marshal(struct {
		*alias
		Cause string `json:"cause,omitempty"`
	}{alias: (*alias)(e), Cause: cause})
}

// New creates a new NotifyError
func New(code ErrorCode, message string) *NotifyError {
	return &NotifyError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a NotifyError
func Wrap(err error, code ErrorCode, message string) *NotifyError {
	return &NotifyError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific NotifyError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	notifyErr, ok := err.(*NotifyError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return notifyErr.Code
}

// Recoverable reports whether the session keeps running after err.
// Only source process failures leave the session unusable.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeSourceSpawn, ErrCodeSourceExit:
		return false
	}
	return true
}
