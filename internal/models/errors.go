package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies job failures for the error envelope.
type ErrorKind string

const (
	KindInvalidConfiguration ErrorKind = "invalid_configuration"
	KindFetch                ErrorKind = "fetch_error"
	KindDecode               ErrorKind = "decode_error"
	KindUnsupportedFormat    ErrorKind = "unsupported_format"
	KindConversion           ErrorKind = "conversion_error"
	KindTimeout              ErrorKind = "timeout"
	KindExport               ErrorKind = "export_error"
	KindInternal             ErrorKind = "internal_error"
)

// JobError is a classified failure raised anywhere in the conversion
// pipeline. The orchestrator recovers every JobError into an error
// envelope; nothing else escapes to the entry points.
type JobError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *JobError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

// NewJobError creates a JobError without an underlying cause.
func NewJobError(kind ErrorKind, format string, args ...interface{}) *JobError {
	return &JobError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapJobError attaches a cause to a classified failure.
func WrapJobError(kind ErrorKind, cause error, format string, args ...interface{}) *JobError {
	return &JobError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the classification from err, or KindInternal when the
// error was never classified.
func KindOf(err error) ErrorKind {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return KindInternal
}

// ShortMessage returns the user-visible message for err. Raw causes stay
// in the logs; the envelope only ever carries the short form.
func ShortMessage(err error) string {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Message
	}
	return "document processing failed"
}
