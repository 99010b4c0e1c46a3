// Package reconcile implements the reconciliation core: diffing desired
// entities against remote state into an ordered action plan, and applying
// that plan against resources that may reject concurrent writes.
package reconcile

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an error for batch-abort and exit-code decisions.
type ErrorClass string

const (
	// ErrorClassValidation indicates bad input. Validation errors are fatal
	// before any network call and abort the whole batch.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassRemote indicates the platform rejected a request. Remote
	// errors are recorded per-entity; the batch continues.
	ErrorClassRemote ErrorClass = "remote"

	// ErrorClassCoordination indicates a timeout or interruption while
	// waiting for a busy resource. Recorded per-entity; the batch continues
	// except after an interrupt.
	ErrorClassCoordination ErrorClass = "coordination"

	// ErrorClassCodec indicates secret material could not be resolved.
	// Fatal for the entity; fatal for the run when the key itself is missing.
	ErrorClassCodec ErrorClass = "codec"
)

// Error codes for programmatic handling.
const (
	ErrCodeDuplicateName        = "duplicate_name"
	ErrCodeInvalidKind          = "invalid_kind"
	ErrCodePreflightMissingFile = "preflight_missing_file"
	ErrCodeAlreadyInUse         = "already_in_use"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeMalformedRequest     = "malformed_request"
	ErrCodeNotFound             = "not_found"
	ErrCodeTimeout              = "timeout"
	ErrCodeInterrupted          = "interrupted"
	ErrCodeMissingKey           = "missing_encryption_key"
	ErrCodeDecryption           = "decryption_failed"
	ErrCodeEncryptedPlainValue  = "encrypted_value_not_allowed_for_plain_variable"
)

// ReconcileError is a classified error with entity context.
//
//nolint:revive // intentionally named to distinguish from standard errors
type ReconcileError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Entity is the entity identifier this error applies to, if any.
	Entity string `json:"entity,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Entity != "" {
		return fmt.Sprintf("[%s] %s (entity=%s)", e.Class, msg, e.Entity)
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// Is matches errors by class and code so callers can use errors.Is with a
// prototype error.
func (e *ReconcileError) Is(target error) bool {
	t, ok := target.(*ReconcileError)
	if !ok {
		return false
	}
	return e.Class == t.Class && (t.Code == "" || e.Code == t.Code)
}

// WithCode sets the error code.
func (e *ReconcileError) WithCode(code string) *ReconcileError {
	e.Code = code
	return e
}

// WithEntity sets the entity identifier.
func (e *ReconcileError) WithEntity(entity string) *ReconcileError {
	e.Entity = entity
	return e
}

// NewValidationError creates a validation-class error.
func NewValidationError(message string, err error) *ReconcileError {
	return &ReconcileError{Class: ErrorClassValidation, Message: message, Err: err}
}

// NewRemoteError creates a remote-class error.
func NewRemoteError(message string, err error) *ReconcileError {
	return &ReconcileError{Class: ErrorClassRemote, Message: message, Err: err}
}

// NewCoordinationError creates a coordination-class error.
func NewCoordinationError(message string, err error) *ReconcileError {
	return &ReconcileError{Class: ErrorClassCoordination, Message: message, Err: err}
}

// NewCodecError creates a codec-class error.
func NewCodecError(message string, err error) *ReconcileError {
	return &ReconcileError{Class: ErrorClassCodec, Message: message, Err: err}
}

// ClassOf returns the error class, or empty when err is not classified.
func ClassOf(err error) ErrorClass {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Class
	}
	return ""
}

// CodeOf returns the error code, or empty when err is not classified.
func CodeOf(err error) string {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsFatal reports whether the error must abort the whole batch rather than
// be recorded per-entity. Validation errors and a missing encryption key are
// fatal; everything else is recorded and the batch continues.
func IsFatal(err error) bool {
	var re *ReconcileError
	if !errors.As(err, &re) {
		return false
	}
	if re.Class == ErrorClassValidation {
		return true
	}
	return re.Class == ErrorClassCodec && re.Code == ErrCodeMissingKey
}
