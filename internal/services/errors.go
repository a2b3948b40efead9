// Package services defines the business logic for characters and chat
// exchanges. This file holds the error model shared by every operation:
// services return *Error values tagged with a Kind, and the HTTP layer maps
// each kind to a status code in a single place.
package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.
type Kind int

const (
	// KindInternal covers store or generator failures and anything unexpected.
	KindInternal Kind = iota
	// KindValidation is malformed input, detected before any store access.
	KindValidation
	// KindConflict is a duplicate character name.
	KindConflict
	// KindNotFound is a referenced character that does not exist.
	KindNotFound
	// KindInProgress is a retry whose idempotency key is still being answered.
	KindInProgress
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConflict:
		return "ConflictError"
	case KindNotFound:
		return "NotFoundError"
	case KindInProgress:
		return "InProgressError"
	default:
		return "InternalError"
	}
}

// Error is the result type for failed service operations.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error // underlying cause, never shown to clients beyond its message
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError reports malformed input. details maps field names to messages.
func ValidationError(msg string, details map[string]any) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// ConflictError reports a uniqueness violation.
func ConflictError(msg string, details map[string]any) *Error {
	return &Error{Kind: KindConflict, Message: msg, Details: details}
}

// NotFoundError reports a missing referenced record.
func NotFoundError(msg string, details map[string]any) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Details: details}
}

// InProgressError reports a request that duplicates one still running.
func InProgressError(msg string, details map[string]any) *Error {
	return &Error{Kind: KindInProgress, Message: msg, Details: details}
}

// InternalError wraps an unexpected failure. The cause's message is exposed
// under details.error.
func InternalError(msg string, err error) *Error {
	details := map[string]any{}
	if err != nil {
		details["error"] = err.Error()
	}
	return &Error{Kind: KindInternal, Message: msg, Details: details, Err: err}
}

// AsError extracts a *Error from err. Any other non-nil error is reported as
// an InternalError so callers always get a classified value.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return InternalError(MsgUnexpected, err)
}

// Client-facing messages.
const (
	MsgValidation        = "Validation failed"
	MsgCharacterExists   = "Character already exists"
	MsgCharacterNotFound = "Character not found"
	MsgCharactersMissing = "One or both characters not found"
	MsgCreateFailed      = "Failed to create character"
	MsgUnexpected        = "An unexpected error occurred"
	MsgRequestInProgress = "A request with this Idempotency-Key is still in progress"
)
