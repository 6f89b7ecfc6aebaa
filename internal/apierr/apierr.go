// Package apierr defines the closed set of error kinds the dispatch engine
// returns, and the HTTP status they map to. Call sites construct an *Error
// with the narrowest applicable kind; callers use errors.As to recover it.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a closed taxonomy of error categories. Adding a new Kind also
// requires adding it to StatusFor.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindUnauthorized    Kind = "unauthorized"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindBusyVolunteer   Kind = "busy_volunteer"
	KindProvider        Kind = "provider"
	KindInternal        Kind = "internal"
)

// Error is the dispatch engine's error type. Code is a stable,
// machine-readable identifier (e.g. "AlreadyTaken", "TreeNotFound");
// Message is a human-facing description safe to return to a client.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap constructs an *Error that wraps an underlying cause, for errors.Is/As
// chains and for logging the original failure alongside the public message.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

// StatusFor maps a Kind to the HTTP status code the request surface returns.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindBusyVolunteer:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProvider, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// As recovers an *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusForErr resolves the HTTP status for an arbitrary error: the Kind's
// status if it is (or wraps) an *Error, otherwise 500.
func StatusForErr(err error) int {
	if e, ok := As(err); ok {
		return StatusFor(e.Kind)
	}
	return http.StatusInternalServerError
}

// Common, named errors reused across packages so callers don't restate the
// code/message pair at every call site.
var (
	ErrTreeNotFound      = New(KindNotFound, "TreeNotFound", "tree not found or inactive")
	ErrAlertNotFound     = New(KindNotFound, "AlertNotFound", "alert not found")
	ErrVolunteerNotFound = New(KindNotFound, "VolunteerNotFound", "volunteer not found")
	ErrAlreadyActive     = New(KindConflict, "AlreadyActive", "an active alert already exists for this tree and type")
	ErrAlreadyTaken      = New(KindConflict, "AlreadyTaken", "alert already accepted by another volunteer")
	ErrVolunteerBusy     = New(KindBusyVolunteer, "VolunteerBusy", "volunteer has an in-flight alert")
)
