package workflow

import (
	"errors"
	"fmt"
)

// Kind tags a workflow failure so callers can branch without string matching.
type Kind string

const (
	// KindUnauthorized means the actor's role does not hold the current
	// stage, or the actor is not the owner for an owner-only operation.
	KindUnauthorized Kind = "UNAUTHORIZED"
	// KindInvalidTransition means the operation is not legal from the
	// indent's current status regardless of who asks.
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	// KindValidation means a required input is missing or malformed.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindNotFound means the referenced indent does not resolve.
	KindNotFound Kind = "NOT_FOUND"
	// KindInfrastructure means an external collaborator (store, notifier)
	// failed; the indent was left untouched.
	KindInfrastructure Kind = "INFRASTRUCTURE_ERROR"
)

// Error is the tagged failure every engine operation returns instead of a
// bare error, so HTTP handlers and the bulk coordinator can map or aggregate
// outcomes without exception-style control flow.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func invalidTransition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("indent %s not found", id)}
}

func infrastructure(err error, msg string) *Error {
	return &Error{Kind: KindInfrastructure, Message: msg, Err: err}
}

// KindOf extracts the failure kind from an error returned by the engine.
// KindInfrastructure is returned for errors that did not come from the
// workflow package at all.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindInfrastructure
}
