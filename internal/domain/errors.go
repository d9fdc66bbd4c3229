package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput covers malformed emails and unrecognized action types.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotification signals that the confirmation message could not be
	// dispatched. The request row is still persisted so it can be resent.
	ErrNotification = errors.New("confirmation dispatch failed")
	// ErrOutOfRange rejects step indices outside the source list. Indices are
	// never clamped; a bad index is a driver bug and must surface.
	ErrOutOfRange = errors.New("step index out of range")
	// ErrIllegalTransition is returned when a lifecycle event is not legal for
	// the request's current status.
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrConflict          = errors.New("conflict")
	ErrTokenExpired      = errors.New("token expired")
	ErrUnauthorized      = errors.New("unauthorized")
)

// SourceError reports a data-source page callback failure with enough context
// for an operator to retry the exact step.
type SourceError struct {
	Source string
	Page   int
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q failed on page %d: %v", e.Source, e.Page, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
