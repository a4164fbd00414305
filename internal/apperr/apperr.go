// Package apperr defines the workflow error taxonomy. Services return these
// types; handlers map them to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity string, id int) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError reports input that fails a business rule before any write.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a write that collides with existing state, such as a
// duplicate proposal or a terminal status transition.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// Conflict builds a ConflictError.
func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// AuthorizationError reports a caller acting on an entity it does not own.
type AuthorizationError struct {
	CallerID int
	Msg      string
}

func (e *AuthorizationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "caller is not authorized for this operation"
}

// Forbidden builds an AuthorizationError.
func Forbidden(callerID int, msg string) error {
	return &AuthorizationError{CallerID: callerID, Msg: msg}
}

// StoreError wraps a failure of the backing store itself.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps err as a StoreError unless it already belongs to the taxonomy.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsValidation(err) || IsConflict(err) || IsForbidden(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsForbidden reports whether err is an AuthorizationError.
func IsForbidden(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}
