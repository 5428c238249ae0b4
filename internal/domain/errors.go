// Package domain defines core types, interfaces, and errors for the
// knowledge-sharing control plane.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource, lost race).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// SourceUnavailableError indicates an external document source could not be
// reached to confirm access. It is never degraded into an allow or deny
// answer; callers must surface it.
type SourceUnavailableError struct {
	Source  string
	Message string
	Err     error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// InviteStateError indicates an invite is in a state that forbids the
// attempted operation. State is one of the terminal invite statuses.
type InviteStateError struct {
	State   InviteStatus
	Message string
}

func (e *InviteStateError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrSourceUnavailable creates a SourceUnavailableError for the named source.
func ErrSourceUnavailable(source string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{
		Source:  source,
		Message: fmt.Sprintf("source %q unavailable", source),
		Err:     err,
	}
}

// ErrInviteState creates an InviteStateError with a formatted message.
func ErrInviteState(state InviteStatus, format string, args ...interface{}) *InviteStateError {
	return &InviteStateError{State: state, Message: fmt.Sprintf(format, args...)}
}
