// Package errs defines the error taxonomy shared by every service.
//
// Storage and services return these types; the HTTP layer maps them to status
// codes with errors.As. ExternalServiceError never reaches a caller that
// triggered it: push delivery and token cleanup log and swallow it in the
// background.
package errs

import "fmt"

// ValidationError rejects bad input before any write happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PermissionError rejects an action outside the permission policy table.
type PermissionError struct {
	// Action is the operation that was attempted (e.g., "approve").
	Action string
	// Msg explains what was required.
	Msg string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Msg)
}

// NotFoundError reports an unknown mess, member, or record id.
type NotFoundError struct {
	Kind string // "mess", "member", "transaction", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// LockedError rejects a meal toggle attempted after the cutoff time.
type LockedError struct {
	Meal   string
	Cutoff string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s is locked after %s", e.Meal, e.Cutoff)
}

// StateConflictError reports a workflow transition applied to a record that
// is not in the expected state, e.g. approving a deletion already rejected.
type StateConflictError struct {
	ID      string
	Current string
	Want    string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("transaction %s is %s, want %s", e.ID, e.Current, e.Want)
}

// ExternalServiceError wraps a failure from a collaborator outside the core
// (the push delivery service). It carries the underlying error for logging.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
