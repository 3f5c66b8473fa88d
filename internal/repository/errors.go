// Package repository defines the SQL data access for the theatre
// catalog, accounts and bookings, together with the error types that
// are reused across repositories and services.  These values let
// handlers distinguish failure scenarios without inspecting driver
// errors: ErrNotFound maps to 404, a *ValidationError to 400 and
// anything matching ErrConflict to 409.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id finds no row, or when the
// row exists but is not visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrConflict is the sentinel every *ConflictError matches via errors.Is.
var ErrConflict = errors.New("conflict")

// ValidationError reports input that violates a domain rule.  Field is
// the offending request field and may be empty.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// ConflictError reports a uniqueness violation such as a taken seat or
// a duplicate name.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// Is makes errors.Is(err, ErrConflict) true for every ConflictError.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Invalid builds a *ValidationError.
func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// Conflict builds a *ConflictError.
func Conflict(msg string) error { return &ConflictError{Msg: msg} }

// Messages shared by repositories and the booking service.
const (
	MsgDuplicateName     = "duplicate name"
	MsgSeatTaken         = "seat already taken"
	MsgOutOfRange        = "out of range"
	MsgTicketsRequired   = "tickets required"
	MsgNoSuchPerformance = "no such performance"
)
