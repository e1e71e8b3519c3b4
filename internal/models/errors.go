package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no vendor exists for an id.
var ErrNotFound = errors.New("vendor not found")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateError reports a case-insensitive (name, transport_name) clash.
type DuplicateError struct {
	ExistingID    int64
	Name          string
	TransportName string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Vendor with name %q and transport name %q already exists", e.Name, e.TransportName)
}

// Causes of a StoreUnavailableError.
const (
	CauseConnectionRefused = "connection_refused"
	CauseAuthFailed        = "auth_failed"
	CauseHostUnresolved    = "host_unresolved"
	CauseDatabaseMissing   = "database_missing"
	CauseTimeout           = "timeout"
)

// StoreUnavailableError means the database could not be reached at all, as
// opposed to a statement failing.
type StoreUnavailableError struct {
	Cause string
	Hint  string
	Err   error
}

func (e *StoreUnavailableError) Error() string {
	return "database unavailable (" + e.Cause + ")"
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
