// Package repository holds the MySQL implementations of the booking
// gateways and the sentinel errors shared by every store.  Higher layers
// such as the services and handlers classify failures with errors.Is on
// these values.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded update finds the row in a
// different state than the caller expected, for example a reservation
// whose status changed between read and write.  Handlers translate it into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique key, such as a
// second staff account with the same email.
var ErrDuplicate = errors.New("duplicate")
