package service

import (
    "errors"
    "fmt"

    "github.com/iliyamo/table-reservation/internal/repository"
)

// Error kinds returned by the booking services.  Callers classify failures
// with errors.Is; the message of the returned error is a user-facing reason.
var (
    // ErrValidation marks malformed input (party size, past dates, times
    // outside operating hours).  No state was changed.
    ErrValidation = errors.New("validation failed")
    // ErrPolicy marks a request that is well formed but breaks a booking
    // rule: advance notice, cutoff window, zero allocation.
    ErrPolicy = errors.New("policy violation")
    // ErrNoCapacity means there are no tables or seats for the request.
    // It is a normal outcome, not a fault.
    ErrNoCapacity = errors.New("no capacity")
    // ErrInvalidState means the target exists but its status does not
    // allow the operation.
    ErrInvalidState = errors.New("invalid state")
    // ErrNotFound is the repository sentinel for missing outlets,
    // reservations, holds and queue entries.
    ErrNotFound = repository.ErrNotFound
)

// Error carries a user-facing Reason and the kind it belongs to.
type Error struct {
    Kind   error
    Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
    return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// notFound maps the repository sentinel to a reason naming the entity and
// passes any other error through.
func notFound(err error, format string, args ...any) error {
    if errors.Is(err, repository.ErrNotFound) {
        return newError(ErrNotFound, format, args...)
    }
    return err
}
