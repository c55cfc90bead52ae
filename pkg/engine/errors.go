package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted marks a cooperative cancellation requested through
// AbortCurrentCycle or the caller's context. It is never returned from
// RunFullSync; an aborted cycle ends in state ABORTED with a nil error.
var ErrAborted = errors.New("sync cycle aborted")

// ListenerError records a single listener or producer failure. It never
// fails the kind on its own; it disqualifies the cycle's deletion phase.
type ListenerError struct {
	Kind     string
	Listener string
	Err      error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s failed for kind %q: %v", e.Listener, e.Kind, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// MappingError records a single record that failed transformation. Sibling
// records of the same batch are unaffected.
type MappingError struct {
	Kind string
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping failed for kind %q: %v", e.Kind, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// ApplierError records a catalog write or read failure. For the deletion
// gate it counts exactly like a listener failure: the inventory cannot be
// trusted to be complete.
type ApplierError struct {
	Op  string
	Err error
}

func (e *ApplierError) Error() string {
	return fmt.Sprintf("catalog %s failed: %v", e.Op, e.Err)
}

func (e *ApplierError) Unwrap() error { return e.Err }

// CycleError aggregates every error recorded during one cycle. RunFullSync
// returns it only when called with silent=false.
type CycleError struct {
	CycleID string
	Errs    []error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("sync cycle %s completed with %d errors, first error: %v", e.CycleID, len(e.Errs), e.Errs[0])
}

// Unwrap exposes the recorded errors to errors.Is and errors.As.
func (e *CycleError) Unwrap() []error { return e.Errs }

// isAbort reports whether err is a cooperative cancellation rather than a
// real failure. Deadline errors stay real failures: a listener hitting its
// own timeout must surface through the error channel like any other fault.
func isAbort(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}
