package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument reports an argument of the wrong kind, e.g. a
	// non-string address or a non-integer port.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange reports a port outside 1-65535 or an inverted range.
	ErrOutOfRange = errors.New("out of range")
	// ErrResolution reports a target that cannot be mapped to an endpoint.
	ErrResolution = errors.New("address resolution failed")
	// ErrEngineFailure reports a socket, permission or transport failure
	// that prevented the engine from asking the target.
	ErrEngineFailure = errors.New("engine failure")
	// ErrResourceExhausted reports local capacity (descriptors, buffers,
	// ephemeral ports) that stayed exhausted after bounded retries.
	ErrResourceExhausted = errors.New("local resources exhausted")
	// ErrUnknownStatus reports a status name or code outside the enumeration.
	ErrUnknownStatus = errors.New("unknown port status")
	// ErrSessionReused is returned when Execute is called twice on a session.
	ErrSessionReused = errors.New("session already executed")

	errSlotTaken = errors.New("result slot already written")
)

// ValidationError describes a request rejected before any network I/O.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v", e.Err, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalidArgument(field string, value any) error {
	return &ValidationError{Field: field, Value: value, Err: ErrInvalidArgument}
}

func outOfRange(field string, value any) error {
	return &ValidationError{Field: field, Value: value, Err: ErrOutOfRange}
}

// ResolutionError wraps the cause of a failed address resolution.
// It matches ErrResolution.
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// PortError records an engine failure on a single port.
type PortError struct {
	Port uint16
	Err  error
}

func (e PortError) Error() string {
	return fmt.Sprintf("port %d: %v", e.Port, e.Err)
}

// PartialError is returned alongside a degraded report: the session
// finished, but the listed ports could not be probed. It matches
// ErrEngineFailure.
type PartialError struct {
	Failed []PortError
}

func (e *PartialError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %d port(s)", ErrEngineFailure, len(e.Failed))
	if len(e.Failed) > 0 {
		fmt.Fprintf(&b, ", first %s", e.Failed[0].Error())
	}
	return b.String()
}

func (e *PartialError) Is(target error) bool { return target == ErrEngineFailure }

func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// Ports lists the unresolved ports in ascending order.
func (e *PartialError) Ports() []uint16 {
	ports := make([]uint16, len(e.Failed))
	for i, f := range e.Failed {
		ports[i] = f.Port
	}
	return ports
}

// IncompleteError is returned by Scan when the session deadline expired
// before every port was classified. The listed ports are reported as
// Filtered without having been answered. It matches
// context.DeadlineExceeded.
type IncompleteError struct {
	Pending []uint16
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("scan incomplete: deadline expired with %d port(s) unclassified", len(e.Pending))
}

func (e *IncompleteError) Unwrap() error { return context.DeadlineExceeded }
