package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const version = "1.0.0"

// Version returns the engine version.
func Version() string { return version }

// PortStatus is the reachability state of a single TCP port.
// The numeric values are stable and match the historical status codes.
type PortStatus uint8

const (
	Filtered PortStatus = iota
	Open
	Closed
)

var statusNames = [...]string{
	Filtered: "filtered",
	Open:     "open",
	Closed:   "closed",
}

// Valid reports whether s is one of Filtered, Open or Closed.
func (s PortStatus) Valid() bool { return int(s) < len(statusNames) }

func (s PortStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("PortStatus(%d)", uint8(s))
	}
	return statusNames[s]
}

// ParseStatus maps a status name to its PortStatus, ignoring case.
func ParseStatus(name string) (PortStatus, error) {
	for i, n := range statusNames {
		if strings.EqualFold(name, n) {
			return PortStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

func (s PortStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *PortStatus) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ScanResult is the classified state of one port. Err is set only when
// the port could not be probed; its Status is then meaningless.
type ScanResult struct {
	Port   uint16     `json:"port"`
	Status PortStatus `json:"status"`
	Err    error      `json:"-"`
}

// Failed reports whether the port could not be probed.
func (r ScanResult) Failed() bool { return r.Err != nil }

// Scan probes every port in [portStart, portEnd] on address and returns
// one result per port in ascending order.
//
// Validation failures match ErrInvalidArgument or ErrOutOfRange and happen
// before any socket is opened. Unrecoverable network or resource failures
// match ErrEngineFailure; a *PartialError names the ports that failed.
// When the session deadline expires first, the full result list comes back
// together with an *IncompleteError naming the ports that were never
// answered.
func Scan(ctx context.Context, address string, portStart, portEnd int, opts ...Option) ([]ScanResult, error) {
	req, err := NewRequest(address, portStart, portEnd)
	if err != nil {
		return nil, err
	}

	report, err := NewSession(req, opts...).Execute(ctx)
	if err != nil {
		if errors.Is(err, ErrResourceExhausted) && !errors.Is(err, ErrEngineFailure) {
			err = fmt.Errorf("%w: %w", ErrEngineFailure, err)
		}
		return nil, err
	}
	if report.Incomplete() {
		return report.Results(), &IncompleteError{Pending: report.Pending()}
	}
	return report.Results(), nil
}
