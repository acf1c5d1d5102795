package scanner

import (
	"fmt"
	"sync/atomic"
	"time"
)

// slot holds the result for one port. written flips exactly once.
type slot struct {
	written atomic.Bool
	result  ScanResult
}

// resultSink is a pre-sized arena with one slot per port of the request.
// Units write their own slots without locking; the arena is read only
// after every unit has returned.
type resultSink struct {
	start uint16
	slots []slot
}

func newResultSink(start, end uint16) *resultSink {
	return &resultSink{
		start: start,
		slots: make([]slot, int(end)-int(start)+1),
	}
}

// put stores r in its port's slot. A second write to the same slot is a
// classification bug and is reported instead of overwriting.
func (s *resultSink) put(r ScanResult) error {
	i := int(r.Port) - int(s.start)
	if i < 0 || i >= len(s.slots) {
		return fmt.Errorf("port %d outside session range", r.Port)
	}
	sl := &s.slots[i]
	if !sl.written.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: port %d", errSlotTaken, r.Port)
	}
	sl.result = r
	return nil
}

// seal turns the arena into a report. Unwritten slots become Filtered and
// are listed as pending.
func (s *resultSink) seal(elapsed time.Duration) *Report {
	r := &Report{
		results: make([]ScanResult, len(s.slots)),
		elapsed: elapsed,
	}
	for i := range s.slots {
		port := s.start + uint16(i)
		sl := &s.slots[i]
		if !sl.written.Load() {
			r.results[i] = ScanResult{Port: port, Status: Filtered}
			r.pending = append(r.pending, port)
			continue
		}
		r.results[i] = sl.result
		if sl.result.Err != nil {
			r.unresolved = append(r.unresolved, PortError{Port: port, Err: sl.result.Err})
		}
	}
	return r
}

// Report is the complete, port-ordered outcome of a session. It holds
// exactly one result per requested port and does not change after Execute
// returns.
type Report struct {
	results    []ScanResult
	pending    []uint16
	unresolved []PortError
	elapsed    time.Duration
}

// Len is the number of ports in the report.
func (r *Report) Len() int { return len(r.results) }

// At returns the i-th result in ascending port order.
func (r *Report) At(i int) ScanResult { return r.results[i] }

// Lookup returns the result for port.
func (r *Report) Lookup(port uint16) (ScanResult, bool) {
	if len(r.results) == 0 {
		return ScanResult{}, false
	}
	i := int(port) - int(r.results[0].Port)
	if i < 0 || i >= len(r.results) {
		return ScanResult{}, false
	}
	return r.results[i], true
}

// Results returns a copy of all results in ascending port order.
func (r *Report) Results() []ScanResult {
	out := make([]ScanResult, len(r.results))
	copy(out, r.results)
	return out
}

// Count returns how many ports ended with status s.
func (r *Report) Count(s PortStatus) int {
	n := 0
	for _, res := range r.results {
		if res.Err == nil && res.Status == s {
			n++
		}
	}
	return n
}

// Incomplete reports whether the session stopped before every port was
// probed. Those ports are reported as Filtered and listed by Pending.
func (r *Report) Incomplete() bool { return len(r.pending) > 0 }

// Pending lists the ports that were never classified.
func (r *Report) Pending() []uint16 {
	out := make([]uint16, len(r.pending))
	copy(out, r.pending)
	return out
}

// Degraded reports whether any port failed with an engine error.
func (r *Report) Degraded() bool { return len(r.unresolved) > 0 }

// Unresolved lists the ports that failed with an engine error.
func (r *Report) Unresolved() []uint16 {
	out := make([]uint16, len(r.unresolved))
	for i, u := range r.unresolved {
		out[i] = u.Port
	}
	return out
}

// Elapsed is the wall-clock duration of the scanning phase.
func (r *Report) Elapsed() time.Duration { return r.elapsed }

func (r *Report) partialError() error {
	if !r.Degraded() {
		return nil
	}
	failed := make([]PortError, len(r.unresolved))
	copy(failed, r.unresolved)
	return &PartialError{Failed: failed}
}
