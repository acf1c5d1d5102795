package scanner

import (
	"context"
	"net/netip"
	"sync"
	"time"
)

// fakeProber simulates a target. Ports without a script time out.
type fakeProber struct {
	mu      sync.Mutex
	script  map[uint16][]outcome
	calls   map[uint16]int
	delay   time.Duration
	active  int
	peak    int
	started chan struct{}
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		script: make(map[uint16][]outcome),
		calls:  make(map[uint16]int),
	}
}

// on scripts successive outcomes for port; the last one repeats.
func (f *fakeProber) on(port uint16, outcomes ...outcome) *fakeProber {
	f.script[port] = outcomes
	return f
}

func (f *fakeProber) probe(ctx context.Context, _ Endpoint, port uint16, _ time.Duration) outcome {
	f.mu.Lock()
	n := f.calls[port]
	f.calls[port] = n + 1
	f.active++
	f.peak = max(f.peak, f.active)
	script := f.script[port]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}

	if f.delay > 0 {
		t := time.NewTimer(f.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return canceledOutcome
		case <-t.C:
		}
	}

	if len(script) == 0 {
		return timeoutOutcome
	}
	return script[min(n, len(script)-1)]
}

func (f *fakeProber) callsFor(port uint16) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[port]
}

func (f *fakeProber) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeProber) peakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// staticResolver answers every lookup with addrs.
func staticResolver(addrs ...string) *Resolver {
	return NewResolverWithLookup(func(context.Context, string, string) ([]netip.Addr, error) {
		out := make([]netip.Addr, 0, len(addrs))
		for _, a := range addrs {
			out = append(out, netip.MustParseAddr(a))
		}
		return out, nil
	})
}

func mustRequest(t interface{ Fatalf(string, ...any) }, dst string, start, end int) ScanRequest {
	req, err := NewRequest(dst, start, end)
	if err != nil {
		t.Fatalf("NewRequest(%q, %d, %d): %v", dst, start, end, err)
	}
	return req
}

func statuses(results []ScanResult) map[uint16]PortStatus {
	out := make(map[uint16]PortStatus, len(results))
	for _, r := range results {
		out[r.Port] = r.Status
	}
	return out
}
