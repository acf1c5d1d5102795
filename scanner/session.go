package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// State is the lifecycle stage of a session.
type State int32

const (
	StateCreated State = iota
	StateValidating
	StateResolving
	StateScanning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateValidating:
		return "validating"
	case StateResolving:
		return "resolving"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Session runs one scan request to completion. A session executes once;
// its report is owned by the caller afterwards.
type Session struct {
	req      ScanRequest
	cfg      config
	state    atomic.Int32
	executed atomic.Bool
}

// NewSession prepares a session for req. Nothing is validated or sent
// until Execute.
func NewSession(req ScanRequest, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{req: req, cfg: cfg}
}

// State returns the current lifecycle stage. It is safe to call while
// Execute runs.
func (s *Session) State() State { return State(s.state.Load()) }

// Request returns the request the session was created with.
func (s *Session) Request() ScanRequest { return s.req }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Execute validates and resolves the request, probes every port and
// returns the port-ordered report.
//
// A nil error means every port was classified or the session deadline
// cut the scan short (see Report.Incomplete). A *PartialError comes with
// a usable report whose failed ports are listed by Report.Unresolved.
// Validation and resolution errors return a nil report. When ctx is
// canceled, or local resources stay exhausted, the report gathered so far
// is returned with the error.
func (s *Session) Execute(ctx context.Context) (*Report, error) {
	if !s.executed.CompareAndSwap(false, true) {
		return nil, ErrSessionReused
	}
	log := s.cfg.logger.With("target", s.req.Destination,
		"port_start", s.req.PortStart, "port_end", s.req.PortEnd)

	s.setState(StateValidating)
	if err := s.req.Validate(); err != nil {
		s.setState(StateFailed)
		return nil, err
	}

	s.setState(StateResolving)
	resolver := s.cfg.resolver
	if resolver == nil {
		resolver = NewResolver()
	}
	ep, err := resolver.ResolveEndpoint(ctx, s.req)
	if err != nil {
		s.setState(StateFailed)
		log.Warn("resolution failed", "error", err)
		return nil, err
	}

	p, ep, err := s.prober(ep)
	if err != nil {
		s.setState(StateFailed)
		log.Error("prober setup failed", "mode", string(s.cfg.mode), "error", err)
		return nil, err
	}

	s.setState(StateScanning)
	log.Info("scan started", "endpoint", ep.String(), "mode", string(s.cfg.mode),
		"ports", s.req.Count(), "concurrency", s.cfg.concurrency)

	scanCtx := ctx
	if s.cfg.deadline > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, s.cfg.deadline)
		defer cancel()
	}

	sink := newResultSink(s.req.PortStart, s.req.PortEnd)
	started := time.Now()
	runErr := newPool(s.cfg, p).run(scanCtx, s.req.Ports(), ep, sink)
	report := sink.seal(time.Since(started))

	if runErr != nil {
		s.setState(StateFailed)
		log.Error("scan aborted", "error", runErr, "classified", report.Len()-len(report.pending))
		return report, runErr
	}
	if err := ctx.Err(); err != nil {
		s.setState(StateFailed)
		log.Warn("scan canceled", "error", err, "pending", len(report.pending))
		return report, fmt.Errorf("scan canceled: %w", err)
	}

	s.setState(StateCompleted)
	log.Info("scan finished",
		"elapsed", report.Elapsed(),
		"open", report.Count(Open),
		"closed", report.Count(Closed),
		"filtered", report.Count(Filtered),
		"incomplete", report.Incomplete(),
		"unresolved", len(report.unresolved),
	)
	return report, report.partialError()
}

func (s *Session) prober(ep Endpoint) (prober, Endpoint, error) {
	if s.cfg.prober != nil {
		return s.cfg.prober, ep, nil
	}
	switch s.cfg.mode {
	case ModeConnect, "":
		return connectProber{}, ep, nil
	case ModeSYN:
		p, ep, err := newSynProber(ep)
		if err != nil {
			return nil, ep, err
		}
		return p, ep, nil
	default:
		return nil, ep, invalidArgument("mode", s.cfg.mode)
	}
}

// IsValidation reports whether err was raised before any network I/O
// because the request itself was malformed.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrOutOfRange)
}
