package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// portQueue hands out ports in order. pop is a single atomic add, so every
// port is consumed by exactly one unit.
type portQueue struct {
	ports []uint16
	next  atomic.Int64
}

func (q *portQueue) pop() (uint16, bool) {
	i := q.next.Add(1) - 1
	if i >= int64(len(q.ports)) {
		return 0, false
	}
	return q.ports[i], true
}

// pool runs a bounded number of probe units over a shared port queue.
type pool struct {
	prober      prober
	concurrency int
	timeout     time.Duration
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
	onResult    func(ScanResult)
	logger      *slog.Logger
}

func newPool(cfg config, p prober) *pool {
	var limiter *rate.Limiter
	if cfg.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.rate), 1)
	}
	return &pool{
		prober:      p,
		concurrency: cfg.concurrency,
		timeout:     cfg.probeTimeout,
		limiter:     limiter,
		maxRetries:  cfg.maxResourceRetries,
		backoffBase: cfg.backoffBase,
		backoffMax:  cfg.backoffMax,
		onResult:    cfg.onResult,
		logger:      cfg.logger,
	}
}

// run probes every port and writes one result per port into sink. It
// returns early, without error, when ctx is done; ports not yet classified
// stay unwritten. Local resource exhaustion past the retry budget stops
// every unit and is returned.
func (p *pool) run(ctx context.Context, ports []uint16, ep Endpoint, sink *resultSink) error {
	q := &portQueue{ports: ports}

	units := min(max(p.concurrency, 1), len(ports))
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < units; i++ {
		g.Go(func() error {
			return p.unit(gctx, ep, q, sink)
		})
	}
	return g.Wait()
}

func (p *pool) unit(ctx context.Context, ep Endpoint, q *portQueue, sink *resultSink) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		port, ok := q.pop()
		if !ok {
			return nil
		}

		o, err := p.probe(ctx, ep, port)
		if err != nil {
			return err
		}
		if o.kind == outcomeCanceled {
			return nil
		}

		status, cerr := classify(o)
		res := ScanResult{Port: port, Status: status, Err: cerr}
		if err := sink.put(res); err != nil {
			return fmt.Errorf("%w: %w", ErrEngineFailure, err)
		}

		if cerr != nil {
			p.logger.Warn("probe failed", "port", port, "error", cerr)
		} else {
			p.logger.Debug("port classified", "port", port, "outcome", o.kind.String(), "status", status.String())
		}
		if p.onResult != nil {
			p.onResult(res)
		}
	}
}

// probe sends one probe to port, retrying the same port after a backoff
// while the local host is out of resources. Any network answer, including
// silence, is final.
func (p *pool) probe(ctx context.Context, ep Endpoint, port uint16) (outcome, error) {
	failures := 0
	for {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return canceledOutcome, nil
			}
		}

		o := p.prober.probe(ctx, ep, port, p.timeout)
		if o.kind != outcomeResourceExhausted {
			return o, nil
		}

		failures++
		if failures > p.maxRetries {
			return o, fmt.Errorf("%w: port %d after %d attempts: %w", ErrResourceExhausted, port, failures, o.err)
		}

		delay := p.backoff(failures)
		p.logger.Debug("local resources exhausted, backing off",
			"port", port, "attempt", failures, "delay", delay, "error", o.err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return canceledOutcome, nil
		case <-timer.C:
		}
	}
}

// backoff doubles the base delay per attempt up to the ceiling and adds up
// to 50% jitter so units do not retry in lockstep.
func (p *pool) backoff(attempt int) time.Duration {
	d := p.backoffBase
	for i := 1; i < attempt && d < p.backoffMax; i++ {
		d *= 2
	}
	d = min(d, p.backoffMax)
	if half := int64(d / 2); half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}
