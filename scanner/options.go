package scanner

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// Mode selects how probes are sent.
type Mode string

const (
	// ModeConnect completes a TCP handshake through the kernel. No privilege
	// is required.
	ModeConnect Mode = "connect"
	// ModeSYN sends raw SYN segments and sniffs replies. Requires raw socket
	// privileges and libpcap.
	ModeSYN Mode = "syn"
)

// ParseMode maps a mode name to a Mode; the empty string selects ModeConnect.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeConnect:
		return ModeConnect, nil
	case ModeSYN:
		return ModeSYN, nil
	default:
		return "", invalidArgument("mode", name)
	}
}

const (
	DefaultConcurrency        = 100
	DefaultProbeTimeout       = 2 * time.Second
	DefaultMaxResourceRetries = 5
	defaultBackoffBase        = 20 * time.Millisecond
	defaultBackoffMax         = time.Second
)

type config struct {
	mode               Mode
	concurrency        int
	probeTimeout       time.Duration
	deadline           time.Duration
	rate               float64
	maxResourceRetries int
	backoffBase        time.Duration
	backoffMax         time.Duration
	resolver           *Resolver
	logger             *slog.Logger
	onResult           func(ScanResult)
	prober             prober
}

func defaultConfig() config {
	return config{
		mode:               ModeConnect,
		concurrency:        DefaultConcurrency,
		probeTimeout:       DefaultProbeTimeout,
		maxResourceRetries: DefaultMaxResourceRetries,
		backoffBase:        defaultBackoffBase,
		backoffMax:         defaultBackoffMax,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures a session.
type Option func(*config)

func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithConcurrency sets the number of concurrent probe units. Values below
// one are ignored.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithProbeTimeout bounds how long a single probe waits for a reply.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithDeadline bounds the wall-clock time of the scanning phase. Ports not
// classified when it expires are reported as Filtered and the report is
// flagged incomplete. Zero means no deadline.
func WithDeadline(d time.Duration) Option {
	return func(c *config) { c.deadline = d }
}

// WithRate limits probe starts to perSecond across all units. Zero or a
// negative value disables pacing.
func WithRate(perSecond float64) Option {
	return func(c *config) { c.rate = perSecond }
}

// WithMaxResourceRetries sets how many consecutive local resource failures
// a unit tolerates before the session fails with ErrResourceExhausted.
func WithMaxResourceRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxResourceRetries = n
		}
	}
}

// WithBackoff sets the initial and maximum delay between resource retries.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(c *config) {
		if base > 0 {
			c.backoffBase = base
		}
		if ceiling > 0 {
			c.backoffMax = ceiling
		}
		if c.backoffMax < c.backoffBase {
			c.backoffMax = c.backoffBase
		}
	}
}

func WithResolver(r *Resolver) Option {
	return func(c *config) { c.resolver = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnResult registers fn to receive every result as soon as it is
// classified. fn is called concurrently from probe units.
func OnResult(fn func(ScanResult)) Option {
	return func(c *config) { c.onResult = fn }
}

// withProber replaces the mode's prober; tests use it to simulate targets.
func withProber(p prober) Option {
	return func(c *config) { c.prober = p }
}
