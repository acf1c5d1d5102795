package scanner

import "fmt"

type outcomeKind uint8

const (
	outcomeTimeout outcomeKind = iota
	outcomeSynAck
	outcomeRst
	outcomeUnreachable
	outcomeSocketError
	// The last two never reach classify: the pool retries local resource
	// exhaustion and leaves canceled probes unclassified.
	outcomeResourceExhausted
	outcomeCanceled
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeTimeout:
		return "timeout"
	case outcomeSynAck:
		return "syn-ack"
	case outcomeRst:
		return "rst"
	case outcomeUnreachable:
		return "icmp-unreachable"
	case outcomeSocketError:
		return "socket-error"
	case outcomeResourceExhausted:
		return "resource-exhausted"
	case outcomeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(k))
	}
}

// outcome is the raw result of one probe attempt.
type outcome struct {
	kind outcomeKind
	err  error
}

func (o outcome) String() string {
	if o.err != nil {
		return fmt.Sprintf("%s: %v", o.kind, o.err)
	}
	return o.kind.String()
}

var (
	synAckOutcome      = outcome{kind: outcomeSynAck}
	rstOutcome         = outcome{kind: outcomeRst}
	unreachableOutcome = outcome{kind: outcomeUnreachable}
	timeoutOutcome     = outcome{kind: outcomeTimeout}
	canceledOutcome    = outcome{kind: outcomeCanceled}
)

func socketErrorOutcome(err error) outcome {
	return outcome{kind: outcomeSocketError, err: err}
}

func resourceOutcome(err error) outcome {
	return outcome{kind: outcomeResourceExhausted, err: err}
}

// classify maps a probe outcome to a port status. Silence and explicit
// unreachable replies are both reported as Filtered. A socket error is
// not a status: it is returned as an engine failure.
func classify(o outcome) (PortStatus, error) {
	switch o.kind {
	case outcomeSynAck:
		return Open, nil
	case outcomeRst:
		return Closed, nil
	case outcomeUnreachable, outcomeTimeout:
		return Filtered, nil
	case outcomeSocketError:
		return Filtered, fmt.Errorf("%w: %w", ErrEngineFailure, o.err)
	default:
		return Filtered, fmt.Errorf("%w: unclassifiable probe outcome %s", ErrEngineFailure, o.kind)
	}
}
