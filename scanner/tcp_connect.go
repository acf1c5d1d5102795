package scanner

import (
	"context"
	"errors"
	"net"
	"time"
)

// prober sends one probe to one port and reports what came back before
// the timeout. Implementations must not share socket state across calls.
type prober interface {
	probe(ctx context.Context, ep Endpoint, port uint16, timeout time.Duration) outcome
}

// connectProber performs a full TCP handshake through the kernel. It needs
// no privilege: the kernel reports the SYN-ACK as a successful connect,
// the RST as ECONNREFUSED and an ICMP unreachable as EHOSTUNREACH.
type connectProber struct{}

func (connectProber) probe(ctx context.Context, ep Endpoint, port uint16, timeout time.Duration) outcome {
	d := net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1,
	}
	if ep.Source.IsValid() {
		d.LocalAddr = &net.TCPAddr{IP: ep.Source.AsSlice(), Zone: ep.Source.Zone()}
	}

	conn, err := d.DialContext(ctx, "tcp", ep.AddrPort(port).String())
	if err != nil {
		return dialOutcome(ctx, err)
	}

	// Abort instead of the FIN handshake so the target sees a RST and does
	// not keep the connection around.
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	_ = conn.Close()
	return synAckOutcome
}

func dialOutcome(ctx context.Context, err error) outcome {
	// The per-probe timeout lives on the dialer, so a done ctx means the
	// session was canceled or hit its deadline.
	if ctx.Err() != nil {
		return canceledOutcome
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutOutcome
	}

	switch {
	case isConnectionRefused(err):
		return rstOutcome
	case isUnreachable(err):
		return unreachableOutcome
	case isResourceExhausted(err):
		return resourceOutcome(err)
	default:
		return socketErrorOutcome(err)
	}
}
