package scanner

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
)

// Endpoint is a resolved scan target. It is shared read-only by every
// worker of a session.
type Endpoint struct {
	Addr netip.Addr
	// Source is the local address probes are bound to; the zero value
	// lets the kernel choose.
	Source netip.Addr
}

// AddrPort joins the endpoint address with port.
func (e Endpoint) AddrPort(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(e.Addr, port)
}

func (e Endpoint) String() string {
	if e.Source.IsValid() {
		return e.Addr.String() + " via " + e.Source.String()
	}
	return e.Addr.String()
}

var (
	errNoAddress       = errors.New("no usable address")
	errNotReachable    = errors.New("not a unicast address")
	errFamilyMismatch  = errors.New("source and destination address families differ")
	errMalformedSource = errors.New("source must be an IP literal")
)

// LookupFunc resolves a hostname; net.Resolver.LookupNetIP satisfies it.
type LookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

// Resolver maps host identifiers to endpoints. IP literals never touch
// the network; other names go through the lookup function.
type Resolver struct {
	lookup LookupFunc
}

// NewResolver returns a resolver backed by net.DefaultResolver.
func NewResolver() *Resolver {
	return &Resolver{lookup: net.DefaultResolver.LookupNetIP}
}

// NewResolverWithLookup returns a resolver that uses lookup for hostnames.
func NewResolverWithLookup(lookup LookupFunc) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve maps host to a single unicast address, preferring IPv4 when a
// hostname has records of both families.
func (r *Resolver) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	host = strings.TrimSpace(host)
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !usable(addr) {
			return netip.Addr{}, &ResolutionError{Host: host, Err: errNotReachable}
		}
		return addr, nil
	}

	addrs, err := r.lookup(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, &ResolutionError{Host: host, Err: err}
	}

	var fallback netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if !usable(a) {
			continue
		}
		if a.Is4() {
			return a, nil
		}
		if !fallback.IsValid() {
			fallback = a
		}
	}
	if fallback.IsValid() {
		return fallback, nil
	}
	return netip.Addr{}, &ResolutionError{Host: host, Err: errNoAddress}
}

// ResolveEndpoint resolves the destination and optional source of req.
func (r *Resolver) ResolveEndpoint(ctx context.Context, req ScanRequest) (Endpoint, error) {
	dst, err := r.Resolve(ctx, req.Destination)
	if err != nil {
		return Endpoint{}, err
	}
	ep := Endpoint{Addr: dst}
	if req.Source == "" {
		return ep, nil
	}

	src, err := netip.ParseAddr(req.Source)
	if err != nil {
		return Endpoint{}, &ResolutionError{Host: req.Source, Err: errMalformedSource}
	}
	src = src.Unmap()
	if src.Is4() != dst.Is4() {
		return Endpoint{}, &ResolutionError{Host: req.Source, Err: errFamilyMismatch}
	}
	ep.Source = src
	return ep, nil
}

func usable(a netip.Addr) bool {
	return a.IsValid() && !a.IsUnspecified() && !a.IsMulticast()
}
