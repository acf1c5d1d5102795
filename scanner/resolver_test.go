package scanner

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLiteralSkipsLookup(t *testing.T) {
	r := NewResolverWithLookup(func(context.Context, string, string) ([]netip.Addr, error) {
		t.Fatal("lookup called for an IP literal")
		return nil, nil
	})

	addr, err := r.Resolve(context.Background(), "192.0.2.10")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.0.2.10"), addr)

	addr, err = r.Resolve(context.Background(), "::ffff:192.0.2.10")
	require.NoError(t, err)
	assert.True(t, addr.Is4(), "v4-mapped literal is unmapped")
}

func TestResolveRejectsUnusableLiteral(t *testing.T) {
	r := staticResolver()
	for _, host := range []string{"0.0.0.0", "::", "224.0.0.1"} {
		_, err := r.Resolve(context.Background(), host)
		assert.ErrorIs(t, err, ErrResolution, host)
	}
}

func TestResolvePrefersIPv4(t *testing.T) {
	r := staticResolver("2001:db8::1", "198.51.100.7")
	addr, err := r.Resolve(context.Background(), "dual.example")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", addr.String())

	r = staticResolver("ff02::1", "2001:db8::1")
	addr, err = r.Resolve(context.Background(), "v6.example")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", addr.String())
}

func TestResolveFailures(t *testing.T) {
	lookupErr := errors.New("no such host")
	r := NewResolverWithLookup(func(context.Context, string, string) ([]netip.Addr, error) {
		return nil, lookupErr
	})
	_, err := r.Resolve(context.Background(), "missing.example")
	assert.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, lookupErr)

	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "missing.example", rerr.Host)

	_, err = staticResolver().Resolve(context.Background(), "empty.example")
	assert.ErrorIs(t, err, errNoAddress)
}

func TestResolveEndpointSource(t *testing.T) {
	r := staticResolver()

	ep, err := r.ResolveEndpoint(context.Background(), mustRequest(t, "192.0.2.1", 1, 1).WithSource("192.0.2.99"))
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1 via 192.0.2.99", ep.String())
	assert.Equal(t, "192.0.2.1:80", ep.AddrPort(80).String())

	_, err = r.ResolveEndpoint(context.Background(), mustRequest(t, "192.0.2.1", 1, 1).WithSource("2001:db8::5"))
	assert.ErrorIs(t, err, errFamilyMismatch)
	assert.ErrorIs(t, err, ErrResolution)
}
