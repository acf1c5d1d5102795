package scanner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		wantErr    error
	}{
		{"single port", 80, 80, nil},
		{"full range", 1, 65535, nil},
		{"zero start", 0, 10, ErrOutOfRange},
		{"inverted", 50, 10, ErrOutOfRange},
		{"end too large", 1, 65536, ErrOutOfRange},
		{"negative", -1, 10, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest("127.0.0.1", tt.start, tt.end)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.end-tt.start+1, req.Count())
			assert.Len(t, req.Ports(), req.Count())
		})
	}
}

func TestNewRequestRejectsMalformedHost(t *testing.T) {
	for _, host := range []string{"", "  ", "bad host", "-lead.example", "a..b", "exa$mple.com"} {
		_, err := NewRequest(host, 1, 2)
		assert.ErrorIs(t, err, ErrInvalidArgument, "host %q", host)
	}

	for _, host := range []string{"localhost", "scanme.example.org", "10.0.0.1", "::1", "fe80::1%eth0"} {
		_, err := NewRequest(host, 1, 2)
		assert.NoError(t, err, "host %q", host)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name                  string
		addr, start, end, src any
		wantErr               error
		wantStart, wantEnd    uint16
	}{
		{name: "json numbers", addr: "10.0.0.1", start: float64(20), end: float64(26), wantStart: 20, wantEnd: 26},
		{name: "nil end scans one port", addr: "10.0.0.1", start: 443, wantStart: 443, wantEnd: 443},
		{name: "json.Number", addr: "10.0.0.1", start: json.Number("1"), end: json.Number("3"), wantStart: 1, wantEnd: 3},
		{name: "address not a string", addr: 123, start: 1, end: 2, wantErr: ErrInvalidArgument},
		{name: "fractional port", addr: "10.0.0.1", start: 1.5, end: 2, wantErr: ErrInvalidArgument},
		{name: "string port", addr: "10.0.0.1", start: "80", end: 81, wantErr: ErrInvalidArgument},
		{name: "bool end", addr: "10.0.0.1", start: 1, end: true, wantErr: ErrInvalidArgument},
		{name: "zero start", addr: "10.0.0.1", start: 0, end: 10, wantErr: ErrOutOfRange},
		{name: "inverted", addr: "10.0.0.1", start: 50, end: 10, wantErr: ErrOutOfRange},
		{name: "huge port", addr: "10.0.0.1", start: float64(1 << 40), wantErr: ErrOutOfRange},
		{name: "source not a string", addr: "10.0.0.1", start: 1, src: 7, wantErr: ErrInvalidArgument},
		{name: "source not an address", addr: "10.0.0.1", start: 1, src: "eth0", wantErr: ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(tt.addr, tt.start, tt.end, tt.src)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, req.PortStart)
			assert.Equal(t, tt.wantEnd, req.PortEnd)
		})
	}
}

func TestParseRequestWithSource(t *testing.T) {
	req, err := ParseRequest("10.0.0.1", 22, 25, " 10.0.0.9 ")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", req.Source)
}

func TestValidationErrorMessage(t *testing.T) {
	_, err := NewRequest("10.0.0.1", 0, 10)
	require.Error(t, err)
	assert.Equal(t, "out of range: port_start=0", err.Error())
}
