package scanner

import (
	"encoding/json"
	"math"
	"net/netip"
	"strings"
)

const (
	minPort = 1
	maxPort = 65535
)

// ScanRequest describes one scan: a destination, an inclusive port range
// and an optional source address. It is not modified once a session starts.
type ScanRequest struct {
	Destination string
	Source      string
	PortStart   uint16
	PortEnd     uint16
}

// NewRequest builds and validates a request.
func NewRequest(destination string, portStart, portEnd int) (ScanRequest, error) {
	if portStart < minPort || portStart > maxPort {
		return ScanRequest{}, outOfRange("port_start", portStart)
	}
	if portEnd < minPort || portEnd > maxPort {
		return ScanRequest{}, outOfRange("port_end", portEnd)
	}
	if portEnd < portStart {
		return ScanRequest{}, outOfRange("port_end", portEnd)
	}

	req := ScanRequest{
		Destination: strings.TrimSpace(destination),
		PortStart:   uint16(portStart),
		PortEnd:     uint16(portEnd),
	}
	if err := req.Validate(); err != nil {
		return ScanRequest{}, err
	}
	return req, nil
}

// ParseRequest builds a request from loosely typed values such as those
// decoded from JSON. A nil portEnd scans the single port portStart; a nil
// source lets the kernel pick one.
func ParseRequest(address, portStart, portEnd, source any) (ScanRequest, error) {
	dst, ok := address.(string)
	if !ok {
		return ScanRequest{}, invalidArgument("address", address)
	}

	start, ok := toInt(portStart)
	if !ok {
		return ScanRequest{}, invalidArgument("port_start", portStart)
	}

	end := start
	if portEnd != nil {
		if end, ok = toInt(portEnd); !ok {
			return ScanRequest{}, invalidArgument("port_end", portEnd)
		}
	}

	var src string
	if source != nil {
		if src, ok = source.(string); !ok {
			return ScanRequest{}, invalidArgument("src_address", source)
		}
	}

	req, err := NewRequest(dst, start, end)
	if err != nil {
		return ScanRequest{}, err
	}
	if src == "" {
		return req, nil
	}
	req = req.WithSource(src)
	if err := req.Validate(); err != nil {
		return ScanRequest{}, err
	}
	return req, nil
}

// WithSource returns a copy of r that binds probes to addr.
func (r ScanRequest) WithSource(addr string) ScanRequest {
	r.Source = strings.TrimSpace(addr)
	return r
}

// Validate checks the request without touching the network.
func (r ScanRequest) Validate() error {
	if r.PortStart < minPort {
		return outOfRange("port_start", r.PortStart)
	}
	if r.PortEnd < minPort || r.PortEnd < r.PortStart {
		return outOfRange("port_end", r.PortEnd)
	}
	if !wellFormedHost(r.Destination) {
		return invalidArgument("address", r.Destination)
	}
	if r.Source != "" {
		if _, err := netip.ParseAddr(r.Source); err != nil {
			return invalidArgument("src_address", r.Source)
		}
	}
	return nil
}

// Count is the number of ports in the request.
func (r ScanRequest) Count() int {
	return int(r.PortEnd) - int(r.PortStart) + 1
}

// Ports lists the requested ports in ascending order.
func (r ScanRequest) Ports() []uint16 {
	ports := make([]uint16, 0, r.Count())
	for p := int(r.PortStart); p <= int(r.PortEnd); p++ {
		ports = append(ports, uint16(p))
	}
	return ports
}

// wellFormedHost accepts IP literals and syntactically valid DNS names.
func wellFormedHost(host string) bool {
	if host == "" {
		return false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	if len(host) > 253 {
		return false
	}
	host = strings.TrimSuffix(host, ".")
	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}

// toInt accepts Go integer kinds, integral float64 values (JSON numbers)
// and json.Number. Integral values too large for a port are clamped so the
// range check reports them as out of range rather than malformed.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return clamp(n), true
	case uint:
		return clamp(int64(min(n, math.MaxInt32))), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return clamp(int64(n)), true
	case uint64:
		return clamp(int64(min(n, math.MaxInt32))), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return clamp(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if f < math.MinInt32 {
		return math.MinInt32, true
	}
	return int(f), true
}

func clamp(n int64) int {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	default:
		return int(n)
	}
}
