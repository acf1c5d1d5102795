package scanner

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	synSource = netip.MustParseAddr("192.0.2.50")
	synTarget = netip.MustParseAddr("198.51.100.7")
)

const (
	synTargetPort = 443
	synSourcePort = 40000
	synSeq        = 1000
)

func serialize(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, l...))
	return buf.Bytes()
}

// reply builds an IPv4 packet from the target back to the scanner.
func reply(t *testing.T, tcp *layers.TCP) gopacket.Packet {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    synTarget.AsSlice(),
		DstIP:    synSource.AsSlice(),
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return gopacket.NewPacket(serialize(t, ip, tcp), layers.LayerTypeIPv4, gopacket.Default)
}

// unreachable builds an ICMP port-unreachable from a router that quotes a
// SYN sent from srcPort to dst:port.
func unreachable(t *testing.T, dst netip.Addr, srcPort, port uint16) gopacket.Packet {
	t.Helper()
	quotedIP := &layers.IPv4{
		Version:  4,
		TTL:      63,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    synSource.AsSlice(),
		DstIP:    dst.AsSlice(),
	}
	quotedTCP := &layers.TCP{SrcPort: layers.TCPPort(srcPort), DstPort: layers.TCPPort(port), Seq: synSeq, SYN: true}
	require.NoError(t, quotedTCP.SetNetworkLayerForChecksum(quotedIP))
	// Routers quote the IP header and the first eight bytes of the datagram.
	quoted := serialize(t, quotedIP, quotedTCP)[:28]

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    []byte{203, 0, 113, 1},
		DstIP:    synSource.AsSlice(),
	}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeHost)}
	return gopacket.NewPacket(serialize(t, ip, icmp, gopacket.Payload(quoted)), layers.LayerTypeIPv4, gopacket.Default)
}

// tcpChecksumValid verifies segment against the IPv4 pseudo-header.
func tcpChecksumValid(src, dst netip.Addr, segment []byte) bool {
	var sum uint32
	add := func(b []byte) {
		for i := 0; i+1 < len(b); i += 2 {
			sum += uint32(binary.BigEndian.Uint16(b[i:]))
		}
		if len(b)%2 == 1 {
			sum += uint32(b[len(b)-1]) << 8
		}
	}
	s, d := src.As4(), dst.As4()
	add(s[:])
	add(d[:])
	sum += protocolTCP + uint32(len(segment))
	add(segment)
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return uint16(sum) == 0xffff
}

func decodeSegment(t *testing.T, b []byte) *layers.TCP {
	t.Helper()
	packet := gopacket.NewPacket(b, layers.LayerTypeTCP, gopacket.Default)
	tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	require.True(t, ok, "segment does not decode as TCP")
	return tcp
}

func TestSynSegment(t *testing.T) {
	p := &synProber{source: synSource}
	b, err := p.segment(synTarget, synSourcePort, synTargetPort, synSeq, 0, func(t *layers.TCP) { t.SYN = true })
	require.NoError(t, err)

	tcp := decodeSegment(t, b)
	assert.True(t, tcp.SYN)
	assert.False(t, tcp.ACK)
	assert.False(t, tcp.RST)
	assert.Equal(t, layers.TCPPort(synSourcePort), tcp.SrcPort)
	assert.Equal(t, layers.TCPPort(synTargetPort), tcp.DstPort)
	assert.Equal(t, uint32(synSeq), tcp.Seq)

	require.NotEmpty(t, tcp.Options)
	assert.Equal(t, layers.TCPOptionKind(layers.TCPOptionKindMSS), tcp.Options[0].OptionType)
	assert.Equal(t, uint16(1460), binary.BigEndian.Uint16(tcp.Options[0].OptionData))

	assert.True(t, tcpChecksumValid(synSource, synTarget, b))
	assert.False(t, tcpChecksumValid(synSource, netip.MustParseAddr("198.51.100.8"), b))
}

func TestSynTeardown(t *testing.T) {
	p := &synProber{source: synSource}

	// The target acknowledges the SYN; the reset continues from its ack.
	o, ack, ok := matchReply(reply(t, &layers.TCP{
		SrcPort: synTargetPort, DstPort: synSourcePort, Seq: 7777, Ack: synSeq + 1, SYN: true, ACK: true,
	}), synTarget, synTargetPort, synSourcePort, synSeq)
	require.True(t, ok)
	require.Equal(t, synAckOutcome, o)

	b, err := p.teardown(synTarget, synSourcePort, synTargetPort, ack)
	require.NoError(t, err)

	tcp := decodeSegment(t, b)
	assert.True(t, tcp.RST)
	assert.False(t, tcp.SYN)
	assert.Empty(t, tcp.Options)
	assert.Equal(t, uint32(synSeq+1), tcp.Seq)
	assert.Equal(t, layers.TCPPort(synSourcePort), tcp.SrcPort)
	assert.Equal(t, layers.TCPPort(synTargetPort), tcp.DstPort)
	assert.True(t, tcpChecksumValid(synSource, synTarget, b))
}

func TestMatchReply(t *testing.T) {
	tests := []struct {
		name   string
		packet func(t *testing.T) gopacket.Packet
		want   outcome
		ok     bool
	}{
		{"syn-ack", func(t *testing.T) gopacket.Packet {
			return reply(t, &layers.TCP{SrcPort: synTargetPort, DstPort: synSourcePort, Ack: synSeq + 1, SYN: true, ACK: true})
		}, synAckOutcome, true},
		{"rst", func(t *testing.T) gopacket.Packet {
			return reply(t, &layers.TCP{SrcPort: synTargetPort, DstPort: synSourcePort, Ack: synSeq + 1, RST: true, ACK: true})
		}, rstOutcome, true},
		{"syn-ack with wrong ack", func(t *testing.T) gopacket.Packet {
			return reply(t, &layers.TCP{SrcPort: synTargetPort, DstPort: synSourcePort, Ack: synSeq + 99, SYN: true, ACK: true})
		}, outcome{}, false},
		{"other source port", func(t *testing.T) gopacket.Packet {
			return reply(t, &layers.TCP{SrcPort: 80, DstPort: synSourcePort, Ack: synSeq + 1, SYN: true, ACK: true})
		}, outcome{}, false},
		{"other destination port", func(t *testing.T) gopacket.Packet {
			return reply(t, &layers.TCP{SrcPort: synTargetPort, DstPort: synSourcePort + 1, RST: true})
		}, outcome{}, false},
		{"bare ack", func(t *testing.T) gopacket.Packet {
			return reply(t, &layers.TCP{SrcPort: synTargetPort, DstPort: synSourcePort, Ack: synSeq + 1, ACK: true})
		}, outcome{}, false},
		{"icmp quoting the syn", func(t *testing.T) gopacket.Packet {
			return unreachable(t, synTarget, synSourcePort, synTargetPort)
		}, unreachableOutcome, true},
		{"icmp quoting other ports", func(t *testing.T) gopacket.Packet {
			return unreachable(t, synTarget, synSourcePort+1, synTargetPort)
		}, outcome{}, false},
		{"icmp quoting another host", func(t *testing.T) gopacket.Packet {
			return unreachable(t, netip.MustParseAddr("198.51.100.8"), synSourcePort, synTargetPort)
		}, outcome{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _, ok := matchReply(tt.packet(t), synTarget, synTargetPort, synSourcePort, synSeq)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, o)
		})
	}
}

func TestEchoReplyIsNotUnreachable(t *testing.T) {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    synTarget.AsSlice(),
		DstIP:    synSource.AsSlice(),
	}
	echo := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0), Id: 1, Seq: 1}
	packet := gopacket.NewPacket(serialize(t, ip, echo), layers.LayerTypeIPv4, gopacket.Default)

	layer, ok := packet.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	require.True(t, ok)
	assert.False(t, quotesProbe(layer, synTarget, synTargetPort, synSourcePort))
}
