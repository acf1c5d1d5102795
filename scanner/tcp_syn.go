package scanner

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/routing"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	// Source ports are drawn from the Linux ephemeral range.
	ephemeralPortStart = 32768
	ephemeralPortEnd   = 61000

	synSnapLen    = 256
	synReadPoll   = 50 * time.Millisecond
	synWindow     = 1024
	protocolICMP4 = 1
	protocolTCP   = 6
)

// synProber sends a bare SYN and watches for the answer without letting
// the kernel complete the handshake. Every probe gets its own capture
// handle and raw socket.
type synProber struct {
	device string
	source netip.Addr
}

// InitSynScan checks that packet capture is available and that the process
// may open raw sockets.
func InitSynScan() error {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return fmt.Errorf("%w: syn mode requires libpcap: %w", ErrEngineFailure, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no capture devices found for syn mode", ErrEngineFailure)
	}

	conn, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
	if err != nil {
		return fmt.Errorf("%w: syn mode requires raw socket privileges: %w", ErrEngineFailure, err)
	}
	return conn.Close()
}

// newSynProber picks the outgoing interface and source address for ep.
// The returned endpoint carries the source the probes will use.
func newSynProber(ep Endpoint) (*synProber, Endpoint, error) {
	if !ep.Addr.Is4() {
		return nil, ep, fmt.Errorf("%w: syn mode supports IPv4 targets only, got %s", ErrEngineFailure, ep.Addr)
	}

	router, err := routing.New()
	if err != nil {
		return nil, ep, fmt.Errorf("%w: read routing table: %w", ErrEngineFailure, err)
	}

	var src net.IP
	if ep.Source.IsValid() {
		src = ep.Source.AsSlice()
	}
	iface, _, preferred, err := router.RouteWithSrc(nil, src, ep.Addr.AsSlice())
	if err != nil {
		return nil, ep, fmt.Errorf("%w: no route to %s: %w", ErrEngineFailure, ep.Addr, err)
	}

	if !ep.Source.IsValid() {
		addr, ok := netip.AddrFromSlice(preferred.To4())
		if !ok {
			return nil, ep, fmt.Errorf("%w: no IPv4 source address on %s", ErrEngineFailure, iface.Name)
		}
		ep.Source = addr
	}

	return &synProber{device: iface.Name, source: ep.Source}, ep, nil
}

func (p *synProber) probe(ctx context.Context, ep Endpoint, port uint16, timeout time.Duration) outcome {
	srcPort := uint16(ephemeralPortStart + rand.IntN(ephemeralPortEnd-ephemeralPortStart))
	seq := rand.Uint32()

	handle, err := pcap.OpenLive(p.device, synSnapLen, false, synReadPoll)
	if err != nil {
		return openOutcome(fmt.Errorf("open capture on %s: %w", p.device, err))
	}
	defer handle.Close()

	filter := fmt.Sprintf(
		"(tcp and src host %s and src port %d and dst port %d) or (icmp and icmp[icmptype] == icmp-unreach and dst host %s)",
		ep.Addr, port, srcPort, p.source,
	)
	if err := handle.SetBPFFilter(filter); err != nil {
		return socketErrorOutcome(fmt.Errorf("set capture filter: %w", err))
	}

	conn, err := net.ListenPacket("ip4:tcp", p.source.String())
	if err != nil {
		return openOutcome(fmt.Errorf("open raw socket: %w", err))
	}
	defer conn.Close()

	dst := &net.IPAddr{IP: ep.Addr.AsSlice()}
	syn, err := p.segment(ep.Addr, srcPort, port, seq, 0, func(t *layers.TCP) { t.SYN = true })
	if err != nil {
		return socketErrorOutcome(err)
	}
	if _, err := conn.WriteTo(syn, dst); err != nil {
		return openOutcome(fmt.Errorf("send syn: %w", err))
	}

	o, ack := p.await(ctx, handle, ep.Addr, port, srcPort, seq, timeout)
	if o.kind == outcomeSynAck {
		if rst, err := p.teardown(ep.Addr, srcPort, port, ack); err == nil {
			_, _ = conn.WriteTo(rst, dst)
		}
	}
	return o
}

// await reads captured packets until one answers the probe. For a SYN-ACK
// it also returns the sequence number the teardown must use.
func (p *synProber) await(ctx context.Context, handle *pcap.Handle, dst netip.Addr, port, srcPort uint16, seq uint32, timeout time.Duration) (outcome, uint32) {
	source := gopacket.NewPacketSource(handle, handle.LinkType())
	packets := source.Packets()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return canceledOutcome, 0
		case <-timer.C:
			return timeoutOutcome, 0
		case packet, ok := <-packets:
			if !ok {
				return socketErrorOutcome(errors.New("capture closed before a reply arrived")), 0
			}
			if packet == nil {
				continue
			}
			if o, ack, ok := matchReply(packet, dst, port, srcPort, seq); ok {
				return o, ack
			}
		}
	}
}

// matchReply classifies packet if it answers the SYN sent from srcPort to
// dst:port with sequence number seq. Unrelated traffic reports false.
func matchReply(packet gopacket.Packet, dst netip.Addr, port, srcPort uint16, seq uint32) (outcome, uint32, bool) {
	if layer := packet.Layer(layers.LayerTypeICMPv4); layer != nil {
		if quotesProbe(layer.(*layers.ICMPv4), dst, port, srcPort) {
			return unreachableOutcome, 0, true
		}
		return outcome{}, 0, false
	}

	tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok || uint16(tcp.SrcPort) != port || uint16(tcp.DstPort) != srcPort {
		return outcome{}, 0, false
	}
	switch {
	case tcp.SYN && tcp.ACK && tcp.Ack == seq+1:
		return synAckOutcome, tcp.Ack, true
	case tcp.RST:
		return rstOutcome, 0, true
	}
	return outcome{}, 0, false
}

// teardown builds the reset that aborts a half-open connection after a
// SYN-ACK. Its sequence number is the acknowledgment the target sent.
func (p *synProber) teardown(dst netip.Addr, srcPort, port uint16, ack uint32) ([]byte, error) {
	return p.segment(dst, srcPort, port, ack, 0, func(t *layers.TCP) { t.RST = true })
}

func (p *synProber) segment(dst netip.Addr, srcPort, dstPort uint16, seq, ack uint32, flags func(*layers.TCP)) ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    p.source.AsSlice(),
		DstIP:    dst.AsSlice(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     seq,
		Ack:     ack,
		Window:  synWindow,
	}
	flags(tcp)
	if tcp.SYN {
		tcp.Options = []layers.TCPOption{{
			OptionType:   layers.TCPOptionKindMSS,
			OptionLength: 4,
			OptionData:   []byte{0x05, 0xb4},
		}}
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, fmt.Errorf("checksum layer: %w", err)
	}

	// The kernel writes the IP header; only the TCP segment is serialized,
	// with the IPv4 layer supplying the checksum pseudo-header.
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, tcp); err != nil {
		return nil, fmt.Errorf("serialize segment: %w", err)
	}
	return buf.Bytes(), nil
}

// quotesProbe reports whether an ICMP destination-unreachable message
// quotes the SYN sent from srcPort to dst:port.
func quotesProbe(layer *layers.ICMPv4, dst netip.Addr, port, srcPort uint16) bool {
	raw := make([]byte, 0, len(layer.Contents)+len(layer.Payload))
	raw = append(raw, layer.Contents...)
	raw = append(raw, layer.Payload...)

	msg, err := icmp.ParseMessage(protocolICMP4, raw)
	if err != nil || msg.Type != ipv4.ICMPTypeDestinationUnreachable {
		return false
	}
	body, ok := msg.Body.(*icmp.DstUnreach)
	if !ok {
		return false
	}

	hdr, err := ipv4.ParseHeader(body.Data)
	if err != nil || hdr.Protocol != protocolTCP || !hdr.Dst.Equal(dst.AsSlice()) {
		return false
	}
	quoted := body.Data[hdr.Len:]
	if len(quoted) < 4 {
		return false
	}
	return binary.BigEndian.Uint16(quoted[0:2]) == srcPort &&
		binary.BigEndian.Uint16(quoted[2:4]) == port
}

// openOutcome classifies a failure to open a capture handle or raw socket.
// libpcap reports descriptor exhaustion only through its message text.
func openOutcome(err error) outcome {
	if isResourceExhausted(err) || strings.Contains(strings.ToLower(err.Error()), "too many open files") {
		return resourceOutcome(err)
	}
	return socketErrorOutcome(err)
}
