// Package capture turns link-layer discovery traffic into captured-packet
// framesets and back.
package capture

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/frameset"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/rs/zerolog/log"
)

type Protocol string

const (
	ProtocolLLDP  Protocol = "lldp"
	ProtocolCDP   Protocol = "cdp"
	ProtocolOther Protocol = "other"
)

// Packet is the decoded form of a captured-packet frameset.
type Packet struct {
	Captured   time.Time
	Device     string
	Protocol   Protocol
	WireLength uint32
	Data       []byte
	Addresses  []*frame.Address
}

func decodeEthernet(data []byte) gopacket.Packet {
	return gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{NoCopy: true})
}

// Classify reports which discovery protocol data carries, if any.
func Classify(data []byte) Protocol {
	return classify(decodeEthernet(data))
}

func classify(pkt gopacket.Packet) Protocol {
	switch {
	case pkt.Layer(layers.LayerTypeLinkLayerDiscovery) != nil:
		return ProtocolLLDP
	case pkt.Layer(layers.LayerTypeCiscoDiscovery) != nil:
		return ProtocolCDP
	default:
		return ProtocolOther
	}
}

// Encapsulate builds a captured-packet frameset for one frame read from
// device. Addresses found in the packet follow the fixed head frames.
func Encapsulate(data []byte, ci gopacket.CaptureInfo, device string) (*frameset.Frameset, error) {
	pkt := decodeEthernet(data)
	proto := classify(pkt)

	dev, err := frame.NewCstring(device)
	if err != nil {
		return nil, fmt.Errorf("capture device: %w", err)
	}
	protoFrame, err := frame.NewCstring(string(proto))
	if err != nil {
		return nil, err
	}
	var micros uint64
	if us := ci.Timestamp.UnixMicro(); us > 0 {
		micros = uint64(us)
	}
	wire := ci.Length
	if wire < len(data) {
		wire = len(data)
	}

	fs := frameset.New(schema.MsgCapturedPacket)
	if err := fs.AppendAll(
		frame.NewUint64(micros),
		dev,
		protoFrame,
		frame.NewUint32(uint32(wire)),
		frame.NewOpaque(data),
	); err != nil {
		return nil, err
	}
	for _, addr := range addresses(pkt, proto) {
		if err := fs.Append(addr); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func addresses(pkt gopacket.Packet, proto Protocol) []*frame.Address {
	var out []*frame.Address
	if eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet); ok {
		if a, err := frame.NewMACAddress(eth.SrcMAC); err == nil {
			out = append(out, a)
		}
	}
	switch proto {
	case ProtocolLLDP:
		if lldp, ok := pkt.Layer(layers.LayerTypeLinkLayerDiscovery).(*layers.LinkLayerDiscovery); ok {
			out = append(out, lldpMgmtAddresses(lldp.Values)...)
		}
	case ProtocolCDP:
		if info, ok := pkt.Layer(layers.LayerTypeCiscoDiscoveryInfo).(*layers.CiscoDiscoveryInfo); ok {
			out = append(out, ipAddresses(info.Addresses)...)
			out = append(out, ipAddresses(info.MgmtAddresses)...)
		}
	}
	return out
}

// lldpMgmtAddresses reads every management address TLV. The value starts
// with the address string length, which counts the family subtype byte.
func lldpMgmtAddresses(values []layers.LinkLayerDiscoveryValue) []*frame.Address {
	var out []*frame.Address
	for _, v := range values {
		if v.Type != layers.LLDPTLVMgmtAddress || len(v.Value) < 2 {
			continue
		}
		mlen := int(v.Value[0])
		if mlen < 2 || len(v.Value) < 1+mlen {
			log.Debug().Int("len", len(v.Value)).Msg("capture: short lldp management address")
			continue
		}
		fam := frame.Family(layers.IANAAddressFamily(v.Value[1]))
		a, err := frame.NewAddress(fam, v.Value[2:1+mlen])
		if err != nil {
			log.Debug().Err(err).Str("family", fam.String()).Msg("capture: skipping lldp management address")
			continue
		}
		out = append(out, a)
	}
	return out
}

func ipAddresses(ips []net.IP) []*frame.Address {
	var out []*frame.Address
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		a, err := frame.NewIPAddress(addr)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Decode reads a captured-packet frameset back into a Packet.
func Decode(fs *frameset.Frameset) (Packet, error) {
	if err := schema.Validate(fs); err != nil {
		return Packet{}, err
	}
	frames := fs.Frames()
	micros, err := frame.AsUint(frames[0])
	if err != nil {
		return Packet{}, err
	}
	device, err := frame.AsString(frames[1])
	if err != nil {
		return Packet{}, err
	}
	proto, err := frame.AsString(frames[2])
	if err != nil {
		return Packet{}, err
	}
	wire, err := frame.AsUint(frames[3])
	if err != nil {
		return Packet{}, err
	}
	data, err := frame.AsBytes(frames[4])
	if err != nil {
		return Packet{}, err
	}
	if micros > uint64(1<<63-1) {
		return Packet{}, fmt.Errorf("%w: capture time %d out of range", protocol.ErrMalformed, micros)
	}
	p := Packet{
		Captured:   time.UnixMicro(int64(micros)).UTC(),
		Device:     device,
		Protocol:   Protocol(proto),
		WireLength: uint32(wire),
		Data:       data,
	}
	for _, f := range frames[5:] {
		a, err := frame.AsAddress(f)
		if err != nil {
			return Packet{}, err
		}
		p.Addresses = append(p.Addresses, a)
	}
	return p, nil
}

// Summary is a short log-friendly description of the LLDP chassis and port.
func Summary(data []byte) string {
	pkt := decodeEthernet(data)
	lldp, ok := pkt.Layer(layers.LayerTypeLinkLayerDiscovery).(*layers.LinkLayerDiscovery)
	if !ok {
		return string(classify(pkt))
	}
	return fmt.Sprintf("lldp chassis=%x port=%q ttl=%d", lldp.ChassisID.ID, lldp.PortID.ID, lldp.TTL)
}
