// Package decode turns raw captured frames into structured packet records.
//
// Every parser in this package is best-effort: truncated or malformed input
// never produces an error, it just leaves the remaining fields at their zero
// values. Capture input is untrusted, so all field extraction is explicit
// bounds-checked reads at fixed offsets.
package decode

import (
	"fmt"
	"strconv"
	"time"
)

// IANA protocol numbers.
const (
	ProtoICMP   = 1
	ProtoTCP    = 6
	ProtoUDP    = 17
	ProtoICMPv6 = 58
)

// EtherTypes (after VLAN unwrapping).
const (
	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806
	EtherTypeVLAN = 0x8100
	EtherTypeIPv6 = 0x86DD
)

// TCP flag bits.
const (
	TCPFin = 0x01
	TCPSyn = 0x02
	TCPRst = 0x04
	TCPPsh = 0x08
	TCPAck = 0x10
	TCPUrg = 0x20
)

// PacketRecord is one decoded frame. Fields default to zero/empty when the
// corresponding layer was absent or truncated.
type PacketRecord struct {
	Timestamp   time.Time
	CapturedLen uint32
	WireLen     uint32

	// Ethernet layer
	SrcMAC    [6]byte
	DstMAC    [6]byte
	EtherType uint16

	// IP layer (IPVersion 0 means none/unknown)
	IPVersion uint8
	SrcIP     string
	DstIP     string
	Protocol  uint8
	TTL       uint8

	// Transport layer
	SrcPort  uint16
	DstPort  uint16
	TCPFlags uint8

	// Application layer (empty unless detected)
	Hostname    string
	AppProtocol string // "DNS", "HTTP" or "TLS"
	AppInfo     string // method / query type / handshake stage

	// Annotations filled in by collaborators, never by the decoder.
	Category       string
	Description    string
	WatchlistMatch bool
	WatchlistLabel string
	ProcessName    string
	ProcessPID     int

	// Full captured payload, retained for inspection.
	RawBytes []byte
}

// ProtocolName returns the display name used for protocol breakdowns: the
// application protocol when one was sniffed, else the transport/ICMP name,
// else "IP/<number>" for other IP protocols, else "ARP"/"ETH".
func (r *PacketRecord) ProtocolName() string {
	if r.AppProtocol != "" {
		return r.AppProtocol
	}
	if r.EtherType == EtherTypeARP {
		return "ARP"
	}
	switch r.Protocol {
	case ProtoICMP:
		return "ICMP"
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	case ProtoICMPv6:
		return "ICMPv6"
	default:
		if r.IPVersion == 4 || r.IPVersion == 6 {
			return "IP/" + strconv.Itoa(int(r.Protocol))
		}
		return "ETH"
	}
}

// TCPFlagsString renders the set flags as "[SAFRPU]", empty for non-TCP.
func (r *PacketRecord) TCPFlagsString() string {
	if r.Protocol != ProtoTCP {
		return ""
	}
	var flags []byte
	if r.TCPFlags&TCPSyn != 0 {
		flags = append(flags, 'S')
	}
	if r.TCPFlags&TCPAck != 0 {
		flags = append(flags, 'A')
	}
	if r.TCPFlags&TCPFin != 0 {
		flags = append(flags, 'F')
	}
	if r.TCPFlags&TCPRst != 0 {
		flags = append(flags, 'R')
	}
	if r.TCPFlags&TCPPsh != 0 {
		flags = append(flags, 'P')
	}
	if r.TCPFlags&TCPUrg != 0 {
		flags = append(flags, 'U')
	}
	if len(flags) == 0 {
		return ""
	}
	return "[" + string(flags) + "]"
}

// FormatMAC renders a MAC address as aa:bb:cc:dd:ee:ff.
func FormatMAC(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// Summary returns a one-line description for list views.
func (r *PacketRecord) Summary() string {
	if r.EtherType == EtherTypeARP {
		return "ARP"
	}
	if r.IPVersion == 0 {
		return FormatMAC(r.SrcMAC) + " -> " + FormatMAC(r.DstMAC)
	}
	switch r.Protocol {
	case ProtoTCP:
		s := fmt.Sprintf("%d -> %d", r.SrcPort, r.DstPort)
		if f := r.TCPFlagsString(); f != "" {
			s += " " + f
		}
		if r.Hostname != "" {
			s += " " + r.Hostname
		}
		return s
	case ProtoUDP:
		s := fmt.Sprintf("%d -> %d", r.SrcPort, r.DstPort)
		if r.Hostname != "" {
			s += " " + r.Hostname
		}
		return s
	case ProtoICMP, ProtoICMPv6:
		return "Echo request/reply"
	}
	return r.SrcIP + " -> " + r.DstIP
}

// TimestampString formats the capture instant for display, millisecond precision.
func (r *PacketRecord) TimestampString() string {
	return r.Timestamp.Format("15:04:05.000")
}
