package decode

import (
	"encoding/binary"
	"net"
	"time"
)

const (
	ethernetHeaderLen = 14
	arpHeaderLen      = 28
	ipv4MinHeaderLen  = 20
	ipv6HeaderLen     = 40
	tcpMinHeaderLen   = 20
	udpHeaderLen      = 8
)

// Decode parses one captured frame into a PacketRecord. It never fails:
// whenever the remaining bytes are too short for the next header the record
// built so far is returned. wireLen is the original on-the-wire length, which
// may exceed len(raw) when the capture snapshot truncated the frame.
func Decode(raw []byte, wireLen uint32) PacketRecord {
	rec := PacketRecord{
		Timestamp:   time.Now(),
		CapturedLen: uint32(len(raw)),
		WireLen:     wireLen,
		RawBytes:    raw,
	}

	if len(raw) < ethernetHeaderLen {
		return rec
	}

	copy(rec.DstMAC[:], raw[0:6])
	copy(rec.SrcMAC[:], raw[6:12])
	rec.EtherType = binary.BigEndian.Uint16(raw[12:14])

	payload := raw[ethernetHeaderLen:]

	// Unwrap 802.1Q VLAN tags. Each tag is 4 bytes with the inner
	// EtherType at offset 2.
	for rec.EtherType == EtherTypeVLAN && len(payload) >= 4 {
		rec.EtherType = binary.BigEndian.Uint16(payload[2:4])
		payload = payload[4:]
	}

	switch rec.EtherType {
	case EtherTypeARP:
		// Sender/target IPv4 addresses only; ARP has no transport layer.
		if len(payload) >= arpHeaderLen {
			rec.SrcIP = net.IP(payload[14:18]).String()
			rec.DstIP = net.IP(payload[24:28]).String()
		}
		return rec

	case EtherTypeIPv4:
		if len(payload) < ipv4MinHeaderLen {
			return rec
		}
		rec.IPVersion = 4
		rec.TTL = payload[8]
		rec.Protocol = payload[9]
		rec.SrcIP = net.IP(payload[12:16]).String()
		rec.DstIP = net.IP(payload[16:20]).String()

		hdrLen := int(payload[0]&0x0F) * 4
		if hdrLen > len(payload) {
			return rec
		}
		payload = payload[hdrLen:]

	case EtherTypeIPv6:
		if len(payload) < ipv6HeaderLen {
			return rec
		}
		rec.IPVersion = 6
		rec.Protocol = payload[6]
		rec.TTL = payload[7] // hop limit
		rec.SrcIP = net.IP(payload[8:24]).String()
		rec.DstIP = net.IP(payload[24:40]).String()

		// Fixed header only; extension headers are not walked.
		payload = payload[ipv6HeaderLen:]

	default:
		return rec
	}

	switch rec.Protocol {
	case ProtoTCP:
		if len(payload) < tcpMinHeaderLen {
			return rec
		}
		rec.SrcPort = binary.BigEndian.Uint16(payload[0:2])
		rec.DstPort = binary.BigEndian.Uint16(payload[2:4])
		rec.TCPFlags = payload[13] & 0x3F

		dataOffset := int(payload[12]>>4) * 4
		if dataOffset < tcpMinHeaderLen || dataOffset > len(payload) {
			return rec
		}
		payload = payload[dataOffset:]

	case ProtoUDP:
		if len(payload) < udpHeaderLen {
			return rec
		}
		rec.SrcPort = binary.BigEndian.Uint16(payload[0:2])
		rec.DstPort = binary.BigEndian.Uint16(payload[2:4])
		payload = payload[udpHeaderLen:]

	default:
		return rec
	}

	if len(payload) > 0 {
		sniffApplication(&rec, payload)
	}
	return rec
}

// sniffApplication attempts hostname extraction from the transport payload.
// Selection is by port number, not payload inspection; this is a display
// heuristic rather than protocol negotiation.
func sniffApplication(rec *PacketRecord, payload []byte) {
	switch {
	case rec.SrcPort == 53 || rec.DstPort == 53:
		sniffDNS(rec, payload)
	case rec.SrcPort == 80 || rec.DstPort == 80:
		sniffHTTP(rec, payload)
	case rec.DstPort == 443:
		sniffTLS(rec, payload)
	}
}
