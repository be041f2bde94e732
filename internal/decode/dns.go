package decode

import (
	"encoding/binary"
	"strconv"
	"strings"
)

const (
	dnsHeaderLen   = 12
	maxDNSJumps    = 50
	dnsCompression = 0xC0
)

// sniffDNS parses the first question of a DNS message. Only the first
// question is inspected; additional questions are ignored (best-effort
// display behavior, not full message parsing).
func sniffDNS(rec *PacketRecord, payload []byte) {
	if len(payload) < dnsHeaderLen {
		return
	}

	flags := binary.BigEndian.Uint16(payload[2:4])
	qdCount := binary.BigEndian.Uint16(payload[4:6])
	if qdCount == 0 {
		return
	}

	name, next := parseDNSName(payload, dnsHeaderLen)
	if name == "" {
		return
	}

	rec.AppProtocol = "DNS"
	rec.Hostname = name

	kind := "Query"
	if flags&0x8000 != 0 { // QR bit
		kind = "Response"
	}

	// Query type follows the name when captured in full.
	if next+2 <= len(payload) {
		qtype := binary.BigEndian.Uint16(payload[next : next+2])
		rec.AppInfo = kind + " " + dnsTypeName(qtype)
	} else {
		rec.AppInfo = kind
	}
}

// parseDNSName decodes a length-prefixed-label DNS name starting at offset
// within msg, following compression pointers. It returns the dotted name and
// the offset just past the original (non-jumped) encoding: when a pointer is
// encountered, the caller's next position is two bytes after the first
// pointer, regardless of where the jumps land. Pointer jumps are capped so
// malformed or cyclic input always terminates, and any read that would leave
// the buffer aborts with whatever labels were accumulated.
func parseDNSName(msg []byte, offset int) (string, int) {
	var labels []string
	pos := offset
	next := -1 // caller-visible advance point, set on first pointer
	jumps := 0

	for {
		if pos < 0 || pos >= len(msg) {
			break
		}
		length := int(msg[pos])

		if length&dnsCompression == dnsCompression {
			if pos+1 >= len(msg) {
				break
			}
			if next < 0 {
				next = pos + 2
			}
			jumps++
			if jumps > maxDNSJumps {
				break
			}
			pos = (length&0x3F)<<8 | int(msg[pos+1])
			continue
		}

		if length == 0 {
			pos++
			break
		}
		if pos+1+length > len(msg) {
			break
		}
		labels = append(labels, string(msg[pos+1:pos+1+length]))
		pos += 1 + length
	}

	if next < 0 {
		next = pos
	}
	return strings.Join(labels, "."), next
}

func dnsTypeName(qtype uint16) string {
	switch qtype {
	case 1:
		return "A"
	case 2:
		return "NS"
	case 5:
		return "CNAME"
	case 6:
		return "SOA"
	case 15:
		return "MX"
	case 16:
		return "TXT"
	case 28:
		return "AAAA"
	default:
		return "TYPE" + strconv.Itoa(int(qtype))
	}
}
