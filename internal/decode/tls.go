package decode

import "encoding/binary"

const (
	tlsRecordHandshake = 0x16
	tlsClientHello     = 0x01
	tlsExtensionSNI    = 0x0000
	tlsSNIHostname     = 0x00
)

// sniffTLS extracts the SNI hostname from a TLS ClientHello. The handshake
// fields are walked in strict order with the remaining length tracked at each
// step; any declared length that would leave the buffer aborts the sniff.
// The first hostname entry in the server_name extension wins.
func sniffTLS(rec *PacketRecord, payload []byte) {
	// TLS record header: type(1) version(2) length(2)
	if len(payload) < 5 || payload[0] != tlsRecordHandshake {
		return
	}
	// Handshake header: type(1) length(3)
	if len(payload) < 9 || payload[5] != tlsClientHello {
		return
	}

	// client_version(2) + random(32)
	pos := 9 + 2 + 32
	if pos >= len(payload) {
		return
	}

	// session_id
	pos += 1 + int(payload[pos])
	if pos+2 > len(payload) {
		return
	}

	// cipher_suites
	pos += 2 + int(binary.BigEndian.Uint16(payload[pos:pos+2]))
	if pos+1 > len(payload) {
		return
	}

	// compression_methods
	pos += 1 + int(payload[pos])
	if pos+2 > len(payload) {
		return
	}

	extLen := int(binary.BigEndian.Uint16(payload[pos : pos+2]))
	pos += 2
	if pos+extLen > len(payload) {
		return
	}
	extEnd := pos + extLen

	for pos+4 <= extEnd {
		extType := binary.BigEndian.Uint16(payload[pos : pos+2])
		length := int(binary.BigEndian.Uint16(payload[pos+2 : pos+4]))
		pos += 4
		if pos+length > extEnd {
			return
		}
		if extType == tlsExtensionSNI {
			if sni := parseSNIExtension(payload[pos : pos+length]); sni != "" {
				rec.AppProtocol = "TLS"
				rec.Hostname = sni
				rec.AppInfo = "ClientHello"
			}
			return
		}
		pos += length
	}
}

// parseSNIExtension walks the server_name_list for the first entry with
// name-type hostname.
func parseSNIExtension(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	listLen := int(binary.BigEndian.Uint16(data[0:2]))
	pos := 2
	end := pos + listLen
	if end > len(data) {
		end = len(data)
	}

	for pos+3 <= end {
		nameType := data[pos]
		nameLen := int(binary.BigEndian.Uint16(data[pos+1 : pos+3]))
		pos += 3
		if pos+nameLen > end {
			return ""
		}
		if nameType == tlsSNIHostname {
			return string(data[pos : pos+nameLen])
		}
		pos += nameLen
	}
	return ""
}
