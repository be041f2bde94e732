package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildClientHello assembles a minimal TLS ClientHello record carrying the
// given extensions block.
func buildClientHello(extensions []byte) []byte {
	body := []byte{0x03, 0x03}                  // client_version TLS 1.2
	body = append(body, make([]byte, 32)...)    // random
	body = append(body, 0)                      // empty session_id
	body = append(body, 0x00, 0x02, 0x13, 0x01) // one cipher suite
	body = append(body, 0x01, 0x00)             // one compression method: null

	extLen := make([]byte, 2)
	binary.BigEndian.PutUint16(extLen, uint16(len(extensions)))
	body = append(body, extLen...)
	body = append(body, extensions...)

	handshake := []byte{tlsClientHello, 0x00, byte(len(body) >> 8), byte(len(body))}
	handshake = append(handshake, body...)

	record := []byte{tlsRecordHandshake, 0x03, 0x01, byte(len(handshake) >> 8), byte(len(handshake))}
	return append(record, handshake...)
}

// sniExtension builds a server_name extension for one hostname.
func sniExtension(hostname string) []byte {
	entry := []byte{tlsSNIHostname, byte(len(hostname) >> 8), byte(len(hostname))}
	entry = append(entry, hostname...)

	list := []byte{byte(len(entry) >> 8), byte(len(entry))}
	list = append(list, entry...)

	ext := []byte{0x00, 0x00, byte(len(list) >> 8), byte(len(list))}
	return append(ext, list...)
}

func TestSniffTLSExtractsSNI(t *testing.T) {
	payload := buildClientHello(sniExtension("secure.example.com"))

	var rec PacketRecord
	sniffTLS(&rec, payload)
	assert.Equal(t, "TLS", rec.AppProtocol)
	assert.Equal(t, "secure.example.com", rec.Hostname)
	assert.Equal(t, "ClientHello", rec.AppInfo)
}

func TestSniffTLSSkipsOtherExtensions(t *testing.T) {
	// supported_versions extension first, then server_name.
	other := []byte{0x00, 0x2B, 0x00, 0x03, 0x02, 0x03, 0x04}
	payload := buildClientHello(append(other, sniExtension("a.example")...))

	var rec PacketRecord
	sniffTLS(&rec, payload)
	assert.Equal(t, "a.example", rec.Hostname)
}

func TestSniffTLSNoSNIExtension(t *testing.T) {
	payload := buildClientHello([]byte{0x00, 0x2B, 0x00, 0x03, 0x02, 0x03, 0x04})

	var rec PacketRecord
	sniffTLS(&rec, payload)
	assert.Empty(t, rec.AppProtocol)
	assert.Empty(t, rec.Hostname)
}

func TestSniffTLSNotHandshake(t *testing.T) {
	var rec PacketRecord
	sniffTLS(&rec, []byte{0x17, 0x03, 0x03, 0x00, 0x10, 0x01, 0x02, 0x03, 0x04})
	assert.Empty(t, rec.AppProtocol)
}

func TestSniffTLSNotClientHello(t *testing.T) {
	// ServerHello (handshake type 0x02)
	payload := buildClientHello(sniExtension("b.example"))
	payload[5] = 0x02

	var rec PacketRecord
	sniffTLS(&rec, payload)
	assert.Empty(t, rec.AppProtocol)
}

func TestSniffTLSTruncatedNeverPanics(t *testing.T) {
	full := buildClientHello(sniExtension("truncated.example.com"))
	for n := 0; n <= len(full); n++ {
		var rec PacketRecord
		sniffTLS(&rec, full[:n])
	}
}

func TestSniffTLSDeclaredLengthBeyondBuffer(t *testing.T) {
	payload := buildClientHello(sniExtension("c.example"))
	// Inflate the cipher-suite list length so it runs past the buffer.
	pos := 9 + 2 + 32 + 1
	binary.BigEndian.PutUint16(payload[pos:pos+2], 0xFFFF)

	var rec PacketRecord
	sniffTLS(&rec, payload)
	assert.Empty(t, rec.Hostname)
}

func TestParseSNIExtensionFirstHostnameWins(t *testing.T) {
	first := []byte{tlsSNIHostname, 0x00, 0x05, 'o', 'n', 'e', '.', 'x'}
	second := []byte{tlsSNIHostname, 0x00, 0x05, 't', 'w', 'o', '.', 'x'}
	entries := append(first, second...)

	data := []byte{byte(len(entries) >> 8), byte(len(entries))}
	data = append(data, entries...)

	assert.Equal(t, "one.x", parseSNIExtension(data))
}

func TestSniffTLSEndToEndOnPort443(t *testing.T) {
	frame := tcpFrame(50123, 443, TCPPsh|TCPAck, buildClientHello(sniExtension("cdn.example.net")))
	rec := Decode(frame, uint32(len(frame)))
	assert.Equal(t, "TLS", rec.AppProtocol)
	assert.Equal(t, "cdn.example.net", rec.Hostname)
}

func TestSniffTLSOnlyDestinationPort443(t *testing.T) {
	// Traffic *from* port 443 is not sniffed; the heuristic is one-way.
	frame := tcpFrame(443, 50123, TCPPsh|TCPAck, buildClientHello(sniExtension("cdn.example.net")))
	rec := Decode(frame, uint32(len(frame)))
	assert.Empty(t, rec.AppProtocol)
}
