package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// encodeDNSName builds the length-prefixed-label encoding of a dotted name,
// including the terminating zero label.
func encodeDNSName(name string) []byte {
	var out []byte
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			out = append(out, byte(i-start))
			out = append(out, name[start:i]...)
			start = i + 1
		}
	}
	return append(out, 0)
}

func TestParseDNSNameRoundTrip(t *testing.T) {
	msg := []byte{3, 'w', 'w', 'w', 6, 'g', 'o', 'o', 'g', 'l', 'e', 3, 'c', 'o', 'm', 0}
	name, next := parseDNSName(msg, 0)
	assert.Equal(t, "www.google.com", name)
	assert.Equal(t, len(msg), next)
}

func TestParseDNSNameCompressionPointer(t *testing.T) {
	// "google.com" encoded at offset 0, a pointer to it at offset 12.
	msg := encodeDNSName("google.com")
	for len(msg) < 12 {
		msg = append(msg, 0)
	}
	msg = append(msg, 0xC0, 0x00)

	name, next := parseDNSName(msg, 12)
	assert.Equal(t, "google.com", name)
	// The caller's next position is right after the pointer, not after the
	// jump target.
	assert.Equal(t, 14, next)
}

func TestParseDNSNamePartialThenPointer(t *testing.T) {
	// "mail" label followed by a pointer back to "google.com" at offset 0.
	msg := encodeDNSName("google.com")
	offset := len(msg)
	msg = append(msg, 4, 'm', 'a', 'i', 'l', 0xC0, 0x00)

	name, next := parseDNSName(msg, offset)
	assert.Equal(t, "mail.google.com", name)
	assert.Equal(t, offset+7, next)
}

func TestParseDNSNameSelfReferentialPointerTerminates(t *testing.T) {
	// A pointer that jumps to itself forever. The jump cap must end it.
	msg := make([]byte, 14)
	msg[12] = 0xC0
	msg[13] = 0x0C // points at offset 12, i.e. itself

	name, next := parseDNSName(msg, 12)
	assert.Equal(t, "", name)
	assert.Equal(t, 14, next)
}

func TestParseDNSNamePointerCycleTerminates(t *testing.T) {
	// Two pointers pointing at each other.
	msg := []byte{0xC0, 0x02, 0xC0, 0x00}
	name, next := parseDNSName(msg, 0)
	assert.Equal(t, "", name)
	assert.Equal(t, 2, next)
}

func TestParseDNSNameTruncatedLabel(t *testing.T) {
	// Label claims 10 bytes but only 3 are present.
	msg := []byte{10, 'a', 'b', 'c'}
	name, _ := parseDNSName(msg, 0)
	assert.Equal(t, "", name)
}

func TestParseDNSNameTruncatedPointer(t *testing.T) {
	msg := []byte{3, 'f', 'o', 'o', 0xC0}
	name, _ := parseDNSName(msg, 0)
	assert.Equal(t, "foo", name)
}

func TestParseDNSNamePointerOutOfBounds(t *testing.T) {
	msg := []byte{0xC0, 0x7F}
	name, next := parseDNSName(msg, 0)
	assert.Equal(t, "", name)
	assert.Equal(t, 2, next)
}

func TestSniffDNSResponse(t *testing.T) {
	msg := make([]byte, dnsHeaderLen)
	msg[2] = 0x80 // QR bit set: response
	msg[5] = 1    // one question
	msg = append(msg, encodeDNSName("example.org")...)
	msg = append(msg, 0x00, 0x1C, 0x00, 0x01) // AAAA

	var rec PacketRecord
	sniffDNS(&rec, msg)
	assert.Equal(t, "DNS", rec.AppProtocol)
	assert.Equal(t, "example.org", rec.Hostname)
	assert.Equal(t, "Response AAAA", rec.AppInfo)
}

func TestSniffDNSZeroQuestions(t *testing.T) {
	msg := make([]byte, dnsHeaderLen)
	var rec PacketRecord
	sniffDNS(&rec, msg)
	assert.Empty(t, rec.AppProtocol)
}

func TestSniffDNSTooShort(t *testing.T) {
	var rec PacketRecord
	sniffDNS(&rec, []byte{0x12, 0x34})
	assert.Empty(t, rec.AppProtocol)
}

func TestDNSTypeNames(t *testing.T) {
	assert.Equal(t, "A", dnsTypeName(1))
	assert.Equal(t, "AAAA", dnsTypeName(28))
	assert.Equal(t, "CNAME", dnsTypeName(5))
	assert.Equal(t, "MX", dnsTypeName(15))
	assert.Equal(t, "TXT", dnsTypeName(16))
	assert.Equal(t, "NS", dnsTypeName(2))
	assert.Equal(t, "SOA", dnsTypeName(6))
	assert.Equal(t, "TYPE255", dnsTypeName(255))
}
