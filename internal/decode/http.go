package decode

import (
	"bytes"
	"strings"
)

// Request methods recognized at the start of a payload.
var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS", "PATCH", "CONNECT"}

// Header text is scanned at most this far for the Host header.
const httpScanLimit = 2048

// sniffHTTP matches the payload against HTTP/1.x request and response
// shapes. For requests it extracts the request-line path when it has a
// plausible length and scans the header block for the first Host header.
// Later Host lines are ignored.
func sniffHTTP(rec *PacketRecord, payload []byte) {
	for _, method := range httpMethods {
		if len(payload) > len(method)+1 && string(payload[:len(method)]) == method && payload[len(method)] == ' ' {
			rec.AppProtocol = "HTTP"
			rec.AppInfo = method

			if path := httpRequestPath(payload); len(path) >= 2 && len(path) < 50 {
				rec.AppInfo = method + " " + path
			}
			if host := httpHostHeader(payload); host != "" {
				rec.Hostname = host
			}
			return
		}
	}

	if bytes.HasPrefix(payload, []byte("HTTP/1.")) {
		rec.AppProtocol = "HTTP"
		rec.AppInfo = "Response"
	}
}

// httpRequestPath returns the token between the first and last space of the
// request line, i.e. the path portion of "GET /index.html HTTP/1.1".
func httpRequestPath(payload []byte) string {
	end := bytes.IndexByte(payload, '\r')
	if end < 0 {
		end = len(payload)
	}
	line := string(payload[:end])

	first := strings.IndexByte(line, ' ')
	last := strings.LastIndexByte(line, ' ')
	if first < 0 || last <= first {
		return ""
	}
	return line[first+1 : last]
}

// httpHostHeader scans CRLF-delimited header lines for a case-insensitive
// Host header, stripping any trailing :port.
func httpHostHeader(payload []byte) string {
	if len(payload) > httpScanLimit {
		payload = payload[:httpScanLimit]
	}

	for _, line := range bytes.Split(payload, []byte("\r\n")) {
		if len(line) == 0 {
			break // end of header block
		}
		if len(line) < 5 || !strings.EqualFold(string(line[:5]), "Host:") {
			continue
		}
		host := strings.TrimSpace(string(line[5:]))
		if i := strings.LastIndexByte(host, ':'); i > 0 && !strings.Contains(host[i+1:], "]") {
			host = host[:i]
		}
		return host
	}
	return ""
}
