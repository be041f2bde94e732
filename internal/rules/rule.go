// Package rules implements the pattern-matching engine shared by the
// watchlist and the description database. A rule is compiled once at load
// time; rules that fail to compile are rejected and never enter a rule set.
package rules

import (
	"encoding/binary"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// MatchKind selects the matching strategy for a compiled rule.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchWildcard
	MatchRegex
	MatchIP
	MatchCIDR
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchWildcard:
		return "wildcard"
	case MatchRegex:
		return "regex"
	case MatchIP:
		return "ip"
	case MatchCIDR:
		return "cidr"
	}
	return "unknown"
}

// Rule is a compiled pattern. The kind-specific compiled form is populated by
// Compile; the zero values of the unused forms are never consulted.
type Rule struct {
	Kind    MatchKind
	Pattern string

	re      *regexp.Regexp // wildcard and regex kinds
	addr    uint32         // ip and cidr kinds, host byte order
	netmask uint32         // cidr kind
}

// Compile builds a Rule from a kind name and pattern text. Kind names are
// case-insensitive: exact, wildcard, regex, ip, cidr.
func Compile(kind, pattern string) (Rule, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Rule{}, fmt.Errorf("empty pattern")
	}

	r := Rule{Pattern: pattern}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "exact":
		r.Kind = MatchExact

	case "wildcard":
		r.Kind = MatchWildcard
		re, err := regexp.Compile("(?i)" + WildcardToRegex(pattern))
		if err != nil {
			return Rule{}, fmt.Errorf("wildcard %q: %w", pattern, err)
		}
		r.re = re

	case "regex":
		r.Kind = MatchRegex
		// Full-string semantics: the pattern must cover the whole candidate,
		// not merely occur within it.
		re, err := regexp.Compile("(?i)^(?:" + pattern + ")$")
		if err != nil {
			return Rule{}, fmt.Errorf("regex %q: %w", pattern, err)
		}
		r.re = re

	case "ip":
		r.Kind = MatchIP
		addr, ok := parseIPv4(pattern)
		if !ok {
			return Rule{}, fmt.Errorf("invalid IPv4 address %q", pattern)
		}
		r.addr = addr

	case "cidr":
		r.Kind = MatchCIDR
		host, prefixStr, found := strings.Cut(pattern, "/")
		if !found {
			return Rule{}, fmt.Errorf("CIDR %q missing prefix", pattern)
		}
		addr, ok := parseIPv4(host)
		if !ok {
			return Rule{}, fmt.Errorf("invalid CIDR address %q", pattern)
		}
		prefix, err := strconv.Atoi(prefixStr)
		if err != nil || prefix < 0 || prefix > 32 {
			return Rule{}, fmt.Errorf("invalid CIDR prefix %q", pattern)
		}
		r.addr = addr
		if prefix == 0 {
			r.netmask = 0
		} else {
			r.netmask = 0xFFFFFFFF << (32 - prefix)
		}

	default:
		return Rule{}, fmt.Errorf("unknown match kind %q", kind)
	}

	return r, nil
}

// CompileAuto builds a Rule with the kind inferred from the pattern text:
// a leading ~ means regex (using the remainder), * or ? anywhere means
// wildcard, anything else is an exact match. Used by rule files that carry no
// explicit kind field.
func CompileAuto(pattern string) (Rule, error) {
	pattern = strings.TrimSpace(pattern)
	if strings.HasPrefix(pattern, "~") {
		return Compile("regex", pattern[1:])
	}
	if strings.ContainsAny(pattern, "*?") {
		return Compile("wildcard", pattern)
	}
	return Compile("exact", pattern)
}

// DetectKind reports the kind CompileAuto would infer for pattern.
func DetectKind(pattern string) MatchKind {
	if strings.HasPrefix(pattern, "~") {
		return MatchRegex
	}
	if strings.ContainsAny(pattern, "*?") {
		return MatchWildcard
	}
	return MatchExact
}

// Matches reports whether the candidate hostname or IP string satisfies the
// rule. All string comparisons are case-insensitive full matches. IP and
// CIDR kinds only ever match parseable IPv4 candidates.
func (r *Rule) Matches(value string) bool {
	if value == "" {
		return false
	}
	switch r.Kind {
	case MatchExact:
		return strings.EqualFold(value, r.Pattern)
	case MatchWildcard, MatchRegex:
		return r.re != nil && r.re.MatchString(value)
	case MatchIP:
		addr, ok := parseIPv4(value)
		return ok && addr == r.addr
	case MatchCIDR:
		addr, ok := parseIPv4(value)
		return ok && addr&r.netmask == r.addr&r.netmask
	}
	return false
}

// WildcardToRegex translates a glob-style pattern to an anchored regular
// expression: * becomes .*, ? becomes ., and regex metacharacters are
// escaped so they match literally. Both rule consumers go through this same
// translation.
func WildcardToRegex(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern)*2 + 2)
	b.WriteByte('^')

	for _, c := range []byte(pattern) {
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '.', '+', '^', '$', '(', ')', '[', ']', '{', '}', '|', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte('$')
	return b.String()
}

// parseIPv4 parses a dotted-quad address to host byte order. IPv6 and
// malformed input return false.
func parseIPv4(s string) (uint32, bool) {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}
