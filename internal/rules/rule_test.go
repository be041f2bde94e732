package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWildcardToRegex(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"*.example.com", `^.*\.example\.com$`},
		{"test?.com", `^test.\.com$`},
		{"example.com", `^example\.com$`},
		{"test+file[1].com", `^test\+file\[1\]\.com$`},
		{`a^b$c(d)e{f}g|h\i`, `^a\^b\$c\(d\)e\{f\}g\|h\\i$`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WildcardToRegex(tt.pattern), tt.pattern)
	}
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, MatchExact, DetectKind("example.com"))
	assert.Equal(t, MatchWildcard, DetectKind("*.example.com"))
	assert.Equal(t, MatchWildcard, DetectKind("test?.com"))
	assert.Equal(t, MatchRegex, DetectKind("~^ads[0-9]+\\."))
	assert.Equal(t, MatchExact, DetectKind(""))
}

func TestExactMatchCaseInsensitive(t *testing.T) {
	r, err := Compile("exact", "google.com")
	require.NoError(t, err)
	assert.True(t, r.Matches("google.com"))
	assert.True(t, r.Matches("GOOGLE.COM"))
	assert.False(t, r.Matches("www.google.com"))
	assert.False(t, r.Matches("google.com.evil.com"))
	assert.False(t, r.Matches(""))
}

func TestWildcardMatch(t *testing.T) {
	r, err := Compile("wildcard", "*.google.com")
	require.NoError(t, err)
	assert.True(t, r.Matches("www.google.com"))
	assert.True(t, r.Matches("MAIL.Google.Com"))
	assert.False(t, r.Matches("google.com"))
	assert.False(t, r.Matches("www.google.com.evil"))
}

func TestRegexMatchIsFullString(t *testing.T) {
	r, err := Compile("regex", `ads[0-9]+\.example\.com`)
	require.NoError(t, err)
	assert.True(t, r.Matches("ads1.example.com"))
	assert.True(t, r.Matches("ADS42.EXAMPLE.COM"))
	// Substring occurrences must not match.
	assert.False(t, r.Matches("xads1.example.com"))
	assert.False(t, r.Matches("ads1.example.com.org"))
}

func TestIPMatch(t *testing.T) {
	r, err := Compile("ip", "192.168.1.100")
	require.NoError(t, err)
	assert.True(t, r.Matches("192.168.1.100"))
	assert.False(t, r.Matches("192.168.1.101"))
	assert.False(t, r.Matches("not-an-ip"))
	assert.False(t, r.Matches("::1"))
}

func TestCIDRMatchPrefix8(t *testing.T) {
	r, err := Compile("cidr", "10.0.0.0/8")
	require.NoError(t, err)
	assert.True(t, r.Matches("10.0.0.1"))
	assert.True(t, r.Matches("10.255.255.255"))
	assert.False(t, r.Matches("11.0.0.1"))
	assert.False(t, r.Matches("192.168.1.1"))
}

func TestCIDRMatchPrefix24(t *testing.T) {
	r, err := Compile("cidr", "192.168.1.0/24")
	require.NoError(t, err)
	assert.True(t, r.Matches("192.168.1.0"))
	assert.True(t, r.Matches("192.168.1.255"))
	assert.False(t, r.Matches("192.168.2.1"))
}

func TestCIDRMatchPrefix0MatchesEverything(t *testing.T) {
	r, err := Compile("cidr", "0.0.0.0/0")
	require.NoError(t, err)
	assert.True(t, r.Matches("1.2.3.4"))
	assert.True(t, r.Matches("255.255.255.255"))
	assert.False(t, r.Matches("not-an-ip"))
}

func TestCIDRMatchPrefix32IsExact(t *testing.T) {
	r, err := Compile("cidr", "172.16.0.1/32")
	require.NoError(t, err)
	assert.True(t, r.Matches("172.16.0.1"))
	assert.False(t, r.Matches("172.16.0.2"))
}

func TestCompileFailures(t *testing.T) {
	cases := []struct{ kind, pattern string }{
		{"regex", "["},            // bad regex syntax
		{"ip", "999.1.1.1"},       // unparsable address
		{"ip", "example.com"},     // not an address at all
		{"cidr", "10.0.0.0"},      // missing prefix
		{"cidr", "10.0.0.0/33"},   // prefix out of range
		{"cidr", "10.0.0.0/-1"},   // negative prefix
		{"cidr", "banana/8"},      // bad address
		{"frobnicate", "x"},       // unknown kind
		{"exact", ""},             // empty pattern
		{"exact", "   "},          // whitespace-only pattern
	}
	for _, c := range cases {
		_, err := Compile(c.kind, c.pattern)
		assert.Error(t, err, "%s:%s", c.kind, c.pattern)
	}
}

func TestCompileKindNameIsCaseInsensitive(t *testing.T) {
	_, err := Compile("WILDCARD", "*.x.com")
	assert.NoError(t, err)
	_, err = Compile(" Exact ", "x.com")
	assert.NoError(t, err)
}

func TestCompileAuto(t *testing.T) {
	r, err := CompileAuto("*.tracking.com")
	require.NoError(t, err)
	assert.Equal(t, MatchWildcard, r.Kind)
	assert.True(t, r.Matches("pixel.tracking.com"))
	assert.False(t, r.Matches("tracking.com"))

	r, err = CompileAuto("~^cdn[0-9]+\\.example\\.com$")
	require.NoError(t, err)
	assert.Equal(t, MatchRegex, r.Kind)
	assert.True(t, r.Matches("cdn7.example.com"))

	r, err = CompileAuto("plain.example.com")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, r.Kind)
}

func TestWildcardTranslationSharedAcrossKindPaths(t *testing.T) {
	// The explicit-kind path and the auto-detected path must compile the
	// same wildcard pattern identically.
	explicit, err := Compile("wildcard", "*.cdn.example")
	require.NoError(t, err)
	auto, err := CompileAuto("*.cdn.example")
	require.NoError(t, err)

	for _, v := range []string{"a.cdn.example", "cdn.example", "x.y.cdn.example", "a.cdn.exampleX"} {
		assert.Equal(t, explicit.Matches(v), auto.Matches(v), v)
	}
}
