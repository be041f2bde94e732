package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFieldsBasic(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseFields("a:b:c", ':'))
}

func TestParseFieldsEmptyLine(t *testing.T) {
	assert.Equal(t, []string{""}, ParseFields("", ':'))
}

func TestParseFieldsSingleField(t *testing.T) {
	assert.Equal(t, []string{"just-one"}, ParseFields("just-one", ':'))
}

func TestParseFieldsEscapedDelimiter(t *testing.T) {
	assert.Equal(t, []string{"a:b", "c"}, ParseFields(`a\:b:c`, ':'))
}

func TestParseFieldsMultipleEscapes(t *testing.T) {
	assert.Equal(t, []string{"a:b:c", "d"}, ParseFields(`a\:b\:c:d`, ':'))
}

func TestParseFieldsEscapedBackslash(t *testing.T) {
	assert.Equal(t, []string{`a\`, "b"}, ParseFields(`a\\:b`, ':'))
}

func TestParseFieldsEmptyMiddleField(t *testing.T) {
	assert.Equal(t, []string{"a", "", "c"}, ParseFields("a::c", ':'))
}

func TestParseFieldsTrailingDelimiter(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, ParseFields("a:b:", ':'))
}

func TestParseFieldsCustomDelimiter(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseFields("a|b|c", '|'))
	assert.Equal(t, []string{"a|b", "c"}, ParseFields(`a\|b|c`, '|'))
}

func TestParseFieldsTrailingBackslashDropped(t *testing.T) {
	// A lone backslash at end of line escapes nothing and is discarded.
	assert.Equal(t, []string{"a", "b"}, ParseFields(`a:b\`, ':'))
}
