package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var splitCases = []struct {
	in   string
	want []string
}{
	{"calculat_total", []string{"calculat", "total"}},
	{"PokemonCard", []string{"pokemon", "card"}},
	{"HTTPServer", []string{"http", "server"}},
	{"parseURL", []string{"parse", "url"}},
	{"utf8Decoder", []string{"utf", "8", "decoder"}},
	{"v2Client", []string{"v", "2", "client"}},
	{"kebab-case-name", []string{"kebab", "case", "name"}},
	{"__init__", []string{"init"}},
	{"URLs", []string{"urls"}},
	{"getIDsFor", []string{"get", "ids", "for"}},
	{"ABC", []string{"abc"}},
	{"already", []string{"already"}},
	{"MAX_RETRY_COUNT", []string{"max", "retry", "count"}},
	{"don't", []string{"don't"}},
}

func TestSplit(t *testing.T) {
	for _, tt := range splitCases {
		assert.Equal(t, tt.want, Split(tt.in), "Split(%q)", tt.in)
	}
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("___"))
}

func TestSplitIdempotent(t *testing.T) {
	inputs := []string{"", "x", "alreadysplit"}
	for _, tt := range splitCases {
		inputs = append(inputs, tt.in)
	}
	for _, in := range inputs {
		first := Split(in)
		again := Split(strings.Join(first, "_"))
		assert.Equal(t, first, again, "Split not idempotent for %q", in)
	}
}

func TestSplitSingleLowercaseWordUnchanged(t *testing.T) {
	for _, w := range []string{"total", "card", "pokemon"} {
		assert.Equal(t, []string{w}, Split(w))
	}
}

func TestSplitSpansOffsets(t *testing.T) {
	s := "parseHTTPResponse_v2"
	var got []string
	for _, sp := range splitSpans(s) {
		got = append(got, s[sp.start:sp.end])
	}
	assert.Equal(t, []string{"parse", "HTTP", "Response", "v", "2"}, got)
}
