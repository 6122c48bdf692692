package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type span struct{ start, end int }

// Split breaks an identifier into lowercase sub-words. Underscores and
// hyphens separate parts first; inside a part, lower->upper and
// letter<->digit transitions start a new sub-word. An uppercase run of two or
// more letters stays together as an acronym (HTTPServer -> http, server).
func Split(token string) []string {
	spans := splitSpans(token)
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, strings.ToLower(token[sp.start:sp.end]))
	}
	return out
}

func splitSpans(s string) []span {
	var out []span
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '_' || s[i] == '-' {
			if i > start {
				out = append(out, splitCase(s, start, i)...)
			}
			start = i + 1
		}
	}
	return out
}

type runeClass int

const (
	classOther runeClass = iota
	classLower
	classUpper
	classDigit
)

func classify(r rune) runeClass {
	switch {
	case unicode.IsUpper(r):
		return classUpper
	case unicode.IsLower(r):
		return classLower
	case unicode.IsDigit(r):
		return classDigit
	}
	return classOther
}

// splitCase splits s[from:to] on case and digit transitions.
func splitCase(s string, from, to int) []span {
	type rinfo struct {
		off   int
		class runeClass
	}
	var rs []rinfo
	for i := from; i < to; {
		r, size := utf8.DecodeRuneInString(s[i:])
		c := classify(r)
		if c == classOther && len(rs) > 0 && rs[len(rs)-1].class != classDigit {
			// apostrophes, marks and uncased letters continue the current word
			c = rs[len(rs)-1].class
			if c == classUpper {
				c = classLower
			}
		}
		rs = append(rs, rinfo{off: i, class: c})
		i += size
	}

	var out []span
	start := from
	for k := 1; k < len(rs); k++ {
		prev, cur := rs[k-1].class, rs[k].class
		boundary := false
		switch {
		case prev == classLower && cur == classUpper:
			boundary = true
		case (prev == classDigit) != (cur == classDigit):
			boundary = true
		case prev == classUpper && cur == classUpper && k+1 < len(rs) && rs[k+1].class == classLower:
			// ABCDef: the last capital starts the next word, unless the
			// lowercase tail is a lone plural "s" (URLs, IDsFor).
			tailEnd := k + 1
			for tailEnd < len(rs) && rs[tailEnd].class == classLower {
				tailEnd++
			}
			plural := tailEnd-(k+1) == 1 && s[rs[k+1].off] == 's'
			boundary = !plural
		}
		if boundary {
			out = append(out, span{start, rs[k].off})
			start = rs[k].off
		}
	}
	if start < to {
		out = append(out, span{start, to})
	}
	return out
}
