package scanner

import (
	"bytes"
	"cmp"
	"slices"
	"unicode"
	"unicode/utf8"
)

// sourceLexer walks source text once, collecting comment and docstring words,
// declared identifier names and every other identifier outside comments and
// strings. It is not a parser: declarations are recognised by keyword,
// parameters by the parenthesised list after a function name, and
// assignment targets by a statement that starts with "name [, name]* =" or
// ":=".
type sourceLexer struct {
	text []byte
	syn  *Syntax

	words  []span              // comment, docstring and declaration spans
	decls  map[string]struct{} // declared names
	idents []span              // identifiers outside comments and strings

	declNext bool   // the next identifier is a declared name
	declKw   string // keyword that set declNext
	stmt     statement
	sig      signature
}

// statement tracks identifiers at the start of a statement that may turn out
// to be assignment targets.
type statement struct {
	pending   []span
	wantIdent bool
	valid     bool
}

func (s *statement) reset() {
	s.pending = s.pending[:0]
	s.wantIdent = true
	s.valid = true
}

func (s *statement) invalidate() {
	s.valid = false
	s.pending = s.pending[:0]
}

type sigState int

const (
	sigNone   sigState = iota
	sigName            // function name seen, parameter list not yet open
	sigParams          // inside the parameter list
)

// signature tracks the parameter list of a named function declaration.
// Only the first identifier of each top-level, comma-separated entry is a
// parameter name; the rest are types, defaults and modifiers.
type signature struct {
	state     sigState
	depth     int
	wantParam bool
}

// sourceSpans returns the spans of a source file worth checking, in file
// order: comment and docstring words, declared names, and every later or
// earlier use of a declared name.
func sourceSpans(text []byte, syn *Syntax) []span {
	lx := &sourceLexer{text: text, syn: syn, decls: make(map[string]struct{})}
	lx.stmt.reset()
	lx.run()
	return lx.spans()
}

func (lx *sourceLexer) spans() []span {
	out := slices.Clone(lx.words)
	for _, sp := range lx.idents {
		if _, ok := lx.decls[string(lx.text[sp.start:sp.end])]; ok {
			out = append(out, sp)
		}
	}
	slices.SortFunc(out, func(a, b span) int { return cmp.Compare(a.start, b.start) })
	return slices.CompactFunc(out, func(a, b span) bool { return a.start == b.start })
}

func (lx *sourceLexer) declare(start, end int) {
	lx.words = append(lx.words, span{start, end})
	lx.decls[string(lx.text[start:end])] = struct{}{}
}

func (lx *sourceLexer) prose(from, to int) {
	tokenizeRange(lx.text, from, to, func(start, end int) bool {
		lx.words = append(lx.words, span{start, end})
		return true
	})
}

func (lx *sourceLexer) run() {
	text := lx.text
	i := 0
	for i < len(text) {
		if next, ok := lx.comment(i); ok {
			i = next
			continue
		}
		if next, ok := lx.docString(i); ok {
			i = next
			lx.stmt.invalidate()
			continue
		}
		if next, ok := lx.stringLiteral(i); ok {
			i = next
			lx.declNext = false
			lx.stmt.invalidate()
			continue
		}

		r, size := utf8.DecodeRune(text[i:])
		switch {
		case r == '\n' || r == ';' || r == '{' || r == '}':
			lx.stmt.reset()
			lx.declNext = false
			i += size
		case unicode.IsSpace(r):
			i += size
		case unicode.IsLetter(r) || r == '_':
			end := i + size
			for end < len(text) {
				r2, s2 := utf8.DecodeRune(text[end:])
				if !unicode.IsLetter(r2) && !unicode.IsDigit(r2) && r2 != '_' {
					break
				}
				end += s2
			}
			lx.identifier(i, end)
			i = end
		case unicode.IsDigit(r):
			for i < len(text) {
				r2, s2 := utf8.DecodeRune(text[i:])
				if !isWordRune(r2) && r2 != '.' {
					break
				}
				i += s2
			}
			lx.declNext = false
			lx.stmt.invalidate()
		default:
			i = lx.punct(i)
		}
	}
}

func (lx *sourceLexer) identifier(start, end int) {
	ident := string(lx.text[start:end])
	lx.idents = append(lx.idents, span{start, end})

	switch lx.sig.state {
	case sigParams:
		if lx.sig.depth == 1 && lx.sig.wantParam && !lx.syn.isModifier(ident) {
			lx.declare(start, end)
			lx.sig.wantParam = false
		}
		return
	case sigName:
		if lx.sig.depth > 0 {
			return
		}
		lx.sig.state = sigNone
	}

	if lx.declNext {
		lx.declNext = false
		lx.stmt.invalidate()
		if !lx.syn.isDeclaration(ident) {
			lx.declare(start, end)
			if lx.syn.isFunction(lx.declKw) {
				lx.sig = signature{state: sigName}
			}
			return
		}
	}
	if lx.syn.isDeclaration(ident) {
		lx.declNext = true
		lx.declKw = ident
		lx.stmt.invalidate()
		return
	}
	st := &lx.stmt
	if st.valid && st.wantIdent {
		st.pending = append(st.pending, span{start, end})
		st.wantIdent = false
		return
	}
	st.invalidate()
}

// params advances the parameter list state on the punctuation at text[i].
// It reports whether the byte was consumed.
func (lx *sourceLexer) params(i int) bool {
	c := lx.text[i]
	if c == '>' && i > 0 && (lx.text[i-1] == '=' || lx.text[i-1] == '-') {
		// arrows close nothing
		return lx.sig.state != sigNone
	}
	sig := &lx.sig
	switch sig.state {
	case sigName:
		switch c {
		case '(':
			if sig.depth == 0 {
				*sig = signature{state: sigParams, depth: 1, wantParam: true}
				return true
			}
			sig.depth++
		case '[', '<':
			// type parameters before the parameter list
			sig.depth++
		case ']', '>':
			sig.depth--
		default:
			if sig.depth == 0 {
				sig.state = sigNone
				return false
			}
		}
		return true
	case sigParams:
		switch c {
		case '(', '[', '{', '<':
			sig.depth++
		case ')', ']', '}', '>':
			sig.depth--
			if sig.depth == 0 {
				sig.state = sigNone
			}
		case ',':
			if sig.depth == 1 {
				sig.wantParam = true
			}
		}
		return true
	}
	return false
}

func (lx *sourceLexer) punct(i int) int {
	text := lx.text
	c := text[i]
	st := &lx.stmt

	if lx.params(i) {
		return i + 1
	}

	if lx.declNext {
		switch {
		case c == '*':
			// function* generators keep waiting for the name
			return i + 1
		case c == '(' && lx.declKw == lx.syn.ReceiverKeyword && lx.syn.ReceiverKeyword != "" &&
			i > 0 && (text[i-1] == ' ' || text[i-1] == '\t'):
			// method receiver; "func(" with no space is a literal
			return lx.skipParens(i)
		default:
			lx.declNext = false
		}
	}

	switch {
	case c == ',' && st.valid && !st.wantIdent && len(st.pending) > 0:
		st.wantIdent = true
		return i + 1
	case c == ':' && i+1 < len(text) && text[i+1] == '=':
		lx.assign()
		return i + 2
	case c == '=':
		if i+1 < len(text) && (text[i+1] == '=' || text[i+1] == '>') {
			st.invalidate()
			return i + 2
		}
		lx.assign()
		return i + 1
	}
	st.invalidate()
	return i + 1
}

// assign emits pending statement-leading identifiers when the statement is a
// plain assignment.
func (lx *sourceLexer) assign() {
	st := &lx.stmt
	if st.valid && !st.wantIdent && len(st.pending) > 0 {
		for _, sp := range st.pending {
			lx.declare(sp.start, sp.end)
		}
	}
	st.invalidate()
}

// skipParens skips a balanced parenthesised group starting at text[i] == '('.
func (lx *sourceLexer) skipParens(i int) int {
	depth := 0
	for j := i; j < len(lx.text); j++ {
		switch lx.text[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j + 1
			}
		case '\n':
			lx.declNext = false
			return j
		}
	}
	return len(lx.text)
}

// comment consumes a block or line comment starting at i and emits its words.
func (lx *sourceLexer) comment(i int) (int, bool) {
	text := lx.text
	for _, bc := range lx.syn.BlockComments {
		if !bytes.HasPrefix(text[i:], []byte(bc.Open)) {
			continue
		}
		from := i + len(bc.Open)
		end := bytes.Index(text[from:], []byte(bc.Close))
		if end < 0 {
			lx.prose(from, len(text))
			return len(text), true
		}
		lx.prose(from, from+end)
		return from + end + len(bc.Close), true
	}
	for _, marker := range lx.syn.LineComments {
		if !bytes.HasPrefix(text[i:], []byte(marker)) {
			continue
		}
		from := i + len(marker)
		end := bytes.IndexByte(text[from:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += from
		}
		lx.prose(from, end)
		return end, true
	}
	return i, false
}

// docString consumes a triple-quoted region and checks its contents as prose.
func (lx *sourceLexer) docString(i int) (int, bool) {
	text := lx.text
	for _, delim := range lx.syn.DocStrings {
		if !bytes.HasPrefix(text[i:], []byte(delim)) {
			continue
		}
		from := i + len(delim)
		end := bytes.Index(text[from:], []byte(delim))
		if end < 0 {
			lx.prose(from, len(text))
			return len(text), true
		}
		lx.prose(from, from+end)
		return from + end + len(delim), true
	}
	return i, false
}

// stringLiteral skips a string literal; its contents are data.
func (lx *sourceLexer) stringLiteral(i int) (int, bool) {
	text := lx.text
	for _, rule := range lx.syn.Strings {
		if !bytes.HasPrefix(text[i:], []byte(rule.Delim)) {
			continue
		}
		j := i + len(rule.Delim)
		for j < len(text) {
			switch {
			case rule.Escapes && text[j] == '\\':
				j += 2
				continue
			case text[j] == '\n' && !rule.Multiline:
				return j, true
			case bytes.HasPrefix(text[j:], []byte(rule.Delim)):
				return j + len(rule.Delim), true
			}
			j++
		}
		return len(text), true
	}
	return i, false
}
