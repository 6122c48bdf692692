package scanner

import (
	"bytes"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinWordLength is the shortest token, in runes, that is ever emitted.
const MinWordLength = 2

// Scan returns the candidate word tokens of a file. The sequence is lazy and
// restartable: every range over it scans text again from the start.
// Identifiers are emitted whole; use Words to get split sub-words.
func Scan(path string, text []byte, kind ContentKind) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lines := newLineIndex(text)
		emit := func(start, end int) bool {
			raw := string(text[start:end])
			if !checkable(raw) {
				return true
			}
			line, col := lines.position(start)
			return yield(Token{Raw: raw, Word: strings.ToLower(raw), Path: path, Line: line, Column: col})
		}
		switch kind {
		case Prose:
			scanProse(text, emit)
		default:
			for _, sp := range sourceSpans(text, SyntaxFor(path)) {
				if !emit(sp.start, sp.end) {
					return
				}
			}
		}
	}
}

// Words is Scan followed by SubWords: one token per checkable sub-word, each
// carrying the exact span of the sub-word in the file.
func Words(path string, text []byte, kind ContentKind) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for tok := range Scan(path, text, kind) {
			for _, sub := range SubWords(tok) {
				if !yield(sub) {
					return
				}
			}
		}
	}
}

// SubWords splits tok like Split but keeps positions, dropping possessive
// suffixes and sub-words that are too short or purely numeric.
func SubWords(tok Token) []Token {
	spans := splitSpans(tok.Raw)
	out := make([]Token, 0, len(spans))
	for _, sp := range spans {
		part := tok.Raw[sp.start:sp.end]
		raw := trimApostrophes(part)
		if !checkable(raw) {
			continue
		}
		out = append(out, Token{
			Raw:    raw,
			Word:   strings.ToLower(raw),
			Path:   tok.Path,
			Line:   tok.Line,
			Column: tok.Column + sp.start + strings.Index(part, raw),
		})
	}
	return out
}

// trimApostrophes drops possessive suffixes and stray quote marks so
// "Python's" is checked as "Python".
func trimApostrophes(s string) string {
	for _, suffix := range []string{"'s", "’s", "'S", "’S"} {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			s = s[:len(s)-len(suffix)]
			break
		}
	}
	return strings.Trim(s, "'’")
}

// checkable applies the emission filters: at least MinWordLength runes, at
// least one letter, and only Latin-script letters.
func checkable(s string) bool {
	if utf8.RuneCountInString(s) < MinWordLength {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.Is(unicode.Latin, r) {
				return false
			}
			letters++
		}
	}
	return letters > 0
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

func isConnector(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

// tokenizeRange emits the word spans inside text[from:to]. Words are split on
// whitespace and punctuation; an apostrophe or hyphen stays inside a word only
// when word characters surround it. Whitespace-separated chunks that look like
// links, e-mail addresses or paths are skipped whole.
func tokenizeRange(text []byte, from, to int, emit func(start, end int) bool) bool {
	i := from
	for i < to {
		r, size := utf8.DecodeRune(text[i:to])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		chunkEnd := i
		for chunkEnd < to {
			cr, csize := utf8.DecodeRune(text[chunkEnd:to])
			if unicode.IsSpace(cr) {
				break
			}
			chunkEnd += csize
		}
		if !looksLikeLink(text[i:chunkEnd]) {
			if !tokenizeChunk(text, i, chunkEnd, emit) {
				return false
			}
		}
		i = chunkEnd
	}
	return true
}

func tokenizeChunk(text []byte, from, to int, emit func(start, end int) bool) bool {
	i := from
	for i < to {
		r, size := utf8.DecodeRune(text[i:to])
		if !isWordRune(r) {
			i += size
			continue
		}
		start := i
		i += size
		for i < to {
			r, size = utf8.DecodeRune(text[i:to])
			if isWordRune(r) {
				i += size
				continue
			}
			if isConnector(r) && i+size < to {
				next, _ := utf8.DecodeRune(text[i+size : to])
				if isWordRune(next) {
					i += size
					continue
				}
			}
			break
		}
		if !emit(start, i) {
			return false
		}
	}
	return true
}

func looksLikeLink(chunk []byte) bool {
	return bytes.Contains(chunk, []byte("://")) ||
		bytes.HasPrefix(chunk, []byte("www.")) ||
		bytes.Contains(chunk, []byte("@")) && bytes.Contains(chunk, []byte(".")) ||
		bytes.Count(chunk, []byte("/")) >= 2
}

// scanProse emits words from every line outside fenced code blocks, with
// inline code spans removed.
func scanProse(text []byte, emit func(start, end int) bool) {
	var fence []byte
	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := bytes.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]
		trimmed := bytes.TrimLeft(line, " \t")

		switch {
		case fence != nil:
			if bytes.HasPrefix(trimmed, fence) {
				fence = nil
			}
		case bytes.HasPrefix(trimmed, []byte("```")):
			fence = []byte("```")
		case bytes.HasPrefix(trimmed, []byte("~~~")):
			fence = []byte("~~~")
		default:
			if !scanProseLine(text, lineStart, lineEnd, emit) {
				return
			}
		}
		if lineEnd == len(text) {
			return
		}
		lineStart = lineEnd + 1
	}
}

// scanProseLine tokenizes text[from:to] skipping inline code spans. A run of
// N backticks opens a span that closes at the next run of exactly N; an
// unmatched run is ordinary punctuation.
func scanProseLine(text []byte, from, to int, emit func(start, end int) bool) bool {
	segStart := from
	i := from
	for i < to {
		if text[i] != '`' {
			i++
			continue
		}
		n := backtickRun(text, i, to)
		closeAt := -1
		for j := i + n; j < to; {
			if text[j] != '`' {
				j++
				continue
			}
			m := backtickRun(text, j, to)
			if m == n {
				closeAt = j
				break
			}
			j += m
		}
		if closeAt < 0 {
			i += n
			continue
		}
		if !tokenizeRange(text, segStart, i, emit) {
			return false
		}
		i = closeAt + n
		segStart = i
	}
	return tokenizeRange(text, segStart, to, emit)
}

func backtickRun(text []byte, i, to int) int {
	n := 0
	for i+n < to && text[i+n] == '`' {
		n++
	}
	return n
}
