package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/spellcheck/pkg/scanner"
)

// ErrSpanMismatch means the file no longer holds the word where it was found.
var ErrSpanMismatch = errors.New("text at the recorded position no longer matches")

// WriteBackError is returned when a fix could not be written to its file. The
// file is left unchanged.
type WriteBackError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *WriteBackError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("write back %s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("write back %s: %v", e.Path, e.Err)
}

func (e *WriteBackError) Unwrap() error { return e.Err }

// shift is a length change applied on a line, keyed by the original column of
// the replaced span.
type shift struct {
	col   int
	delta int
}

type lineKey struct {
	path string
	line int
}

// rewriter applies replacements to files. Positions are always the ones
// recorded at scan time; earlier edits on the same line are accounted for.
type rewriter struct {
	shifts map[lineKey][]shift
}

func newRewriter() *rewriter {
	return &rewriter{shifts: make(map[lineKey][]shift)}
}

func (rw *rewriter) column(path string, line, col int) int {
	for _, s := range rw.shifts[lineKey{path, line}] {
		if s.col < col {
			col += s.delta
		}
	}
	return col
}

type edit struct {
	tok   scanner.Token
	start int
	end   int
	text  string
}

// replace rewrites every occurrence in one file, each with replacement(raw).
// Either all occurrences are replaced or the file is untouched.
func (rw *rewriter) replace(path string, occurrences []scanner.Token, replacement func(raw string) string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return &WriteBackError{Path: path, Err: err}
	}
	starts := lineStarts(text)

	edits := make([]edit, 0, len(occurrences))
	for _, tok := range occurrences {
		if tok.Line < 1 || tok.Line > len(starts) {
			return &WriteBackError{Path: path, Line: tok.Line, Column: tok.Column, Err: ErrSpanMismatch}
		}
		start := starts[tok.Line-1] + rw.column(path, tok.Line, tok.Column) - 1
		end := start + len(tok.Raw)
		if start < 0 || end > len(text) || string(text[start:end]) != tok.Raw {
			return &WriteBackError{Path: path, Line: tok.Line, Column: tok.Column, Err: ErrSpanMismatch}
		}
		edits = append(edits, edit{tok: tok, start: start, end: end, text: replacement(tok.Raw)})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })

	out := text
	for _, e := range edits {
		var buf bytes.Buffer
		buf.Grow(len(out) + len(e.text) - (e.end - e.start))
		buf.Write(out[:e.start])
		buf.WriteString(e.text)
		buf.Write(out[e.end:])
		out = buf.Bytes()
	}

	if err := writeFileAtomic(path, out); err != nil {
		return &WriteBackError{Path: path, Err: err}
	}
	for _, e := range edits {
		if d := len(e.text) - len(e.tok.Raw); d != 0 {
			k := lineKey{path, e.tok.Line}
			rw.shifts[k] = append(rw.shifts[k], shift{col: e.tok.Column, delta: d})
		}
	}
	return nil
}

func lineStarts(text []byte) []int {
	starts := []int{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineText returns the current content of a 1-based line, or "" when the
// file or line is gone.
func lineText(path string, line int) string {
	text, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	starts := lineStarts(text)
	if line < 1 || line > len(starts) {
		return ""
	}
	end := len(text)
	if line < len(starts) {
		end = starts[line] - 1
	}
	return string(bytes.TrimRight(text[starts[line-1]:end], "\r"))
}

// writeFileAtomic replaces path with data through a synced temporary file in
// the same directory, keeping the original permissions.
func writeFileAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// MatchCase adapts a lowercase suggestion to the case pattern of the word it
// replaces: "TOTL" gives "TOTAL", "Totl" gives "Total", anything else is
// returned as suggested.
func MatchCase(original, suggestion string) string {
	upper, letters := 0, 0
	for _, r := range original {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	switch {
	case letters > 1 && upper == letters:
		return strings.ToUpper(suggestion)
	case upper == 1 && startsUpper(original):
		return titleCase(suggestion)
	}
	return suggestion
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
