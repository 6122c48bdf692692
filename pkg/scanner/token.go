package scanner

import (
	"fmt"
	"strings"
)

// ContentKind selects the extraction rules applied to a file.
type ContentKind int

const (
	// Source files contribute comments, docstrings and declared identifiers.
	Source ContentKind = iota
	// Prose files contribute every word outside fenced blocks and inline code.
	Prose
)

func (k ContentKind) String() string {
	switch k {
	case Source:
		return "source"
	case Prose:
		return "prose"
	}
	return fmt.Sprintf("ContentKind(%d)", int(k))
}

// ParseKind converts "source" or "prose" (also "code" and "text") to a ContentKind.
func ParseKind(s string) (ContentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source", "code":
		return Source, nil
	case "prose", "text":
		return Prose, nil
	}
	return 0, fmt.Errorf("unknown content kind %q", s)
}

// Token is one occurrence of a candidate word.
type Token struct {
	Raw    string // exact source text of the span
	Word   string // lowercased Raw
	Path   string
	Line   int // 1-based
	Column int // 1-based byte offset within the line
}

func (t Token) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", t.Path, t.Line, t.Column, t.Raw)
}

// lineIndex maps byte offsets to 1-based line and column numbers.
type lineIndex struct {
	starts []int
}

func newLineIndex(text []byte) lineIndex {
	starts := []int{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

func (li lineIndex) position(offset int) (line, col int) {
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - li.starts[lo] + 1
}
