// Package oracle decides whether a word is English and proposes corrections.
package oracle

import (
	"bufio"
	"bytes"
	"compress/gzip"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/log"
	"github.com/sajari/fuzzy"
)

// DefaultMaxSuggestions is the number of suggestions returned per word.
const DefaultMaxSuggestions = 5

// maxDistance is the largest edit distance a suggestion may have.
const maxDistance = 2

// words_en.txt.gz holds one "word count" pair per line. Words with a zero
// count are known but never suggested.
//
//go:embed words_en.txt.gz
var embeddedWords []byte

var (
	englishOnce sync.Once
	english     *fuzzy.Model
	englishErr  error
)

var (
	ErrEmptyWord   = errors.New("empty word")
	ErrInvalidWord = errors.New("word has no letters or contains invalid characters")
)

// Error is returned by Check when a word cannot be looked up at all.
type Error struct {
	Word string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle: check %q: %v", e.Word, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the outcome of a lookup. An unknown word is not an error.
type Result struct {
	Known          bool
	Suggestions    []string
	MaxSuggestions int
}

// Options configures New.
type Options struct {
	// WordLists are extra files, one word per line, added to the
	// vocabulary on top of the embedded English list.
	WordLists      []string
	MaxSuggestions int
	Logger         *log.Logger
}

// Oracle combines the shared English model with a per-instance model for
// learned words. The English model is built once per process and never
// written after that.
type Oracle struct {
	english *fuzzy.Model
	local   *fuzzy.Model
	max     int
	logger  *log.Logger
}

// New builds an Oracle from the embedded English list plus opts.WordLists.
func New(opts Options) (*Oracle, error) {
	en, err := englishModel()
	if err != nil {
		return nil, fmt.Errorf("load english word list: %w", err)
	}
	o := &Oracle{
		english: en,
		local:   newModel(),
		max:     opts.MaxSuggestions,
		logger:  opts.Logger,
	}
	if o.max <= 0 {
		o.max = DefaultMaxSuggestions
	}
	for _, p := range opts.WordLists {
		n, err := o.LoadWordList(p)
		if err != nil {
			return nil, err
		}
		if o.logger != nil {
			o.logger.Debug("loaded word list", "path", p, "words", n)
		}
	}
	return o, nil
}

func newModel() *fuzzy.Model {
	m := fuzzy.NewModel()
	m.SetUseAutocomplete(false)
	m.SetDepth(maxDistance)
	// every counted word is a word; the count only orders suggestions
	m.SetThreshold(0)
	return m
}

func englishModel() (*fuzzy.Model, error) {
	englishOnce.Do(func() {
		english, englishErr = readModel(bytes.NewReader(embeddedWords))
	})
	return english, englishErr
}

// readModel loads a gzipped "word count" list. Counts are shifted by one
// so that words missing from the frequency corpus stay known.
func readModel(r io.Reader) (*fuzzy.Model, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	m := newModel()
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, count, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return nil, fmt.Errorf("malformed count in %q: %w", line, err)
		}
		m.SetCount(word, n+1, n > 0)
	}
	return m, sc.Err()
}

// LoadWordList adds every word of a plain-text list, ignoring blank lines and
// '#' comments. It returns the number of new words.
func (o *Oracle) LoadWordList(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open word list %s: %w", path, err)
	}
	defer f.Close()

	before := o.Len()
	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read word list %s: %w", path, err)
	}
	o.Learn(words...)
	return o.Len() - before, nil
}

// Learn makes words known and suggestable. Learned words rank below every
// English word of the same distance that the frequency corpus has seen.
func (o *Oracle) Learn(words ...string) {
	for _, w := range words {
		w = canonical(w)
		if w == "" || o.has(w) {
			continue
		}
		o.local.SetCount(w, 1, true)
	}
}

// Len reports the vocabulary size.
func (o *Oracle) Len() int {
	o.local.RLock()
	defer o.local.RUnlock()
	return len(o.english.Data) + len(o.local.Data)
}

// Known reports whether word is in the vocabulary, directly or as a
// possessive of a known word.
func (o *Oracle) Known(word string) bool {
	w := canonical(word)
	if o.has(w) {
		return true
	}
	if base, ok := strings.CutSuffix(w, "'s"); ok && base != "" {
		return o.has(base)
	}
	if base, ok := strings.CutSuffix(w, "s'"); ok && base != "" {
		return o.has(base + "s")
	}
	return false
}

func (o *Oracle) has(w string) bool {
	if _, ok := o.english.Data[w]; ok {
		return true
	}
	o.local.RLock()
	defer o.local.RUnlock()
	_, ok := o.local.Data[w]
	return ok
}

// Check looks word up and, when it is unknown, ranks up to MaxSuggestions
// known words by edit distance, then corpus frequency, then alphabetically.
func (o *Oracle) Check(word string) (Result, error) {
	if err := validate(word); err != nil {
		return Result{}, &Error{Word: word, Err: err}
	}
	res := Result{MaxSuggestions: o.max}
	if o.Known(word) {
		res.Known = true
		return res, nil
	}
	res.Suggestions = o.suggest(canonical(word))
	return res, nil
}

type candidate struct {
	word  string
	dist  int
	count int
}

func (o *Oracle) suggest(w string) []string {
	found := make(map[string]candidate)
	for _, m := range []*fuzzy.Model{o.english, o.local} {
		for term, p := range m.Potentials(w, true) {
			if term == w {
				continue
			}
			d := distance(w, term)
			if d > maxDistance {
				continue
			}
			if c, ok := found[term]; ok && c.count >= p.Score {
				continue
			}
			found[term] = candidate{word: term, dist: d, count: p.Score}
		}
	}

	cands := make([]candidate, 0, len(found))
	for _, c := range found {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.count != b.count {
			return a.count > b.count
		}
		return a.word < b.word
	})
	if len(cands) > o.max {
		cands = cands[:o.max]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.word
	}
	return out
}

// distance is the Levenshtein distance, except that a single swap of two
// adjacent letters counts as one edit.
func distance(a, b string) int {
	if transposed(a, b) {
		return 1
	}
	return levenshtein.ComputeDistance(a, b)
}

func transposed(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) {
		return false
	}
	i := 0
	for i < len(ra) && ra[i] == rb[i] {
		i++
	}
	if i+1 >= len(ra) || ra[i] != rb[i+1] || ra[i+1] != rb[i] {
		return false
	}
	return string(ra[i+2:]) == string(rb[i+2:])
}

func canonical(w string) string {
	w = strings.TrimSpace(w)
	w = strings.ReplaceAll(w, "’", "'")
	return strings.ToLower(w)
}

func validate(w string) error {
	if strings.TrimSpace(w) == "" {
		return ErrEmptyWord
	}
	if !utf8.ValidString(w) {
		return ErrInvalidWord
	}
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsLetter(r) || unicode.IsMark(r):
			letters++
		case r == '\'' || r == '’' || r == '-' || unicode.IsDigit(r):
		default:
			return ErrInvalidWord
		}
	}
	if letters == 0 {
		return ErrInvalidWord
	}
	return nil
}
