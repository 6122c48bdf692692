package wordstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Tier identifies one of the two dictionary partitions.
type Tier string

const (
	// TierShared holds reusable vocabulary (programming terms, keywords, stdlib names).
	TierShared Tier = "shared"
	// TierProject holds vocabulary specific to the project being checked.
	TierProject Tier = "project"
)

// ParseTier converts a user supplied tier name. "generic" is accepted as an alias for shared.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared", "generic", "g":
		return TierShared, nil
	case "project", "p":
		return TierProject, nil
	}
	return "", fmt.Errorf("unknown dictionary tier %q", s)
}

// WordEntry is a normalized word and the tier it belongs to.
type WordEntry struct {
	Word string
	Tier Tier
}

// DictionaryLoadError reports a dictionary file that exists but cannot be used.
type DictionaryLoadError struct {
	Path string
	Line int // 0 when the failure is not tied to a line
	Err  error
}

func (e *DictionaryLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load dictionary %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("load dictionary %s: %v", e.Path, e.Err)
}

func (e *DictionaryLoadError) Unwrap() error { return e.Err }

// ErrInvalidEncoding is wrapped by DictionaryLoadError when a line is not valid UTF-8.
var ErrInvalidEncoding = errors.New("invalid UTF-8")

// Store is the two-tier dictionary. Lookups are safe for concurrent use;
// AddWord serializes writers and persists every insertion before returning.
type Store struct {
	mu    sync.RWMutex
	paths map[Tier]string
	words map[Tier]map[string]struct{}
}

// Load reads the shared and project word lists. Missing files are treated as
// empty; the file is created on the first AddWord for its tier.
func Load(sharedPath, projectPath string) (*Store, error) {
	s := &Store{
		paths: map[Tier]string{TierShared: sharedPath, TierProject: projectPath},
		words: map[Tier]map[string]struct{}{},
	}
	for _, tier := range []Tier{TierShared, TierProject} {
		words, err := readWordList(s.paths[tier])
		if err != nil {
			return nil, err
		}
		s.words[tier] = words
	}
	return s, nil
}

// Exists reports whether the dictionary file for tier is present on disk.
func (s *Store) Exists(tier Tier) bool {
	p := s.paths[tier]
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// Path returns the file backing tier.
func (s *Store) Path(tier Tier) string { return s.paths[tier] }

func readWordList(path string) (map[string]struct{}, error) {
	words := make(map[string]struct{})
	if path == "" {
		return words, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return words, nil
		}
		return nil, &DictionaryLoadError{Path: path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lineNo := 0
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if !utf8.Valid(line) {
				return nil, &DictionaryLoadError{Path: path, Line: lineNo, Err: ErrInvalidEncoding}
			}
			if w := parseLine(string(line)); w != "" {
				words[w] = struct{}{}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DictionaryLoadError{Path: path, Line: lineNo, Err: err}
		}
	}
	return words, nil
}

func parseLine(line string) string {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return Normalize(line)
}

// Normalize returns the canonical form used for every lookup: NFC, lowercase, trimmed.
func Normalize(word string) string {
	// A Caser keeps state between calls, so one is built per call.
	lower := cases.Lower(language.Und)
	return lower.String(norm.NFC.String(strings.TrimSpace(word)))
}

// Contains reports whether word is known in either tier.
func (s *Store) Contains(word string) bool {
	w := Normalize(word)
	if w == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.words[TierShared][w]; ok {
		return true
	}
	_, ok := s.words[TierProject][w]
	return ok
}

// Has reports whether word is present in the given tier.
func (s *Store) Has(word string, tier Tier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[tier][Normalize(word)]
	return ok
}

// AddWord inserts word into tier and appends it to the tier's file. Adding a
// word already present in that tier does nothing, so the file never gains a
// duplicate line.
func (s *Store) AddWord(word string, tier Tier) error {
	w := Normalize(word)
	if w == "" {
		return fmt.Errorf("add word: empty word")
	}
	if strings.ContainsAny(w, "\r\n") {
		return fmt.Errorf("add word %q: word must be a single line", word)
	}
	path, ok := s.paths[tier]
	if !ok {
		return fmt.Errorf("add word %q: unknown tier %q", w, tier)
	}
	if path == "" {
		return fmt.Errorf("add word %q: no dictionary file configured for tier %s", w, tier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.words[tier][w]; exists {
		return nil
	}
	if err := appendLine(path, w); err != nil {
		return fmt.Errorf("add word %q to %s dictionary: %w", w, tier, err)
	}
	s.words[tier][w] = struct{}{}
	return nil
}

// appendLine writes one line and syncs it so an interrupted session never
// loses a confirmed addition.
func appendLine(path, word string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	prefix, err := needsNewline(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	line := word + "\n"
	if prefix {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// needsNewline reports whether the file exists, is non-empty and lacks a trailing newline.
func needsNewline(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return !bytes.Equal(last, []byte{'\n'}), nil
}

// Words returns the sorted words of a tier.
func (s *Store) Words(tier Tier) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.words[tier]))
	for w := range s.words[tier] {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Entries lists every word with its tier, shared first, each tier sorted.
func (s *Store) Entries() []WordEntry {
	var out []WordEntry
	for _, tier := range []Tier{TierShared, TierProject} {
		for _, w := range s.Words(tier) {
			out = append(out, WordEntry{Word: w, Tier: tier})
		}
	}
	return out
}

// Len returns the number of words in a tier.
func (s *Store) Len(tier Tier) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words[tier])
}
