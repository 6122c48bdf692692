package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/spellcheck/pkg/lint"
	"github.com/japaniel/spellcheck/pkg/oracle"
	"github.com/japaniel/spellcheck/pkg/scanner"
	"github.com/japaniel/spellcheck/pkg/wordstore"
)

type fixture struct {
	dir   string
	store *wordstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := wordstore.Load(filepath.Join(dir, "dict", "shared.txt"), filepath.Join(dir, "dict", "project.txt"))
	require.NoError(t, err)
	return &fixture{dir: dir, store: store}
}

func (fx *fixture) file(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(fx.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// find builds a finding from every exact occurrence of raw in path.
func find(t *testing.T, path, raw string, suggestions ...string) lint.Finding {
	t.Helper()
	var occ []scanner.Token
	for i, line := range strings.Split(read(t, path), "\n") {
		off := 0
		for {
			j := strings.Index(line[off:], raw)
			if j < 0 {
				break
			}
			occ = append(occ, scanner.Token{Raw: raw, Word: strings.ToLower(raw), Path: path, Line: i + 1, Column: off + j + 1})
			off += j + len(raw)
		}
	}
	require.NotEmpty(t, occ, "no %q in %s", raw, path)
	return lint.Finding{Token: occ[0], Occurrences: occ, Suggestions: suggestions}
}

type memRecorder struct{ outcomes []Outcome }

func (r *memRecorder) Record(ctx context.Context, o Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

func TestApplySuggestionRewritesSpan(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "calc.py", "result = totl(values)\n")
	f := find(t, p, "totl", "total", "totals")

	s := New(fx.store, NewScript(Decision{Action: ApplySuggestion, Index: 1}))
	sum, err := s.Run(context.Background(), []lint.Finding{f})
	require.NoError(t, err)

	assert.Equal(t, "result = total(values)\n", read(t, p))
	assert.Equal(t, 1, sum.Fixed)
	assert.Equal(t, 0, sum.Added)
	assert.False(t, sum.Unresolved())
	assert.Equal(t, "total", sum.Outcomes[0].Replacement)
	assert.Equal(t, Applied, sum.Outcomes[0].State)

	assert.Zero(t, fx.store.Len(wordstore.TierShared))
	assert.Zero(t, fx.store.Len(wordstore.TierProject))
	assert.NoFileExists(t, fx.store.Path(wordstore.TierProject))
}

func TestApplySuggestionRewritesCallSites(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "calc.py", "def calculat_total(items):\n    return sum(items)\n\nprint(calculat_total([1, 2]))\n")

	o, err := oracle.New(oracle.Options{})
	require.NoError(t, err)
	c := &lint.Collector{Store: fx.store, Oracle: o, Workers: 1}
	findings, err := c.Collect(context.Background(), []lint.File{{Path: p, Kind: scanner.Source}})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Len(t, findings[0].Occurrences, 2)
	assert.Equal(t, 4, findings[0].Occurrences[1].Line)
	require.Equal(t, "calculate", findings[0].Suggestions[0])

	sum, err := New(fx.store, NewScript(Decision{Action: ApplySuggestion, Index: 1})).Run(context.Background(), findings)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Fixed)
	assert.Equal(t, "def calculate_total(items):\n    return sum(items)\n\nprint(calculate_total([1, 2]))\n", read(t, p))
}

func TestAddProjectResolvesLaterFindings(t *testing.T) {
	fx := newFixture(t)
	a := fx.file(t, "a.md", "My pokemn deck\nAnother pokemn here\n")
	b := fx.file(t, "b.md", "The wrold of Pokemn\n")

	findings := []lint.Finding{
		find(t, a, "pokemn", "pokemon"),
		find(t, b, "wrold", "world"),
		find(t, b, "Pokemn", "pokemon"),
	}
	script := NewScript(Decision{Action: AddProject}, Decision{Action: Skip})
	rec := &memRecorder{}
	s := New(fx.store, script)
	s.Recorder = rec

	sum, err := s.Run(context.Background(), findings)
	require.NoError(t, err)

	require.Len(t, script.Prompts, 2)
	assert.Equal(t, "wrold", script.Prompts[1].Finding.Token.Raw)

	assert.Equal(t, "pokemn\n", read(t, fx.store.Path(wordstore.TierProject)))
	assert.True(t, fx.store.Has("pokemn", wordstore.TierProject))

	assert.Equal(t, 2, sum.Added)
	assert.Equal(t, 1, sum.Skipped)
	assert.True(t, sum.Outcomes[2].Auto)
	assert.Equal(t, AddProject, sum.Outcomes[2].Action)

	// files are untouched by dictionary decisions
	assert.Equal(t, "My pokemn deck\nAnother pokemn here\n", read(t, a))
	require.Len(t, rec.outcomes, 3)
}

func TestAbortKeepsAppliedDecisions(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "notes.txt", "wun\ntoo\nthre\nfor\nfiv\n")
	var findings []lint.Finding
	for _, w := range []string{"wun", "too", "thre", "for", "fiv"} {
		findings = append(findings, find(t, p, w, "x"+w))
	}
	script := NewScript(
		Decision{Action: ApplyManual, Text: "one"},
		Decision{Action: AddShared},
		Decision{Action: Abort},
	)

	sum, err := New(fx.store, script).Run(context.Background(), findings)
	require.NoError(t, err)

	assert.True(t, sum.Aborted)
	assert.Equal(t, 1, sum.Fixed)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, 3, sum.Remaining)
	assert.True(t, sum.Unresolved())
	assert.Equal(t, "one\ntoo\nthre\nfor\nfiv\n", read(t, p))
	assert.True(t, fx.store.Has("too", wordstore.TierShared))
	for _, o := range sum.Outcomes[2:] {
		assert.Equal(t, Pending, o.State)
	}
	assert.NoFileExists(t, filepath.Join(fx.dir, "spelling_errors.txt"))
}

func TestWriteBackFailureReprompts(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.txt", "some wrold\n")
	f := find(t, p, "wrold", "world")
	// the file changed after scanning
	require.NoError(t, os.WriteFile(p, []byte("some other text\n"), 0o644))

	script := NewScript(Decision{Action: ApplySuggestion, Index: 1}, Decision{Action: Skip})
	sum, err := New(fx.store, script).Run(context.Background(), []lint.Finding{f})
	require.NoError(t, err)

	require.Len(t, script.Prompts, 2)
	assert.Nil(t, script.Prompts[0].Problem)
	var wb *WriteBackError
	require.ErrorAs(t, script.Prompts[1].Problem, &wb)
	assert.ErrorIs(t, wb, ErrSpanMismatch)
	assert.Equal(t, p, wb.Path)

	assert.Equal(t, "some other text\n", read(t, p))
	assert.Equal(t, 1, sum.Skipped)
}

func TestInvalidDecisionsReprompt(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.txt", "a wrold\n")
	f := find(t, p, "wrold", "world")

	script := NewScript(
		Decision{Action: ApplySuggestion, Index: 2},
		Decision{Action: ApplySuggestion, Index: 0},
		Decision{Action: ApplyManual, Text: "   "},
		Decision{Action: Action(42)},
		Decision{Action: ApplySuggestion, Index: 1},
	)
	sum, err := New(fx.store, script).Run(context.Background(), []lint.Finding{f})
	require.NoError(t, err)
	require.Len(t, script.Prompts, 5)
	for _, pr := range script.Prompts[1:] {
		assert.Error(t, pr.Problem)
	}
	assert.Equal(t, "a world\n", read(t, p))
	assert.Equal(t, 1, sum.Fixed)
}

func TestDictionaryFailureReprompts(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.txt", "wrold\n")

	script := NewScript(Decision{Action: AddProject}, Decision{Action: Skip})
	sum, err := New(failingDict{}, script).Run(context.Background(), []lint.Finding{find(t, p, "wrold")})
	require.NoError(t, err)
	require.Len(t, script.Prompts, 2)
	assert.ErrorContains(t, script.Prompts[1].Problem, "disk full")
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 0, sum.Added)
}

func TestPrompterErrorStopsRun(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.txt", "wrold speling\n")
	sum, err := New(fx.store, NewScript(Decision{Action: Skip})).Run(context.Background(),
		[]lint.Finding{find(t, p, "wrold"), find(t, p, "speling")})
	require.ErrorIs(t, err, ErrScriptExhausted)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Remaining)
}

type failingDict struct{}

func (failingDict) AddWord(string, wordstore.Tier) error { return errors.New("disk full") }

func TestCaseMatchedSuggestionsAndColumnShifts(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.md", "Totl wrold and totl, TOTL wrold\n")
	findings := []lint.Finding{
		{
			Token:       scanner.Token{Raw: "Totl", Path: p, Line: 1, Column: 1},
			Occurrences: []scanner.Token{{Raw: "Totl", Path: p, Line: 1, Column: 1}, {Raw: "totl", Path: p, Line: 1, Column: 16}, {Raw: "TOTL", Path: p, Line: 1, Column: 22}},
			Suggestions: []string{"total"},
		},
		{
			Token:       scanner.Token{Raw: "wrold", Path: p, Line: 1, Column: 6},
			Occurrences: []scanner.Token{{Raw: "wrold", Path: p, Line: 1, Column: 6}, {Raw: "wrold", Path: p, Line: 1, Column: 27}},
			Suggestions: []string{"world"},
		},
	}
	script := NewScript(Decision{Action: ApplySuggestion, Index: 1}, Decision{Action: ApplyManual, Text: "globe"})
	sum, err := New(fx.store, script).Run(context.Background(), findings)
	require.NoError(t, err)

	assert.Equal(t, "Total globe and total, TOTAL globe\n", read(t, p))
	assert.Equal(t, 2, sum.Fixed)
	assert.Equal(t, "Total", sum.Outcomes[0].Replacement)
}

func TestSkipPrevious(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.md", "wrold and speling\n")
	findings := []lint.Finding{find(t, p, "wrold"), find(t, p, "speling")}

	script := NewScript(Decision{Action: Skip})
	s := New(fx.store, script)
	s.Options.SkipPrevious = func(path, word string) bool { return path == p && word == "wrold" }

	sum, err := s.Run(context.Background(), findings)
	require.NoError(t, err)
	require.Len(t, script.Prompts, 1)
	assert.Equal(t, "speling", script.Prompts[0].Finding.Token.Raw)
	assert.Equal(t, 2, sum.Skipped)
	assert.True(t, sum.Outcomes[0].Auto)
}

func TestBatchSkipsEverything(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.md", "wrold speling\n")
	sum, err := New(fx.store, Batch{}).Run(context.Background(), []lint.Finding{find(t, p, "wrold"), find(t, p, "speling")})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, "wrold speling\n", read(t, p))
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	fx := newFixture(t)
	p := fx.file(t, "a.md", "wrold\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := New(fx.store, Batch{}).Run(ctx, []lint.Finding{find(t, p, "wrold")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Remaining)
}

func TestMatchCase(t *testing.T) {
	cases := []struct{ orig, sugg, want string }{
		{"totl", "total", "total"},
		{"Totl", "total", "Total"},
		{"TOTL", "total", "TOTAL"},
		{"tOtl", "total", "total"},
		{"A", "an", "An"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MatchCase(c.orig, c.sugg), "MatchCase(%q, %q)", c.orig, c.sugg)
	}
}

func TestParseAction(t *testing.T) {
	for a := ApplySuggestion; a <= Abort; a++ {
		got, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseAction("explode")
	assert.Error(t, err)
}
