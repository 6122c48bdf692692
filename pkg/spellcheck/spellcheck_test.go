package spellcheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/spellcheck/pkg/config"
	"github.com/japaniel/spellcheck/pkg/journal"
	"github.com/japaniel/spellcheck/pkg/lint"
	"github.com/japaniel/spellcheck/pkg/report"
	"github.com/japaniel/spellcheck/pkg/scanner"
	"github.com/japaniel/spellcheck/pkg/session"
	"github.com/japaniel/spellcheck/pkg/wordstore"
)

type fixture struct {
	dir   string
	cfg   config.Config
	notes string
	clean string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Dictionaries.Shared = filepath.Join(dir, "dict", "shared.txt")
	cfg.Dictionaries.Project = filepath.Join(dir, "dict", "project.txt")
	cfg.Report = filepath.Join(dir, "spelling_errors.txt")
	cfg.Journal = filepath.Join(dir, ".spellcheck", "journal.db")
	cfg.Workers = 2

	f := &fixture{
		dir:   dir,
		cfg:   cfg,
		notes: filepath.Join(dir, "notes.md"),
		clean: filepath.Join(dir, "clean.md"),
	}
	require.NoError(t, os.WriteFile(f.notes, []byte("hello wrold\n"), 0o644))
	require.NoError(t, os.WriteFile(f.clean, []byte("the list\n"), 0o644))
	return f
}

func (f *fixture) linter(t *testing.T) *Linter {
	t.Helper()
	l, err := New(f.cfg, nil)
	require.NoError(t, err)
	return l
}

func (f *fixture) files(paths ...string) []lint.File {
	out := make([]lint.File, len(paths))
	for i, p := range paths {
		out[i] = lint.File{Path: p, Kind: scanner.Prose}
	}
	return out
}

func TestReportWritesFindings(t *testing.T) {
	f := newFixture(t)
	l := f.linter(t)

	res, err := l.Report(context.Background(), f.files(f.clean, f.notes))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, ExitFindings, res.ExitCode())
	assert.Equal(t, f.cfg.Report, res.ReportPath)

	data, err := os.ReadFile(f.cfg.Report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), f.notes+`:1:7: "wrold" suggestions=[world`), string(data))
}

func TestReportCleanRun(t *testing.T) {
	f := newFixture(t)
	res, err := f.linter(t).Report(context.Background(), f.files(f.clean))
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
	assert.Equal(t, ExitClean, res.ExitCode())

	data, err := os.ReadFile(f.cfg.Report)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReportSkipsUnreadableFiles(t *testing.T) {
	f := newFixture(t)
	res, err := f.linter(t).Report(context.Background(), f.files(filepath.Join(f.dir, "missing.md"), f.notes))
	require.NoError(t, err)
	assert.Len(t, res.Skipped, 1)
	assert.Len(t, res.Findings, 1)
	assert.FileExists(t, f.cfg.Report)
}

func TestReportWriteFailure(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	f.cfg.Report = filepath.Join(blocker, "report.txt")

	res, err := f.linter(t).Report(context.Background(), f.files(f.notes))
	require.Error(t, err)
	var we *report.WriteError
	assert.ErrorAs(t, err, &we)
	assert.Equal(t, ExitIO, res.ExitCode())
}

func TestReportCanceledWritesPartialReport(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Report, []byte("stale\n"), 0o644))
	l := f.linter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := l.Report(ctx, f.files(f.notes, f.clean))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitAborted, res.ExitCode())
	assert.Equal(t, f.cfg.Report, res.ReportPath)

	data, err := os.ReadFile(f.cfg.Report)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	lines := 0
	for _, fd := range res.Findings {
		lines += len(fd.Occurrences)
	}
	assert.Equal(t, lines, strings.Count(string(data), "\n"))
}

func TestNewDictionaryLoadFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.Dictionaries.Shared), 0o755))
	require.NoError(t, os.WriteFile(f.cfg.Dictionaries.Shared, []byte("good\n\xff\xfe\n"), 0o644))

	_, err := New(f.cfg, nil)
	require.Error(t, err)
	var loadErr *wordstore.DictionaryLoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ExitDictionary, Result{Err: err}.ExitCode())

	f.cfg.Dictionaries.Shared = ""
	f.cfg.WordLists = []string{filepath.Join(f.dir, "no-such-list.txt")}
	_, err = New(f.cfg, nil)
	assert.ErrorAs(t, err, &loadErr)
}

func TestProjectWordsAreKnown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.Dictionaries.Project), 0o755))
	require.NoError(t, os.WriteFile(f.cfg.Dictionaries.Project, []byte("wrold\n"), 0o644))

	res, err := f.linter(t).Report(context.Background(), f.files(f.notes))
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
	assert.Equal(t, ExitClean, res.ExitCode())
}

func TestFixAppliesSuggestionWithoutReport(t *testing.T) {
	f := newFixture(t)
	script := session.NewScript(session.Decision{Action: session.ApplySuggestion, Index: 1})

	res, err := f.linter(t).Fix(context.Background(), f.files(f.notes), script, FixOptions{})
	require.NoError(t, err)
	assert.Equal(t, ExitClean, res.ExitCode())
	assert.Equal(t, 1, res.Summary.Fixed)
	assert.NoFileExists(t, f.cfg.Report)

	data, err := os.ReadFile(f.notes)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(data))
}

func TestFixAddProjectWord(t *testing.T) {
	f := newFixture(t)
	l := f.linter(t)
	script := session.NewScript(session.Decision{Action: session.AddProject})

	res, err := l.Fix(context.Background(), f.files(f.notes), script, FixOptions{})
	require.NoError(t, err)
	assert.Equal(t, ExitClean, res.ExitCode())
	assert.True(t, l.Store.Has("wrold", wordstore.TierProject))

	data, err := os.ReadFile(f.cfg.Dictionaries.Project)
	require.NoError(t, err)
	assert.Equal(t, "wrold\n", string(data))
}

func TestFixResumeSkipsPreviouslySkipped(t *testing.T) {
	f := newFixture(t)
	first, err := f.linter(t).Fix(context.Background(), f.files(f.notes), session.Batch{}, FixOptions{})
	require.NoError(t, err)
	assert.Equal(t, ExitFindings, first.ExitCode())
	require.NotEmpty(t, first.SessionID)

	script := session.NewScript()
	second, err := f.linter(t).Fix(context.Background(), f.files(f.notes), script, FixOptions{Resume: true})
	require.NoError(t, err)
	assert.Empty(t, script.Prompts, "skipped findings are not asked again")
	require.Len(t, second.Summary.Outcomes, 1)
	assert.True(t, second.Summary.Outcomes[0].Auto)
	assert.Equal(t, ExitFindings, second.ExitCode())

	db, err := journal.Open(f.cfg.Journal)
	require.NoError(t, err)
	defer db.Close()
	s, err := journal.GetSession(db, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusFinished, s.Status)
	ds, err := journal.Decisions(db, second.SessionID)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "skip", ds[0].Action)
	assert.True(t, ds[0].Auto)
}

func TestFixAbort(t *testing.T) {
	f := newFixture(t)
	script := session.NewScript(session.Decision{Action: session.Abort})

	res, err := f.linter(t).Fix(context.Background(), f.files(f.notes), script, FixOptions{})
	require.NoError(t, err)
	assert.True(t, res.Summary.Aborted)
	assert.Equal(t, ExitAborted, res.ExitCode())

	data, err := os.ReadFile(f.notes)
	require.NoError(t, err)
	assert.Equal(t, "hello wrold\n", string(data))
}

func TestFixWithoutJournal(t *testing.T) {
	f := newFixture(t)
	f.cfg.Journal = ""
	res, err := f.linter(t).Fix(context.Background(), f.files(f.notes), session.Batch{}, FixOptions{Resume: true})
	require.NoError(t, err)
	assert.Empty(t, res.SessionID)
	assert.Equal(t, 1, res.Summary.Skipped)
}

func TestMetricsFileWritten(t *testing.T) {
	f := newFixture(t)
	f.cfg.MetricsFile = filepath.Join(f.dir, "spellcheck.prom")
	_, err := f.linter(t).Report(context.Background(), f.files(f.clean, f.notes))
	require.NoError(t, err)

	data, err := os.ReadFile(f.cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "spellcheck_files_scanned_total 2")
	assert.Contains(t, string(data), "spellcheck_findings_total 1")
}

func TestExitCode(t *testing.T) {
	finding := []lint.Finding{{}}
	tests := []struct {
		name string
		res  Result
		want int
	}{
		{"clean report", Result{}, ExitClean},
		{"report findings", Result{Findings: finding}, ExitFindings},
		{"dictionary", Result{Err: &wordstore.DictionaryLoadError{Path: "x", Err: errors.New("bad")}}, ExitDictionary},
		{"report write", Result{Findings: finding, Err: &report.WriteError{Path: "x", Err: errors.New("full")}}, ExitIO},
		{"canceled", Result{Mode: ModeInteractive, Err: context.Canceled}, ExitAborted},
		{"interactive resolved", Result{Mode: ModeInteractive, Findings: finding, Summary: &session.Summary{Fixed: 1}}, ExitClean},
		{"interactive skipped", Result{Mode: ModeInteractive, Summary: &session.Summary{Skipped: 1}}, ExitFindings},
		{"interactive aborted", Result{Mode: ModeInteractive, Summary: &session.Summary{Aborted: true, Remaining: 2}}, ExitAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.ExitCode())
		})
	}
}
