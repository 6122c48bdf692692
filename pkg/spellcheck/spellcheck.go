// Package spellcheck wires the word store, oracle, collector, report writer
// and fix session into the two run modes of the linter.
package spellcheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/japaniel/spellcheck/pkg/config"
	"github.com/japaniel/spellcheck/pkg/journal"
	"github.com/japaniel/spellcheck/pkg/lint"
	"github.com/japaniel/spellcheck/pkg/metrics"
	"github.com/japaniel/spellcheck/pkg/oracle"
	"github.com/japaniel/spellcheck/pkg/report"
	"github.com/japaniel/spellcheck/pkg/session"
	"github.com/japaniel/spellcheck/pkg/wordstore"
)

// Version returns the current version of the linter.
func Version() string { return "0.1.0" }

// Process exit codes.
const (
	ExitClean      = 0
	ExitFindings   = 1
	ExitDictionary = 2
	ExitIO         = 3
	ExitAborted    = 4
)

// Mode selects what a run does with its findings.
type Mode int

const (
	// ModeReport writes findings to the report file.
	ModeReport Mode = iota
	// ModeInteractive resolves findings one at a time and never writes a report.
	ModeInteractive
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "report"
}

// Result describes a finished run.
type Result struct {
	Mode     Mode
	Findings []lint.Finding
	// Skipped lists files that could not be scanned.
	Skipped []*lint.ScanError
	// ReportPath is set once a report has been written.
	ReportPath string
	// Summary is set in interactive mode.
	Summary *session.Summary
	// SessionID identifies the journal session, if one was recorded.
	SessionID string
	Err       error
}

// ExitCode maps the result to the process exit status.
func (r Result) ExitCode() int {
	var loadErr *wordstore.DictionaryLoadError
	switch {
	case errors.As(r.Err, &loadErr):
		return ExitDictionary
	case errors.Is(r.Err, context.Canceled):
		return ExitAborted
	case r.Err != nil:
		return ExitIO
	}
	if r.Mode == ModeInteractive {
		switch {
		case r.Summary == nil:
			return ExitClean
		case r.Summary.Aborted:
			return ExitAborted
		case r.Summary.Unresolved():
			return ExitFindings
		}
		return ExitClean
	}
	if len(r.Findings) > 0 {
		return ExitFindings
	}
	return ExitClean
}

// Linter holds the loaded dictionaries and settings shared by runs.
type Linter struct {
	Config config.Config
	Store  *wordstore.Store
	Oracle *oracle.Oracle
	// Logger is used for progress and degraded behaviour. nil means no logging.
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// New loads the word store and the oracle. Any failure is returned as a
// *wordstore.DictionaryLoadError.
func New(cfg config.Config, logger *log.Logger) (*Linter, error) {
	store, err := wordstore.Load(cfg.Dictionaries.Shared, cfg.Dictionaries.Project)
	if err != nil {
		return nil, err
	}
	orc, err := oracle.New(oracle.Options{
		WordLists:      cfg.WordLists,
		MaxSuggestions: cfg.Suggestions,
		Logger:         logger,
	})
	if err != nil {
		return nil, &wordstore.DictionaryLoadError{Path: "wordlists", Err: err}
	}
	// dictionary words are valid suggestions too
	for _, e := range store.Entries() {
		orc.Learn(e.Word)
	}
	if logger != nil {
		logger.Debug("dictionaries loaded",
			"shared", store.Len(wordstore.TierShared),
			"project", store.Len(wordstore.TierProject),
			"vocabulary", orc.Len())
	}
	return &Linter{
		Config:  cfg,
		Store:   store,
		Oracle:  orc,
		Logger:  logger,
		Metrics: metrics.New(),
	}, nil
}

func (l *Linter) collector() *lint.Collector {
	return &lint.Collector{
		Store:   l.Store,
		Oracle:  l.Oracle,
		Workers: l.Config.Workers,
		Logger:  l.Logger,
		Metrics: l.Metrics,
	}
}

func (l *Linter) collect(ctx context.Context, files []lint.File, res *Result) error {
	c := l.collector()
	findings, err := c.Collect(ctx, files)
	res.Findings = findings
	res.Skipped = c.Skipped
	if err != nil {
		return fmt.Errorf("collect findings: %w", err)
	}
	return nil
}

// Report checks files and writes every finding to the configured report
// file. The report is written even when some files were skipped, and when
// ctx is canceled it holds the findings collected up to that point; the
// cancellation is still returned.
func (l *Linter) Report(ctx context.Context, files []lint.File) (Result, error) {
	res := Result{Mode: ModeReport}
	defer l.flushMetrics()

	collectErr := l.collect(ctx, files, &res)
	if collectErr != nil && ctx.Err() == nil {
		res.Err = collectErr
		return res, collectErr
	}
	if err := report.Write(res.Findings, l.Config.Report); err != nil {
		res.Err = err
		return res, err
	}
	res.ReportPath = l.Config.Report
	if collectErr != nil {
		l.warn("interrupted, report is partial", "path", res.ReportPath, "findings", len(res.Findings))
		res.Err = collectErr
		return res, collectErr
	}
	if l.Logger != nil {
		l.Logger.Info("report written", "path", res.ReportPath, "findings", len(res.Findings), "files", len(files), "skipped", len(res.Skipped))
	}
	return res, nil
}

// FixOptions tune an interactive run.
type FixOptions struct {
	// Resume skips, without prompting, findings an earlier session skipped.
	Resume bool
	// Root is stored with the journal session; empty means the working directory.
	Root string
}

// Fix checks files and resolves each finding through p. Decisions are
// journaled when a journal path is configured; a journal that cannot be
// opened is logged and the session runs without it.
func (l *Linter) Fix(ctx context.Context, files []lint.File, p session.Prompter, opts FixOptions) (Result, error) {
	res := Result{Mode: ModeInteractive}
	defer l.flushMetrics()

	if err := l.collect(ctx, files, &res); err != nil {
		res.Err = err
		return res, err
	}

	sess := session.New(l.Store, p)
	sess.Logger = l.Logger
	sess.Metrics = l.Metrics

	db, sessionID := l.openJournal(opts.Root)
	if db != nil {
		defer db.Close()
		sess.Recorder = &journal.Recorder{DB: db, SessionID: sessionID}
		res.SessionID = sessionID
		if opts.Resume {
			skips, err := journal.PreviouslySkipped(db)
			if err != nil {
				l.warn("cannot read previous decisions", "err", err)
			} else {
				sess.Options.SkipPrevious = skips.Contains
			}
		}
	} else if opts.Resume {
		l.warn("resume requested without a journal, prompting for every finding")
	}

	sum, err := sess.Run(ctx, res.Findings)
	res.Summary = &sum
	if db != nil {
		status := journal.StatusFinished
		if sum.Aborted || err != nil {
			status = journal.StatusAborted
		}
		if ferr := journal.FinishSession(db, sessionID, status); ferr != nil {
			l.warn("cannot close journal session", "session", sessionID, "err", ferr)
		}
	}
	if err != nil {
		res.Err = err
		return res, err
	}
	if l.Logger != nil {
		l.Logger.Info("session finished",
			"fixed", sum.Fixed, "added", sum.Added, "skipped", sum.Skipped,
			"remaining", sum.Remaining, "aborted", sum.Aborted)
	}
	return res, nil
}

func (l *Linter) openJournal(root string) (*sql.DB, string) {
	if l.Config.Journal == "" {
		return nil, ""
	}
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			root = wd
		}
	}
	db, err := journal.Open(l.Config.Journal)
	if err != nil {
		l.warn("journal unavailable", "path", l.Config.Journal, "err", err)
		return nil, ""
	}
	id, err := journal.CreateSession(db, root)
	if err != nil {
		db.Close()
		l.warn("journal unavailable", "path", l.Config.Journal, "err", err)
		return nil, ""
	}
	return db, id
}

func (l *Linter) flushMetrics() {
	if l.Config.MetricsFile == "" {
		return
	}
	if err := l.Metrics.WriteTextfile(l.Config.MetricsFile); err != nil {
		l.warn("cannot write metrics", "path", l.Config.MetricsFile, "err", err)
	}
}

func (l *Linter) warn(msg string, keyvals ...any) {
	if l.Logger != nil {
		l.Logger.Warn(msg, keyvals...)
	}
}
