package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/japaniel/spellcheck/pkg/config"
	"github.com/japaniel/spellcheck/pkg/discover"
	"github.com/japaniel/spellcheck/pkg/session"
	"github.com/japaniel/spellcheck/pkg/spellcheck"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// app holds the flag values and streams of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configFile  string
	report      string
	metricsFile string
	journal     string
	workers     int
	verbose     bool
	fix         bool
	resume      bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "spellcheck [paths...]",
		Short: "Find and fix spelling mistakes in source code and documentation",
		Long: `spellcheck checks the comments, docstrings and identifiers of source
files and the prose of documentation files against an English vocabulary plus
a shared and a project dictionary. Identifiers are the declared names
(functions, parameters, types, assignment targets) and every use of them in
the same file. String literals are data and are not checked.

By default every finding is written to a report file. With --fix each finding
is shown in turn and can be corrected in place, added to a dictionary or
skipped.`,
		Version:       spellcheck.Version(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runLint,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default is ./.spellcheck.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.Flags().BoolVar(&a.fix, "fix", false, "resolve findings interactively instead of writing a report")
	root.Flags().BoolVar(&a.resume, "resume", false, "with --fix, skip findings skipped in earlier sessions")
	root.Flags().StringVar(&a.report, "report", "", "report file (default spelling_errors.txt)")
	root.Flags().StringVar(&a.metricsFile, "metrics-file", "", "write prometheus textfile metrics to this path")
	root.Flags().StringVar(&a.journal, "journal", "", "decision journal database for --fix")
	root.Flags().IntVar(&a.workers, "workers", 0, "number of files checked in parallel")

	root.AddCommand(newDictCmd(a))
	root.AddCommand(newWatchCmd(a))
	return root
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return spellcheck.ExitClean
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(stderr, errorStyle.Render("Error:"), exitErr.Err)
		}
		return exitErr.Code
	}
	// flag and argument errors
	fmt.Fprintln(stderr, errorStyle.Render("Error:"), err)
	return spellcheck.ExitIO
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: "spellcheck"})
	if a.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, path, err := config.Load(config.LoadOptions{ConfigFile: a.configFile})
	if err != nil {
		return nil, nil, err
	}
	if path != "" {
		logger.Debug("using config file", "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("report") {
		cfg.Report = a.report
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = a.metricsFile
	}
	if flags.Changed("journal") {
		cfg.Journal = a.journal
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	return cfg, logger, nil
}

func (a *app) runLint(cmd *cobra.Command, args []string) error {
	cfg, logger, err := a.setup(cmd)
	if err != nil {
		return &ExitError{Code: spellcheck.ExitIO, Err: err}
	}
	linter, err := spellcheck.New(*cfg, logger)
	if err != nil {
		return exitFor(spellcheck.Result{Err: err})
	}
	files, err := discover.Paths(args, cfg.DiscoverOptions())
	if err != nil {
		return &ExitError{Code: spellcheck.ExitIO, Err: err}
	}

	var res spellcheck.Result
	if a.fix || a.resume {
		prompter := session.NewTerminal(a.stdin, a.stdout)
		defer prompter.Close()
		res, _ = linter.Fix(cmd.Context(), files, prompter, spellcheck.FixOptions{Resume: a.resume})
	} else {
		res, _ = linter.Report(cmd.Context(), files)
	}
	a.printSummary(res)
	return exitFor(res)
}

// exitFor converts a run result into the error cobra returns.
func exitFor(res spellcheck.Result) error {
	code := res.ExitCode()
	if code == spellcheck.ExitClean {
		return nil
	}
	return &ExitError{Code: code, Err: res.Err}
}

func (a *app) printSummary(res spellcheck.Result) {
	if res.Err != nil {
		return
	}
	if res.Mode == spellcheck.ModeInteractive {
		s := res.Summary
		if s == nil {
			return
		}
		line := fmt.Sprintf("fixed %d, added %d, skipped %d, remaining %d", s.Fixed, s.Added, s.Skipped, s.Remaining)
		switch {
		case s.Aborted:
			fmt.Fprintln(a.stdout, warnStyle.Render("Aborted:"), line)
		case s.Unresolved():
			fmt.Fprintln(a.stdout, warnStyle.Render("Done:"), line)
		default:
			fmt.Fprintln(a.stdout, successStyle.Render("Done:"), line)
		}
		return
	}

	if len(res.Findings) == 0 {
		fmt.Fprintln(a.stdout, successStyle.Render("No spelling errors found."))
		return
	}
	files := make(map[string]struct{})
	for _, f := range res.Findings {
		files[f.Path()] = struct{}{}
	}
	fmt.Fprintf(a.stdout, "%s %d unknown word(s) in %d file(s) %s\n",
		warnStyle.Render("Found"), len(res.Findings), len(files),
		subtleStyle.Render("(report: "+res.ReportPath+")"))
}
