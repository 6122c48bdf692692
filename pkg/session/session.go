// Package session resolves findings one at a time with an operator, applying
// fixes to files and new words to the dictionaries.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/japaniel/spellcheck/pkg/lint"
	"github.com/japaniel/spellcheck/pkg/metrics"
	"github.com/japaniel/spellcheck/pkg/wordstore"
)

// Action is what the operator chose for a finding.
type Action int

const (
	ApplySuggestion Action = iota + 1
	ApplyManual
	AddShared
	AddProject
	Skip
	Abort
)

var actionNames = map[Action]string{
	ApplySuggestion: "apply-suggestion",
	ApplyManual:     "apply-manual",
	AddShared:       "add-shared",
	AddProject:      "add-project",
	Skip:            "skip",
	Abort:           "abort",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Decision is one operator answer. Index is the 1-based suggestion for
// ApplySuggestion; Text is the replacement for ApplyManual.
type Decision struct {
	Action Action
	Index  int
	Text   string
}

// State is the lifecycle position of a finding within a session.
type State int

const (
	Pending State = iota
	AwaitingDecision
	Applied
	Skipped
	Aborted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case AwaitingDecision:
		return "awaiting-decision"
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Prompt is what a Prompter is shown for one finding.
type Prompt struct {
	Finding  lint.Finding
	Position int // 1-based
	Total    int
	Line     string // current text of the finding's line
	// Problem is set when the previous answer for this finding could not be
	// carried out; the same finding is being asked again.
	Problem error
}

// Prompter obtains decisions from an operator.
type Prompter interface {
	Decide(ctx context.Context, p Prompt) (Decision, error)
}

// Outcome is the resolution of one finding.
type Outcome struct {
	Finding     lint.Finding
	State       State
	Action      Action
	Replacement string
	// Auto is set when the finding was resolved without asking: its word was
	// added earlier in the session, or it was skipped in a previous session.
	Auto bool
}

// Recorder receives every resolved outcome.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Dictionary is the word store mutation used by the session.
type Dictionary interface {
	AddWord(word string, tier wordstore.Tier) error
}

// Options tune a session.
type Options struct {
	// SkipPrevious reports findings that an earlier session skipped; they are
	// skipped again without prompting. nil prompts for everything.
	SkipPrevious func(path, word string) bool
}

// Summary totals a finished session.
type Summary struct {
	Fixed     int
	Added     int
	Skipped   int
	Remaining int
	Aborted   bool
	Outcomes  []Outcome
}

// Unresolved reports whether any finding was skipped or left pending.
func (s Summary) Unresolved() bool { return s.Skipped > 0 || s.Remaining > 0 }

// Session drives findings through Pending, AwaitingDecision and a terminal
// state. It is not safe for concurrent use.
type Session struct {
	Store    Dictionary
	Prompter Prompter
	Recorder Recorder
	Options  Options
	// Logger is used for recorder failures and resolutions. nil means no logging.
	Logger  *log.Logger
	Metrics *metrics.Metrics

	rw *rewriter
}

// New creates a session over store driven by p.
func New(store Dictionary, p Prompter) *Session {
	return &Session{Store: store, Prompter: p}
}

// Run resolves findings in order. It returns early, leaving the rest
// pending, when the operator aborts, ctx is canceled between findings, or the
// prompter fails.
func (s *Session) Run(ctx context.Context, findings []lint.Finding) (Summary, error) {
	if s.rw == nil {
		s.rw = newRewriter()
	}
	outcomes := make([]Outcome, len(findings))
	for i, f := range findings {
		outcomes[i] = Outcome{Finding: f, State: Pending}
	}
	added := make(map[string]Action)

	var runErr error
	aborted := false
	for i := range findings {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		out := &outcomes[i]
		word := out.Finding.Word()

		if action, ok := added[word]; ok {
			out.State, out.Action, out.Auto = Applied, action, true
			s.record(ctx, *out)
			continue
		}
		if s.Options.SkipPrevious != nil && s.Options.SkipPrevious(out.Finding.Path(), word) {
			out.State, out.Action, out.Auto = Skipped, Skip, true
			s.record(ctx, *out)
			continue
		}

		out.State = AwaitingDecision
		err := s.resolve(ctx, i+1, len(findings), out)
		if err != nil {
			out.State = Pending
			runErr = err
			break
		}
		if out.State == Aborted {
			// the finding being asked about stays unresolved
			out.State = Pending
			aborted = true
			break
		}
		if out.Action == AddShared || out.Action == AddProject {
			added[word] = out.Action
		}
		s.record(ctx, *out)
	}

	sum := Summary{Aborted: aborted, Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.State {
		case Applied:
			if o.Action == AddShared || o.Action == AddProject {
				sum.Added++
			} else {
				sum.Fixed++
			}
		case Skipped:
			sum.Skipped++
		default:
			sum.Remaining++
		}
	}
	return sum, runErr
}

// resolve prompts until a decision for out can be carried out.
func (s *Session) resolve(ctx context.Context, pos, total int, out *Outcome) error {
	f := out.Finding
	var problem error
	for {
		d, err := s.Prompter.Decide(ctx, Prompt{
			Finding:  f,
			Position: pos,
			Total:    total,
			Line:     lineText(f.Path(), f.Token.Line),
			Problem:  problem,
		})
		if err != nil {
			return fmt.Errorf("prompt for %q: %w", f.Token.Raw, err)
		}

		problem = s.apply(f, d, out)
		if problem == nil {
			return nil
		}
		if s.Logger != nil {
			s.Logger.Warn("decision not applied", "word", f.Token.Raw, "path", f.Path(), "action", d.Action, "err", problem)
		}
	}
}

// apply carries out d, updating out on success.
func (s *Session) apply(f lint.Finding, d Decision, out *Outcome) error {
	switch d.Action {
	case ApplySuggestion:
		if d.Index < 1 || d.Index > len(f.Suggestions) {
			return fmt.Errorf("suggestion %d is out of range 1-%d", d.Index, len(f.Suggestions))
		}
		suggestion := f.Suggestions[d.Index-1]
		if err := s.rw.replace(f.Path(), f.Occurrences, func(raw string) string { return MatchCase(raw, suggestion) }); err != nil {
			return err
		}
		out.Replacement = MatchCase(f.Token.Raw, suggestion)
	case ApplyManual:
		text := strings.TrimSpace(d.Text)
		if text == "" {
			return errors.New("no correction entered")
		}
		if err := s.rw.replace(f.Path(), f.Occurrences, func(string) string { return text }); err != nil {
			return err
		}
		out.Replacement = text
	case AddShared, AddProject:
		tier := wordstore.TierShared
		if d.Action == AddProject {
			tier = wordstore.TierProject
		}
		if err := s.Store.AddWord(f.Word(), tier); err != nil {
			return err
		}
	case Skip:
		out.State, out.Action = Skipped, Skip
		return nil
	case Abort:
		out.State, out.Action = Aborted, Abort
		return nil
	default:
		return fmt.Errorf("unknown action %v", d.Action)
	}
	out.State, out.Action = Applied, d.Action
	return nil
}

func (s *Session) record(ctx context.Context, o Outcome) {
	s.Metrics.Decision(o.Action.String())
	if s.Logger != nil {
		s.Logger.Debug("resolved", "word", o.Finding.Token.Raw, "path", o.Finding.Path(), "action", o.Action, "auto", o.Auto)
	}
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.Record(ctx, o); err != nil && s.Logger != nil {
		s.Logger.Warn("failed to record decision", "word", o.Finding.Token.Raw, "err", err)
	}
}
