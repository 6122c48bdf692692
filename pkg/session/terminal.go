package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorError     = lipgloss.Color("#EF4444")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorHighlight = lipgloss.Color("#3B82F6")

	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle      = lipgloss.NewStyle().Foreground(colorMuted)
	wordStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	lineWordStyle   = lipgloss.NewStyle().Foreground(colorError)
	suggestionStyle = lipgloss.NewStyle().Foreground(colorHighlight)
	problemStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

const helpText = `For each word, choose an action:
  [1-9] apply suggested fix
  [m]   enter manual correction
  [g]   add to shared dictionary (common programming term)
  [p]   add to project dictionary (project-specific term)
  [s]   skip this word
  [q]   quit, keeping fixes made so far`

// Terminal prompts on a line-oriented terminal. End of input quits.
//
// Input is read by a background goroutine so that Decide can return as soon
// as its context is canceled. A line typed after a canceled Decide is kept
// for the next one.
type Terminal struct {
	in       *bufio.Reader
	out      io.Writer
	helpDone bool

	startOnce sync.Once
	stopOnce  sync.Once
	lines     chan lineResult
	stop      chan struct{}
}

type lineResult struct {
	text string
	err  error
}

// NewTerminal reads answers from in and writes prompts to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult),
		stop:  make(chan struct{}),
	}
}

// Close stops the reader goroutine once it finishes its current read.
func (t *Terminal) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })
	return nil
}

func (t *Terminal) Decide(ctx context.Context, p Prompt) (Decision, error) {
	if !t.helpDone {
		fmt.Fprintln(t.out, mutedStyle.Render(helpText))
		t.helpDone = true
	}
	if p.Problem != nil {
		fmt.Fprintln(t.out, "  "+problemStyle.Render(p.Problem.Error()))
	} else {
		t.show(p)
	}

	for {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		fmt.Fprintf(t.out, "\n  Action [1-%d/m/g/p/s/q]: ", max(len(p.Finding.Suggestions), 1))
		choice, err := t.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Decision{Action: Abort}, nil
			}
			return Decision{}, err
		}
		d, ok, err := t.parse(ctx, strings.ToLower(choice))
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return d, nil
		}
		fmt.Fprintln(t.out, "  "+problemStyle.Render("Invalid choice. Please try again."))
	}
}

func (t *Terminal) show(p Prompt) {
	f := p.Finding
	fmt.Fprintf(t.out, "\n%s %s\n",
		headerStyle.Render(fmt.Sprintf("[%d/%d]", p.Position, p.Total)),
		fmt.Sprintf("%s:%d:%d", f.Path(), f.Token.Line, f.Token.Column))
	if p.Line != "" {
		fmt.Fprintf(t.out, "  Line: %s\n", highlight(p.Line, f.Token.Raw))
	}
	if n := len(f.Occurrences); n > 1 {
		fmt.Fprintln(t.out, mutedStyle.Render(fmt.Sprintf("  %d occurrences in this file", n)))
	}
	fmt.Fprintf(t.out, "\n  Misspelled: %s\n", wordStyle.Render(f.Token.Raw))
	if len(f.Suggestions) == 0 {
		fmt.Fprintln(t.out, mutedStyle.Render("  No suggestions available"))
		return
	}
	fmt.Fprintln(t.out, "  Suggestions:")
	for i, s := range f.Suggestions {
		fmt.Fprintf(t.out, "    [%d] %s\n", i+1, suggestionStyle.Render(MatchCase(f.Token.Raw, s)))
	}
}

// parse maps an answer to a decision. Out-of-range numbers are returned as
// decisions so the session reports them.
func (t *Terminal) parse(ctx context.Context, choice string) (Decision, bool, error) {
	switch choice {
	case "q":
		return Decision{Action: Abort}, true, nil
	case "s", "n":
		return Decision{Action: Skip}, true, nil
	case "g":
		return Decision{Action: AddShared}, true, nil
	case "p":
		return Decision{Action: AddProject}, true, nil
	case "m":
		fmt.Fprint(t.out, "  Enter correction: ")
		text, err := t.readLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Decision{}, false, ctx.Err()
			}
			return Decision{Action: Abort}, true, nil
		}
		return Decision{Action: ApplyManual, Text: text}, true, nil
	}
	if n, err := strconv.Atoi(choice); err == nil {
		return Decision{Action: ApplySuggestion, Index: n}, true, nil
	}
	return Decision{}, false, nil
}

// readLine waits for the next input line or for ctx to be done. The reader
// goroutine is started on first use.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.startOnce.Do(func() { go t.readLines() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return res.text, res.err
	}
}

func (t *Terminal) readLines() {
	defer close(t.lines)
	for {
		line, err := t.in.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			select {
			case t.lines <- lineResult{err: err}:
			case <-t.stop:
			}
			return
		}
		select {
		case t.lines <- lineResult{text: strings.TrimSpace(line)}:
		case <-t.stop:
			return
		}
		if err != nil {
			// unterminated last line
			return
		}
	}
}

func highlight(line, word string) string {
	i := strings.Index(line, word)
	if i < 0 {
		return line
	}
	return line[:i] + lineWordStyle.Render(word) + line[i+len(word):]
}
