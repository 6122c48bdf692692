package session

import (
	"context"
	"errors"
)

// ErrScriptExhausted is returned by Script when it has no decisions left.
var ErrScriptExhausted = errors.New("no scripted decisions left")

// Script replays a fixed list of decisions and keeps every prompt it saw.
type Script struct {
	Decisions []Decision
	Prompts   []Prompt
}

// NewScript returns a Script that answers with ds in order.
func NewScript(ds ...Decision) *Script {
	return &Script{Decisions: ds}
}

func (s *Script) Decide(ctx context.Context, p Prompt) (Decision, error) {
	s.Prompts = append(s.Prompts, p)
	if len(s.Decisions) == 0 {
		return Decision{}, ErrScriptExhausted
	}
	d := s.Decisions[0]
	s.Decisions = s.Decisions[1:]
	return d, nil
}

// Batch skips every finding.
type Batch struct{}

func (Batch) Decide(ctx context.Context, p Prompt) (Decision, error) {
	return Decision{Action: Skip}, nil
}
