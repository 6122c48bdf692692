package journal

import (
	"context"

	"github.com/japaniel/spellcheck/pkg/session"
)

// Recorder writes session outcomes into one journal session.
type Recorder struct {
	DB        DBExecutor
	SessionID string
}

func (r *Recorder) Record(ctx context.Context, o session.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tok := o.Finding.Token
	_, err := RecordDecision(r.DB, Decision{
		SessionID:   r.SessionID,
		Path:        tok.Path,
		Word:        o.Finding.Word(),
		Line:        tok.Line,
		Column:      tok.Column,
		Action:      o.Action.String(),
		Replacement: o.Replacement,
		Auto:        o.Auto,
	})
	return err
}
