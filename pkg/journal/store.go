package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// CreateSession starts a new session and returns its id.
func CreateSession(db DBExecutor, root string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (id, root, started_at, status) VALUES (?, ?, ?, ?)`,
		id, root, time.Now().UTC(), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// FinishSession stamps the end of a session with its final status.
func FinishSession(db DBExecutor, id, status string) error {
	if status != StatusFinished && status != StatusAborted {
		return fmt.Errorf("invalid final status %q", status)
	}
	res, err := db.Exec(
		`UPDATE sessions SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC(), status, id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish session: no session %s", id)
	}
	return nil
}

// GetSession loads one session by id.
func GetSession(db DBExecutor, id string) (*Session, error) {
	var s Session
	var finished sql.NullTime
	err := db.QueryRow(
		`SELECT id, root, started_at, finished_at, status FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.Root, &s.StartedAt, &finished, &s.Status)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if finished.Valid {
		t := finished.Time
		s.FinishedAt = &t
	}
	return &s, nil
}

// RecordDecision appends one decision to a session.
func RecordDecision(db DBExecutor, d Decision) (int64, error) {
	if strings.TrimSpace(d.SessionID) == "" {
		return 0, fmt.Errorf("decision must belong to a session")
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now().UTC()
	}
	res, err := db.Exec(
		`INSERT INTO decisions (session_id, path, word, line, col, action, replacement, auto, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.SessionID, d.Path, d.Word, d.Line, d.Column, d.Action, d.Replacement, d.Auto, d.DecidedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert decision: %w", err)
	}
	return res.LastInsertId()
}

// Decisions returns the decisions of a session in the order they were taken.
func Decisions(db DBExecutor, sessionID string) ([]Decision, error) {
	rows, err := db.Query(
		`SELECT id, session_id, path, word, line, col, action, replacement, auto, decided_at
		 FROM decisions WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Path, &d.Word, &d.Line, &d.Column,
			&d.Action, &d.Replacement, &d.Auto, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PreviouslySkipped returns the findings skipped in sessions that have
// ended, whether finished or aborted.
func PreviouslySkipped(db DBExecutor) (Skips, error) {
	rows, err := db.Query(
		`SELECT DISTINCT d.path, d.word
		 FROM decisions d JOIN sessions s ON s.id = d.session_id
		 WHERE d.action = 'skip' AND s.finished_at IS NOT NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("query skipped: %w", err)
	}
	defer rows.Close()

	skips := make(Skips)
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Path, &k.Word); err != nil {
			return nil, fmt.Errorf("scan skipped: %w", err)
		}
		skips[k] = struct{}{}
	}
	return skips, rows.Err()
}
