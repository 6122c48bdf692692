package journal

import "time"

// Session statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusAborted  = "aborted"
)

// Session is one interactive run.
type Session struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}

// Decision is the resolution of one finding within a session.
type Decision struct {
	ID          int64
	SessionID   string
	Path        string
	Word        string
	Line        int
	Column      int
	Action      string
	Replacement string
	Auto        bool
	DecidedAt   time.Time
}

// Key identifies a finding across sessions.
type Key struct {
	Path string
	Word string
}

// Skips is a set of findings skipped in earlier sessions.
type Skips map[Key]struct{}

// Contains reports whether (path, word) was skipped before.
func (s Skips) Contains(path, word string) bool {
	_, ok := s[Key{Path: path, Word: word}]
	return ok
}
