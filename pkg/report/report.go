// Package report writes batch findings to a plain-text file.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/spellcheck/pkg/lint"
)

// DefaultPath is where batch mode writes its report.
const DefaultPath = "spelling_errors.txt"

// WriteError is returned when the report file cannot be produced.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write report %s: %v", e.Path, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// Format writes one line per occurrence:
//
//	<path>:<line>:<col>: "<word>" suggestions=[<s1>;<s2>]
func Format(w io.Writer, findings []lint.Finding) error {
	bw := bufio.NewWriter(w)
	for _, f := range findings {
		suggestions := strings.Join(f.Suggestions, ";")
		occ := f.Occurrences
		if len(occ) == 0 {
			occ = append(occ, f.Token)
		}
		for _, tok := range occ {
			if _, err := fmt.Fprintf(bw, "%s:%d:%d: %q suggestions=[%s]\n",
				tok.Path, tok.Line, tok.Column, tok.Raw, suggestions); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Write replaces dest with the formatted findings. The file is written to a
// temporary sibling, synced, and renamed, so readers see the old report or
// the complete new one.
func Write(findings []lint.Finding, dest string) error {
	if dest == "" {
		dest = DefaultPath
	}
	if err := writeAtomic(dest, findings); err != nil {
		return &WriteError{Path: dest, Err: err}
	}
	return nil
}

func writeAtomic(dest string, findings []lint.Finding) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Format(tmp, findings); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
