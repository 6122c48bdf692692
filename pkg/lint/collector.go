// Package lint turns scanned tokens into deduplicated spelling findings.
package lint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/japaniel/spellcheck/pkg/metrics"
	"github.com/japaniel/spellcheck/pkg/oracle"
	"github.com/japaniel/spellcheck/pkg/scanner"
	"github.com/japaniel/spellcheck/pkg/wordstore"
)

// ErrInvalidUTF8 marks a file that is not valid UTF-8 text.
var ErrInvalidUTF8 = errors.New("file is not valid UTF-8")

// hexLike matches tokens such as hashes and colour codes.
var hexLike = regexp.MustCompile(`^[a-fA-F0-9]+$`)

// File is one input to Collect.
type File struct {
	Path string
	Kind scanner.ContentKind
}

// Finding is one unknown word in one file. Token is the first occurrence and
// Occurrences holds every occurrence in file order, the first included.
type Finding struct {
	Token       scanner.Token
	Occurrences []scanner.Token
	Suggestions []string
	Known       bool
}

// Word returns the normalized word the finding is keyed on.
func (f Finding) Word() string { return wordstore.Normalize(f.Token.Raw) }

// Path returns the file the finding belongs to.
func (f Finding) Path() string { return f.Token.Path }

// ScanError records a file that was skipped.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string { return fmt.Sprintf("scan %s: %v", e.Path, e.Err) }

func (e *ScanError) Unwrap() error { return e.Err }

// Dictionary is the word store lookup used by the collector.
type Dictionary interface {
	Contains(word string) bool
}

// Checker is the spell oracle used by the collector.
type Checker interface {
	Check(word string) (oracle.Result, error)
}

// Collector scans files in parallel and reconciles their findings in caller
// order.
type Collector struct {
	Store   Dictionary
	Oracle  Checker
	Workers int
	// Logger receives skipped files and degraded lookups. nil means no logging.
	Logger  *log.Logger
	Metrics *metrics.Metrics

	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) Pool

	// Skipped holds the scan errors of the last Collect call.
	Skipped []*ScanError
}

type fileResult struct {
	index    int
	findings []Finding
	err      *ScanError
}

// Collect returns the findings of files, grouped by file in the order given
// and by first occurrence within a file. Unreadable files are logged, recorded
// in Skipped, and do not stop collection.
func (c *Collector) Collect(ctx context.Context, files []File) ([]Finding, error) {
	c.Skipped = nil
	if len(files) == 0 {
		return nil, nil
	}
	workers := c.Workers
	if workers <= 0 {
		workers = 4
	}

	var wp Pool
	if c.PoolFactory != nil {
		wp = c.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan fileResult, workers*2)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(ctx)

	var findings []Finding
	done := make(chan struct{})
	go func() {
		defer close(done)
		buffer := make(map[int]fileResult)
		nextIdx := 0
		for res := range resultCh {
			buffer[res.index] = res
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					break
				}
				delete(buffer, nextIdx)
				if item.err != nil {
					c.Skipped = append(c.Skipped, item.err)
				}
				findings = append(findings, item.findings...)
				nextIdx++
			}
		}
	}()

	var submitErr error
Loop:
	for i, f := range files {
		idx, file := i, f
		job := func(ctx context.Context) error {
			res := c.checkFile(idx, file)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if !errors.Is(err, ctx.Err()) {
				submitErr = err
			}
			break Loop
		}
	}

	wp.Close()
	close(resultCh)
	<-done

	if submitErr != nil {
		return findings, fmt.Errorf("submit scan job: %w", submitErr)
	}
	if err := ctx.Err(); err != nil {
		return findings, err
	}
	return findings, nil
}

func (c *Collector) checkFile(index int, file File) fileResult {
	res := fileResult{index: index}
	read := c.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	text, err := read(file.Path)
	if err == nil && !utf8.Valid(text) {
		err = ErrInvalidUTF8
	}
	if err != nil {
		res.err = &ScanError{Path: file.Path, Err: err}
		c.Metrics.ScanError()
		if c.Logger != nil {
			c.Logger.Warn("skipping file", "path", file.Path, "err", err)
		}
		return res
	}
	c.Metrics.FileScanned()

	// seen maps a normalized word to its finding index, or -1 when known.
	seen := make(map[string]int)
	for tok := range scanner.Scan(file.Path, text, file.Kind) {
		if isHexLike(tok.Raw) {
			continue
		}
		for _, sub := range scanner.SubWords(tok) {
			c.Metrics.TokenChecked()
			key := wordstore.Normalize(sub.Raw)
			if i, ok := seen[key]; ok {
				if i >= 0 {
					res.findings[i].Occurrences = append(res.findings[i].Occurrences, sub)
				}
				continue
			}
			if c.Store != nil && c.Store.Contains(key) {
				seen[key] = -1
				continue
			}
			finding, known := c.lookup(sub, key)
			if known {
				seen[key] = -1
				continue
			}
			seen[key] = len(res.findings)
			res.findings = append(res.findings, finding)
			c.Metrics.Finding()
		}
	}
	return res
}

func (c *Collector) lookup(tok scanner.Token, key string) (Finding, bool) {
	f := Finding{Token: tok, Occurrences: []scanner.Token{tok}}
	if c.Oracle == nil {
		return f, false
	}
	result, err := c.Oracle.Check(key)
	if err != nil {
		c.Metrics.OracleError()
		if c.Logger != nil {
			c.Logger.Warn("spell check failed", "word", tok.Raw, "path", tok.Path, "err", err)
		}
		return f, false
	}
	if result.Known {
		return f, true
	}
	f.Suggestions = result.Suggestions
	return f, false
}

// isHexLike reports tokens made only of hex digits with at least one decimal
// digit, such as commit hashes.
func isHexLike(s string) bool {
	if !hexLike.MatchString(s) {
		return false
	}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
