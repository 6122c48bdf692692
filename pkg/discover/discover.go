// Package discover finds the files a lint run should check.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/japaniel/spellcheck/pkg/lint"
	"github.com/japaniel/spellcheck/pkg/scanner"
)

// DefaultIgnoreDirs are directory names never descended into.
var DefaultIgnoreDirs = []string{
	".git", "__pycache__", ".venv", "venv", "env", "node_modules",
	"data", "logs", "output", "build", "dist", "vendor",
}

// DefaultKinds maps file extensions to the rules used to read them.
var DefaultKinds = map[string]scanner.ContentKind{
	".py": scanner.Source, ".pyi": scanner.Source, ".go": scanner.Source,
	".js": scanner.Source, ".jsx": scanner.Source, ".ts": scanner.Source, ".tsx": scanner.Source,
	".sh": scanner.Source, ".bash": scanner.Source, ".rb": scanner.Source, ".rs": scanner.Source,
	".java": scanner.Source, ".kt": scanner.Source, ".c": scanner.Source, ".h": scanner.Source, ".cpp": scanner.Source,
	".md": scanner.Prose, ".markdown": scanner.Prose, ".txt": scanner.Prose, ".rst": scanner.Prose,
}

// Options control discovery. Zero values select the defaults.
type Options struct {
	IgnoreDirs []string
	// Ignore holds doublestar globs matched against slash-separated paths
	// relative to the root, such as "docs/legacy/**" or "**/*_test.go".
	Ignore []string
	Kinds  map[string]scanner.ContentKind
	// Exclude lists files to leave out, such as the report file itself.
	Exclude []string
}

func (o Options) ignoreDirs() []string {
	if o.IgnoreDirs == nil {
		return DefaultIgnoreDirs
	}
	return o.IgnoreDirs
}

func (o Options) kinds() map[string]scanner.ContentKind {
	if o.Kinds == nil {
		return DefaultKinds
	}
	return o.Kinds
}

// Validate checks every ignore pattern.
func (o Options) Validate() error {
	for _, pat := range o.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid ignore pattern %q", pat)
		}
	}
	return nil
}

// KindFor returns the content kind for path and whether its extension is known.
func (o Options) KindFor(path string) (scanner.ContentKind, bool) {
	k, ok := o.kinds()[strings.ToLower(filepath.Ext(path))]
	return k, ok
}

// Ignored reports whether rel, a path relative to the root, matches an
// ignore pattern or lies under an ignored directory.
func (o Options) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if slices.Contains(o.ignoreDirs(), part) {
			return true
		}
	}
	for _, pat := range o.Ignore {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (o Options) excluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, e := range o.Exclude {
		if ea, err := filepath.Abs(e); err == nil && ea == abs {
			return true
		}
	}
	return false
}

// Discover walks root in lexical order and returns every file with a known
// extension that is not ignored.
func Discover(root string, opts Options) ([]lint.File, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var files []lint.File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// unreadable entries are skipped, not fatal
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if opts.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		kind, ok := opts.KindFor(path)
		if !ok || opts.excluded(path) {
			return nil
		}
		files = append(files, lint.File{Path: path, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	return files, nil
}

// Paths resolves command-line arguments: directories are discovered, files
// are taken as given. A file with an unknown extension is read as source
// with generic comment rules. No arguments means the current directory.
func Paths(args []string, opts Options) ([]lint.File, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	var files []lint.File
	seen := make(map[string]bool)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		var found []lint.File
		if info.IsDir() {
			found, err = Discover(arg, opts)
			if err != nil {
				return nil, err
			}
		} else if info.Mode().IsRegular() {
			kind, _ := opts.KindFor(arg)
			found = []lint.File{{Path: arg, Kind: kind}}
		} else {
			return nil, errors.New(arg + ": not a regular file or directory")
		}
		for _, f := range found {
			key := filepath.Clean(f.Path)
			if seen[key] {
				continue
			}
			seen[key] = true
			files = append(files, f)
		}
	}
	return files, nil
}
