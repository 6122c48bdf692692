// Package watch re-runs a lint pass whenever checked files change.
//
// Events are coalesced: the callback fires once per quiet period with every
// path that changed during it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/japaniel/spellcheck/pkg/discover"
)

const defaultDebounce = 500 * time.Millisecond

// noise is never worth a re-run.
var noise = []string{"**/*.swp", "**/*.swo", "**/*~", "**/.DS_Store", "**/.*.tmp"}

// Config holds the parameters for a Watcher.
type Config struct {
	// Root is the directory to watch; empty means the working directory.
	Root string
	// Discover supplies ignored directories, ignore globs, excluded files
	// and the extensions that are worth re-checking.
	Discover discover.Options
	// Debounce is the quiet period before OnChange fires.
	Debounce time.Duration
	// OnChange receives the changed paths, relative to Root, sorted.
	OnChange func(ctx context.Context, changed []string) error
	// Logger is used for watch errors and skipped runs. nil means no logging.
	Logger *log.Logger
}

// Watcher monitors Root recursively. Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
	started  atomic.Bool
}

// New registers every non-ignored directory under cfg.Root.
func New(cfg Config) (*Watcher, error) {
	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	if err := cfg.Discover.Validate(); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &Watcher{cfg: cfg, fsw: fsw, root: abs, debounce: cfg.Debounce}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if err := w.addDirectories(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is canceled, dispatching debounced callbacks. A
// callback still running when the next one is due is not overlapped; the
// pending paths are kept for a later run.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.debugf("previous run still in progress, retrying later")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil && w.cfg.Logger != nil {
				w.cfg.Logger.Error("re-run failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		w.fsw.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil || w.cfg.Discover.Ignored(rel) || slices.ContainsFunc(noise, func(p string) bool {
				m, _ := doublestar.Match(p, filepath.ToSlash(rel))
				return m
			}) {
				continue
			}
			if evt.Has(fsnotify.Create) && w.maybeAddDir(evt.Name, rel) {
				continue
			}
			if !w.relevant(evt.Name) {
				continue
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EMFILE) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			if w.cfg.Logger != nil {
				w.cfg.Logger.Warn("fsnotify error", "err", err)
			}
		}
	}
}

// relevant reports whether a change to path could change the findings.
func (w *Watcher) relevant(path string) bool {
	if _, ok := w.cfg.Discover.KindFor(path); !ok {
		return false
	}
	for _, e := range w.cfg.Discover.Exclude {
		if abs, err := filepath.Abs(e); err == nil && abs == path {
			return false
		}
	}
	return true
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if w.cfg.Logger != nil {
				w.cfg.Logger.Warn("not watching inaccessible path", "path", path, "err", err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && w.cfg.Discover.Ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", w.root, err)
	}
	return nil
}

// maybeAddDir starts watching a newly created directory and reports whether
// path was a directory.
func (w *Watcher) maybeAddDir(path, rel string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := w.fsw.Add(path); err != nil && w.cfg.Logger != nil {
		w.cfg.Logger.Warn("cannot watch new directory", "path", rel, "err", err)
	}
	return true
}

func (w *Watcher) debugf(format string, args ...any) {
	if w.cfg.Logger != nil {
		w.cfg.Logger.Debugf(format, args...)
	}
}

// Watched returns the directories currently registered, relative to the root.
func (w *Watcher) Watched() []string {
	var out []string
	for _, p := range w.fsw.WatchList() {
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	slices.Sort(out)
	return out
}
