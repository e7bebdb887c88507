// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last relevant event before
// a rebuild starts.
const defaultDebounce = 500 * time.Millisecond

// defaultIgnores lists path patterns that are never watched, regardless of
// user-supplied ignore patterns. They cover VCS metadata, dependency caches,
// editor swap files and OS metadata files.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config holds the parameters shared by a Watcher and its Scheduler.
	Config struct {
		// BaseDir is the root directory to watch. An empty value defaults to
		// the current working directory.
		BaseDir string

		// Patterns are doublestar glob patterns (e.g. "**/deno.json"),
		// relative to BaseDir, selecting the files whose changes matter.
		Patterns []string

		// Paths are exact BaseDir-relative paths whose changes matter, in
		// addition to Patterns.
		Paths []string

		// Ignore are additional doublestar patterns for paths that are never
		// watched. They are merged with the built-in default ignores.
		Ignore []string

		// Debounce is the quiet period after the last relevant event before
		// a rebuild. Zero or negative values fall back to 500ms.
		Debounce time.Duration

		// Logger receives debug and warning output. nil discards it.
		Logger *log.Logger
	}

	// Watcher is one open fsnotify handle over every non-ignored directory
	// under BaseDir. It is not safe for concurrent use.
	Watcher struct {
		cfg     Config
		fsw     *fsnotify.Watcher
		ignores []string
		paths   []string
		baseDir string
		logger  *log.Logger
		closed  atomic.Bool
	}
)

// New opens a Watcher. Invalid patterns are rejected before any directory is
// registered.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	paths := make([]string, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		paths = append(paths, path.Clean(filepath.ToSlash(p)))
	}

	w := &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		ignores: ignores,
		paths:   paths,
		baseDir: absBase,
		logger:  logger,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "err", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Close releases the fsnotify handle. Closing twice is a no-op.
func (w *Watcher) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("watch: close fsnotify: %w", err)
	}
	return nil
}

// Events returns the raw fsnotify event channel.
func (w *Watcher) Events() <-chan fsnotify.Event {
	return w.fsw.Events
}

// Errors returns the raw fsnotify error channel.
func (w *Watcher) Errors() <-chan error {
	return w.fsw.Errors
}

// Relevant classifies evt. It returns the BaseDir-relative, forward-slash
// path and whether the event should schedule a rebuild. Directories created
// after the handle was opened are registered as a side effect.
func (w *Watcher) Relevant(evt fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.baseDir, evt.Name)
	if err != nil {
		rel = evt.Name
	}
	rel = filepath.ToSlash(rel)

	if w.isIgnored(rel) {
		return rel, false
	}
	if evt.Has(fsnotify.Create) {
		w.maybeAddDir(evt.Name)
	}
	if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) &&
		!evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename) {
		return rel, false
	}
	return rel, w.matches(rel)
}

// addDirectories walks BaseDir and adds every non-ignored directory to the
// fsnotify handle. Pattern filtering happens when events arrive.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(p string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			// Skip directories we cannot access rather than aborting the walk.
			w.logger.Debug("watch: skipping inaccessible path", "path", p, "err", walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.baseDir, p)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}

		if w.isIgnored(rel) || w.isIgnored(rel+"/") {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(p); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", p, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir registers p and every non-ignored directory below it, so
// trees created in one step (mkdir -p) are watched in full.
func (w *Watcher) maybeAddDir(p string) {
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return
	}

	_ = filepath.WalkDir(p, func(sub string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil //nolint:nilerr // best effort
		}
		rel, relErr := filepath.Rel(w.baseDir, sub)
		if relErr != nil {
			return filepath.SkipDir
		}
		if w.isIgnored(rel) || w.isIgnored(rel+"/") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(sub); addErr != nil {
			w.logger.Warn("watch: add new directory", "path", sub, "err", addErr)
		}
		return nil
	})
}

// isIgnored returns true if rel (relative to BaseDir) matches any ignore
// pattern.
func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, filepath.ToSlash(rel))
}

// matches reports whether rel is one of the exact Paths or matches one of
// the Patterns. With neither configured, every path matches.
func (w *Watcher) matches(rel string) bool {
	if len(w.cfg.Patterns) == 0 && len(w.paths) == 0 {
		return true
	}
	if slices.Contains(w.paths, path.Clean(rel)) {
		return true
	}
	return matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, matchErr := doublestar.Match(pat, rel); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// validatePatterns checks that every pattern is a valid doublestar glob. The
// label (e.g. "watch" or "ignore") is used in error messages.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
