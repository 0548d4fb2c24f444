// Package watch re-runs a callback when watched assembler sources change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// DefaultExtensions are the file extensions watched in directories.
var DefaultExtensions = []string{".s", ".S", ".asm", ".inc", ".mac"}

// Config holds watcher configuration.
type Config struct {
	// Paths are files or directories. Directories are walked recursively;
	// hidden subdirectories are skipped.
	Paths []string
	// Extensions filter events inside watched directories. Files named in
	// Paths always match.
	Extensions []string
	Debounce   time.Duration
	Logger     *slog.Logger
}

// Watcher batches file system events and hands the changed files to a
// callback once they settle.
type Watcher struct {
	cfg    Config
	files  map[string]bool // named in Paths
	dirs   map[string]bool // walked from directories in Paths
	exts   map[string]bool
	logger *slog.Logger
}

// New creates a watcher.
func New(cfg Config) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	w := &Watcher{
		cfg:    cfg,
		files:  make(map[string]bool),
		dirs:   make(map[string]bool),
		exts:   make(map[string]bool),
		logger: logger,
	}
	for _, e := range cfg.Extensions {
		w.exts[e] = true
	}
	return w
}

// ChangeFunc receives the sorted set of files changed since the last call.
type ChangeFunc func(ctx context.Context, changed []string) error

// Run watches until ctx is cancelled. Errors from fn are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context, fn ChangeFunc) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	for _, p := range w.cfg.Paths {
		if err := w.add(fsw, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}
	w.logger.Debug("watching", "paths", w.cfg.Paths, "debounce", w.cfg.Debounce)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]bool)
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && w.dirs[filepath.Dir(filepath.Clean(event.Name))] {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(fsw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !w.matches(event.Name) {
				continue
			}
			pending[filepath.Clean(event.Name)] = true
			stop()
			timer = time.NewTimer(w.cfg.Debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for f := range pending {
				changed = append(changed, f)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			w.logger.Info("change detected", "files", changed)
			if err := fn(ctx, changed); err != nil {
				w.logger.Error("change handler failed", "files", changed, "error", err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// add registers path. Files are watched through their directory so editors
// that replace files on save keep being tracked.
func (w *Watcher) add(fsw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.files[filepath.Clean(path)] = true
		return fsw.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		w.dirs[filepath.Clean(p)] = true
		return fsw.Add(p)
	})
}

func (w *Watcher) matches(name string) bool {
	name = filepath.Clean(name)
	if w.files[name] {
		return true
	}
	return w.dirs[filepath.Dir(name)] && w.exts[filepath.Ext(name)]
}
