// Package watch rebuilds the manifest when the content tree or the profile
// changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/berkana/internal/manifest"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before rebuilding.
const DefaultDebounce = 200 * time.Millisecond

// Builder runs one incremental build.
type Builder interface {
	Build(ctx context.Context) (*manifest.Result, error)
}

// Callback is called after every successful watcher-driven build.
type Callback func(res *manifest.Result)

// Options configures Watch.
type Options struct {
	// Root is the repository directory.
	Root string
	// ContentDir and ProfileFile are relative to Root.
	ContentDir  string
	ProfileFile string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
	// OnError, if set, is called with every failed rebuild.
	OnError func(err error)
}

// Watch starts an fsnotify watcher on the content directory (recursively) and
// the repository root (for the profile and for a content directory created
// later), and rebuilds through b until ctx is cancelled. Builds run one at a
// time on the watcher goroutine. Build failures are logged and reported to
// opts.OnError, never returned.
func Watch(ctx context.Context, b Builder, opts Options, cb Callback) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return fmt.Errorf("watch: resolve root: %w", err)
	}
	content := filepath.Join(root, filepath.FromSlash(opts.ContentDir))
	profile := filepath.Join(root, filepath.FromSlash(opts.ProfileFile))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return fmt.Errorf("watch: add root: %w", err)
	}
	if err := addDirsRecursive(w, content); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("watch: add content: %w", err)
	}

	logger.Info("watcher: started", slog.String("root", root), slog.String("content", content))

	relevant := func(name string) bool {
		if name == profile || name == content {
			return true
		}
		rel, err := filepath.Rel(content, name)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false
		}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if strings.HasPrefix(part, ".") {
				return false
			}
		}
		return true
	}

	// rebuildTimer debounces bursts of events into one build.
	var rebuildTimer *time.Timer
	var rebuildCh <-chan time.Time

	scheduleRebuild := func() {
		if rebuildTimer == nil {
			rebuildTimer = time.NewTimer(opts.Debounce)
			rebuildCh = rebuildTimer.C
		} else {
			rebuildTimer.Reset(opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rebuildCh:
			res, err := b.Build(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Error("watcher: rebuild failed", slog.String("error", err.Error()))
				if opts.OnError != nil {
					opts.OnError(err)
				}
				continue
			}
			if cb != nil {
				cb(res)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev.Name) {
				continue
			}

			// New directories (including the content directory itself)
			// must be added to the watcher explicitly.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}

			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			scheduleRebuild()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
