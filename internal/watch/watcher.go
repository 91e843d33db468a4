// Package watch re-runs a callback after files under a project directory change.
//
// Events are coalesced: the callback fires once per quiet period with every
// path that changed since the previous run. Runs never overlap.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
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
	"github.com/morozRed/wcm/internal/ignore"
)

const defaultDebounce = 300 * time.Millisecond

// transientPatterns match editor and OS scratch files.
var transientPatterns = []string{
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/.#*",
}

// Config configures a Watcher.
type Config struct {
	// BaseDir is the directory watched recursively. Defaults to the working directory.
	BaseDir string
	// Ignore excludes paths relative to BaseDir. Nil applies ignore.DefaultRules.
	Ignore   *ignore.Matcher
	Debounce time.Duration
	Logger   *log.Logger
	// OnChange receives the sorted, deduplicated paths (relative to BaseDir)
	// that changed in one burst.
	OnChange func(ctx context.Context, changed []string) error
}

// Watcher monitors BaseDir. Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	ignore   *ignore.Matcher
	logger   *log.Logger
	debounce time.Duration
	baseDir  string
	started  atomic.Bool
}

// New resolves BaseDir and registers every non-ignored directory below it.
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

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	matcher := cfg.Ignore
	if matcher == nil {
		matcher = ignore.NewMatcher(nil)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignore:   matcher,
		logger:   logger,
		debounce: debounce,
		baseDir:  absBase,
	}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. It returns nil on cancellation.
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
			w.logger.Debug("previous run still in progress, retrying after debounce")
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

		w.logger.Info("change detected", "files", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("watch: callback failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("watch: close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			info, statErr := os.Stat(evt.Name)
			isDir := statErr == nil && info.IsDir()
			if w.isIgnored(rel, isDir) {
				continue
			}
			if isDir && evt.Has(fsnotify.Create) {
				w.addDir(evt.Name)
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
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("watch: skipping inaccessible path", "path", path, "err", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.baseDir, path)
		if err != nil {
			return nil
		}
		if w.isIgnored(rel, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// addDir registers a directory created after startup, plus any subdirectories
// that already exist in it.
func (w *Watcher) addDir(path string) {
	_ = filepath.WalkDir(path, func(sub string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.baseDir, sub)
		if relErr != nil || w.isIgnored(rel, true) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(sub); addErr != nil {
			w.logger.Warn("watch: add new directory", "path", sub, "err", addErr)
		}
		return nil
	})
}

func (w *Watcher) isIgnored(rel string, isDir bool) bool {
	if w.ignore.ShouldIgnore(rel, isDir) {
		return true
	}
	return IsTransient(rel)
}

// IsTransient reports whether rel names an editor or OS scratch file.
func IsTransient(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pattern := range transientPatterns {
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// isFatal reports resource exhaustion, after which the watcher cannot recover.
func isFatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}
