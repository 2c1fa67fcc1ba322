package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher reports content changes of a set of files. Bursts of events
// are debounced and a file whose bytes did not change is not reported.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	files  map[string][sha256.Size]byte
	timers map[string]*time.Timer
}

// WatchFiles watches paths until ctx is done and calls onChange with the
// path of every file whose content changed. The parent directories are
// watched so editors that replace files by rename are handled.
func WatchFiles(ctx context.Context, paths []string, debounce time.Duration, logger *zap.Logger, onChange func(path string)) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:  w,
		debounce: debounce,
		logger:   logger,
		files:    make(map[string][sha256.Size]byte),
		timers:   make(map[string]*time.Timer),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		fw.files[abs], _ = hashFile(abs)
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	go fw.run(ctx, onChange)
	return fw, nil
}

func (fw *FileWatcher) run(ctx context.Context, onChange func(string)) {
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			fw.stopTimers()
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			fw.schedule(ctx, filepath.Clean(event.Name), onChange)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (fw *FileWatcher) schedule(ctx context.Context, path string, onChange func(string)) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, watched := fw.files[path]; !watched {
		return
	}
	if t, ok := fw.timers[path]; ok {
		t.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if fw.changed(path) {
			fw.logger.Info("Watched file changed", zap.String("path", path))
			onChange(path)
		}
	})
}

// changed rehashes path and reports whether its content differs from the
// last seen version.
func (fw *FileWatcher) changed(path string) bool {
	sum, err := hashFile(path)
	if err != nil {
		fw.logger.Debug("Watched file unreadable", zap.String("path", path), zap.Error(err))
		return false
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.files[path] == sum {
		return false
	}
	fw.files[path] = sum
	return true
}

func (fw *FileWatcher) stopTimers() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, t := range fw.timers {
		t.Stop()
	}
}

func hashFile(path string) ([sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}
