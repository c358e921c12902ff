package service

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/siherrmann/ragpipe/helper"
)

// DefaultDebounce is how long the watcher waits after the last write to a
// file before reindexing it. Editors often emit several events per save.
const DefaultDebounce = 5 * time.Second

// Watcher reindexes documents when their files change on disk. Events are
// debounced per file so a burst of writes triggers one reindex.
type Watcher struct {
	indexer  *Indexer
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	done    chan struct{}
}

// NewWatcher creates a watcher over the given directory. Close releases
// the underlying file watcher.
func NewWatcher(indexer *Indexer, dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, helper.NewError("creating file watcher", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		if closeErr := fsWatcher.Close(); closeErr != nil {
			logger.Warn("closing file watcher failed", slog.Any("error", closeErr))
		}
		return nil, helper.NewError("watching directory", err)
	}

	w := &Watcher{
		indexer:  indexer,
		watcher:  fsWatcher,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, indexable := indexableExtensions[strings.ToLower(filepath.Ext(event.Name))]; !indexable {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", slog.Any("error", err))
		case <-w.done:
			return
		}
	}
}

// schedule arms (or re-arms) the debounce timer for one file.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if _, err := w.indexer.IndexFile(path); err != nil {
			w.logger.Warn("reindex failed", slog.String("path", path), slog.Any("error", err))
		}
	})
}

// Close stops the watcher and cancels pending reindex timers.
func (w *Watcher) Close() error {
	close(w.done)

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
