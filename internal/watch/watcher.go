// Package watch feeds hand edits of the Markdown documents back into the
// store. It watches the data directory for *.md changes and resubmits the
// edited document through the syncer, so editing a file is equivalent to a
// PUT of the document.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/syncer"
)

// Watcher resubmits edited Markdown documents from a data directory.
// A document named <project-id>.md maps to that project.
type Watcher struct {
	dir      string
	debounce time.Duration
	syncer   *syncer.Syncer
	logger   *log.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	pending map[string]*time.Timer
}

// New creates a watcher over dir. Events within the debounce window for the
// same file coalesce into a single resubmission.
func New(dir string, debounce time.Duration, sy *syncer.Syncer, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		syncer:   sy,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start begins watching the data directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	w.logger.Info("watching for document edits", "dir", w.dir)
	return nil
}

// Stop stops watching and waits for in-flight work to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	close(w.done)
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents is the fsnotify event loop.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer for one document.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.resubmit(path)
	})
}

// resubmit reads an edited document and pushes it through the syncer.
// Validation failures are logged, not fatal: the store keeps its previous
// state and the user can fix the file.
func (w *Watcher) resubmit(path string) {
	projectID := strings.TrimSuffix(filepath.Base(path), ".md")

	body, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("failed to read edited document", "path", path, "err", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := w.syncer.SubmitDocument(ctx, projectID, string(body))
	switch {
	case err == nil:
		if !result.Empty() {
			w.logger.Info("document edit applied",
				"project", projectID,
				"created", result.Created,
				"updated", result.Updated,
				"deleted", result.Deleted)
		}
	case errors.Is(err, store.ErrNotFound):
		w.logger.Warn("edited document has no matching project", "path", path)
	default:
		var docErr *syncer.DocumentError
		if errors.As(err, &docErr) {
			for _, ve := range docErr.Errors {
				w.logger.Warn("document rejected", "project", projectID, "line", ve.Line, "err", ve.Msg)
			}
			return
		}
		w.logger.Error("failed to apply document edit", "project", projectID, "err", err)
	}
}
