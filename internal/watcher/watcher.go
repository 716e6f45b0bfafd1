// Package watcher keeps watched directory trees in sync with the ingested
// corpus using fsnotify.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/fileid"
	"github.com/hyperjump/kizami/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Ingestor is the slice of the ingest pipeline the watcher drives.
// Implemented by ingest.Ingestor.
type Ingestor interface {
	IngestFile(ctx context.Context, path string, allowedExts []string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Watcher mirrors file events under its roots into the corpus: created and
// modified files are re-ingested after a debounce window, removed files are
// deleted by their path-derived document id.
type Watcher struct {
	ingestor   Ingestor
	extensions []string
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	roots   []string
	watched map[string][]string // root -> directories registered with fsnotify
	pending map[string]*time.Timer
	fsw     *fsnotify.Watcher
	ctx     context.Context
	done    chan struct{}
	stopped sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger enables debug logging of directory and file events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the quiet window a changed file must survive before
// it is re-ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots feeding ing. extensions filters which
// files are considered (empty = all).
func New(ing Ingestor, roots, extensions []string, recursive bool, opts ...Option) *Watcher {
	w := &Watcher{
		ingestor:   ing,
		extensions: extensions,
		recursive:  recursive,
		debounce:   defaultDebounce,
		roots:      roots,
		watched:    make(map[string][]string),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start registers the roots with fsnotify and begins dispatching events. It
// returns once the event loop is running; the loop ends when ctx is
// cancelled or Stop is called. Missing root directories are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.fsw != nil {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	if w.logger != nil {
		w.logger.Debug("watcher starting",
			zap.Strings("roots", w.roots),
			zap.Strings("extensions", w.extensions),
			zap.Bool("recursive", w.recursive))
	}
	for _, root := range w.roots {
		if err := w.registerRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.loop(ctx, fsw)
	return nil
}

// loop holds its own reference to the fsnotify watcher; closing it ends the
// channels and the loop, so Stop never races the field.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// A directory appeared under a watched tree: watch it and pick
			// up whatever files it already contains.
			w.watchSubtree(path)
			w.syncTree(path)
			return
		}
		if w.wantFile(path) {
			w.schedule(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelPending(path)
		if w.wantFile(path) {
			w.removeDocument(path)
		}
	}
}

// schedule (re)arms the debounce timer for path. Rapid write bursts collapse
// into a single ingest once the file goes quiet.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingestFile(path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingestFile(path string) {
	if w.ingestor == nil {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher ingesting file", zap.String("path", path))
	}
	if _, err := w.ingestor.IngestFile(w.context(), path, w.extensions); err != nil && w.logger != nil {
		w.logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
	}
}

// removeDocument deletes the document whose id derives from path. Deleting a
// path that was never ingested is a no-op downstream.
func (w *Watcher) removeDocument(path string) {
	if w.ingestor == nil {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := w.ingestor.DeleteDocument(w.context(), fileid.FileDocID(path)); err != nil && w.logger != nil {
		w.logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx != nil {
		return w.ctx
	}
	return context.Background()
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) wantFile(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// registerRootLocked creates root if missing and registers its directory
// tree with fsnotify, recording the registered paths for later removal.
func (w *Watcher) registerRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	return w.addTreeLocked(root, root)
}

func (w *Watcher) addTreeLocked(root, dir string) error {
	add := func(p string) error {
		if err := w.fsw.Add(p); err != nil {
			return err
		}
		w.watched[root] = append(w.watched[root], p)
		return nil
	}
	if !w.recursive {
		return add(dir)
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		return add(p)
	})
}

// watchSubtree registers a directory that appeared inside an existing root.
// Registration failures are logged and skipped; the rest of the tree keeps
// watching.
func (w *Watcher) watchSubtree(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	root := dir
	for _, r := range w.roots {
		rc := filepath.Clean(r)
		if rc == filepath.Clean(dir) || inDir(rc, filepath.Clean(dir)) {
			root = rc
			break
		}
	}
	if err := w.addTreeLocked(root, dir); err != nil && w.logger != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
}

// syncTree ingests every matching file currently under dir.
func (w *Watcher) syncTree(dir string) {
	if w.logger != nil {
		w.logger.Debug("watcher syncing directory", zap.String("root", dir))
	}
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if w.wantFile(p) {
			w.ingestFile(p)
		}
		return nil
	})
}

// AddDirectory adds a root to watch. With syncExisting, files already under
// it are ingested in the background.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == filepath.Clean(abs) {
			w.mu.Unlock()
			return nil
		}
	}
	if err := w.registerRootLocked(abs); err != nil {
		w.mu.Unlock()
		return err
	}
	w.roots = append(w.roots, abs)
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	}
	if syncExisting {
		go w.syncTree(abs)
	}
	return nil
}

// RemoveDirectory stops watching the given root. Documents already ingested
// from it stay in the corpus.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, p := range w.watched[abs] {
		_ = w.fsw.Remove(p)
	}
	delete(w.watched, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	if w.logger != nil {
		w.logger.Debug("watcher directory removed", zap.String("path", abs))
	}
	return nil
}

// Directories returns a copy of the current watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles ingests every matching file already present under the
// watched roots. Call after Start to pick up pre-existing content.
func (w *Watcher) SyncExistingFiles() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("watcher syncing existing files", zap.Strings("roots", roots))
	}
	for _, root := range roots {
		w.syncTree(root)
	}
}

// Stop cancels pending ingests and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.mu.Unlock()
	w.stopped.Do(func() { close(w.done) })
}
