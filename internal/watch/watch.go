// Package watch implements the debounced filesystem watch loop that keeps
// a tree's code graph current as files change, adapted from the teacher's
// FileWatcher (internal/indexing/watcher.go): fsnotify for raw events, a
// last-event-wins per-path debounce timer, and recursive directory
// watching that follows newly created subdirectories. New here is a
// per-file in-flight guard: a debounced event for a file already being
// reconciled is coalesced into a follow-up run instead of firing a second,
// overlapping reconciliation.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/bmcp/internal/debug"
	"github.com/standardbeagle/bmcp/internal/scanner"
)

// EventType classifies a debounced filesystem change.
type EventType int

const (
	Created EventType = iota
	Modified
	Deleted
	Renamed
)

func (t EventType) String() string {
	switch t {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Handler reconciles one file's change. It is never invoked more than
// once concurrently for the same path.
type Handler func(ctx context.Context, path string, evt EventType) error

// Watcher is a debounced, recursive fsnotify watch over one root
// directory.
type Watcher struct {
	root     string
	scanner  scanner.Scanner
	debounce time.Duration
	handler  Handler

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	debMu   sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]EventType

	inFlightMu sync.Mutex
	inFlight   map[string]bool
	rerun      map[string]EventType
}

// New builds a Watcher. debounceMs <= 0 falls back to a 250ms debounce.
func New(root string, sc scanner.Scanner, debounceMs int, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if debounceMs <= 0 {
		debounceMs = 250
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		root:     root,
		scanner:  sc,
		debounce: time.Duration(debounceMs) * time.Millisecond,
		handler:  handler,
		fsw:      fsw,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]EventType),
		inFlight: make(map[string]bool),
		rerun:    make(map[string]EventType),
	}, nil
}

// Start adds recursive watches under root and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop cancels the watch loop and releases the fsnotify watcher. Pending
// debounce timers are not flushed: firing a reconciliation against a store
// that's mid-shutdown risks a deadlock, so in-flight debounces are simply
// dropped.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.fsw.Close()
	w.wg.Wait()

	w.debMu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
		delete(w.pending, path)
	}
	w.debMu.Unlock()
}

func (w *Watcher) addWatches(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && !w.scanner.ShouldDescend(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.LogWatch("fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)

	switch {
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.debounceEvent(event.Name, Deleted)
		return
	case statErr != nil:
		return
	case info.IsDir():
		if event.Op&fsnotify.Create != 0 {
			if w.scanner.ShouldDescend(event.Name) {
				_ = w.addWatches(event.Name)
			}
		}
		return
	}

	if !w.scanner.ShouldProcess(event.Name) {
		return
	}

	evtType := Modified
	if event.Op&fsnotify.Create != 0 {
		evtType = Created
	}
	w.debounceEvent(event.Name, evtType)
}

func (w *Watcher) debounceEvent(path string, evt EventType) {
	w.debMu.Lock()
	defer w.debMu.Unlock()

	w.pending[path] = evt
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.debMu.Lock()
	evt, ok := w.pending[path]
	if ok {
		delete(w.pending, path)
		delete(w.timers, path)
	}
	w.debMu.Unlock()
	if !ok {
		return
	}

	w.inFlightMu.Lock()
	if w.inFlight[path] {
		w.rerun[path] = evt
		w.inFlightMu.Unlock()
		return
	}
	w.inFlight[path] = true
	w.inFlightMu.Unlock()

	w.runHandler(path, evt)
}

func (w *Watcher) runHandler(path string, evt EventType) {
	if err := w.handler(w.ctx, path, evt); err != nil {
		debug.LogWatch("reconcile %s failed: %v", path, err)
	}

	w.inFlightMu.Lock()
	if nextEvt, ok := w.rerun[path]; ok {
		delete(w.rerun, path)
		w.inFlightMu.Unlock()
		w.runHandler(path, nextEvt)
		return
	}
	delete(w.inFlight, path)
	w.inFlightMu.Unlock()
}
