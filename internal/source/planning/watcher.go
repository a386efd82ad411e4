package planning

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const eventBufferSize = 100

// Event reports that a session document changed on disk.
type Event struct {
	Path      string
	Removed   bool
	Timestamp time.Time
}

// Watcher watches a planning directory for document changes using fsnotify.
// Bursts of events for the same file are collapsed into one Event.
type Watcher struct {
	dir      string
	delay    time.Duration
	watcher  *fsnotify.Watcher
	events   chan Event
	logger   zerolog.Logger
	debounce map[string]*time.Timer // path -> debounce timer
	removed  map[string]bool

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for dir. The directory is created if it doesn't exist.
func NewWatcher(dir string, delay time.Duration, logger zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:      dir,
		delay:    delay,
		watcher:  fw,
		events:   make(chan Event, eventBufferSize),
		logger:   logger.With().Str("cmp", "planning-watcher").Logger(),
		debounce: make(map[string]*time.Timer),
		removed:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Events returns the channel of debounced change events. It is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops watching and closes the events channel.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	for _, timer := range w.debounce {
		timer.Stop()
	}
	w.debounce = make(map[string]*time.Timer)
	if !w.closed {
		w.closed = true
		close(w.events)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// run processes filesystem events from fsnotify.
func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	filename := filepath.Base(event.Name)

	// Ignore non-markdown files and editor swap/backup files
	if !strings.HasSuffix(filename, ".md") || strings.HasPrefix(filename, ".") {
		return
	}

	path := event.Name
	gone := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.removed[path] = gone
	if timer, exists := w.debounce[path]; exists {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.delay, func() {
		w.notify(path)
	})
}

// notify emits the settled event for path.
func (w *Watcher) notify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.debounce, path)
	removed := w.removed[path]
	delete(w.removed, path)
	if w.closed {
		return
	}

	// A rename followed by a create (atomic editor save) leaves the file in place.
	if removed {
		if _, err := os.Stat(path); err == nil {
			removed = false
		}
	}

	select {
	case w.events <- Event{Path: path, Removed: removed, Timestamp: time.Now()}:
	default:
		w.logger.Warn().Str("path", path).Msg("event buffer full, dropping change")
	}
}
