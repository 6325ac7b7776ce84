package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events (a single SQLite commit
// touches the db and -wal files several times) into one reload notification.
const watchDebounce = 100 * time.Millisecond

// Feed holds the loaded turn sequence for one session. All methods except the
// watcher plumbing are meant to be called from the UI event loop; the watcher
// goroutine only ever invokes the notify callback, which the caller is
// responsible for marshaling back onto the loop.
type Feed struct {
	store  Store
	notify func()

	sessionID string
	turns     []Turn
	ids       []string
	ready     bool

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFeed creates a feed over the store. notify fires when the underlying
// database changes externally and the sequence should be refreshed; it may be
// nil when no watcher is used.
func NewFeed(store Store, notify func()) *Feed {
	return &Feed{store: store, notify: notify}
}

// Attach loads the turn sequence for a session, replacing whatever was loaded
// before. The feed is not ready until Attach returns successfully.
func (f *Feed) Attach(ctx context.Context, sessionID string) error {
	f.sessionID = sessionID
	f.turns = nil
	f.ids = nil
	f.ready = false
	return f.Refresh(ctx)
}

// Refresh reloads the attached session's turns from the store. An external
// revert may shorten the sequence; callers render from the result, never from
// a stale snapshot.
func (f *Feed) Refresh(ctx context.Context) error {
	if f.sessionID == "" {
		return ErrEmptyID
	}

	turns, err := f.store.GetTurns(ctx, f.sessionID)
	if err != nil {
		return fmt.Errorf("loading turns for session %s: %w", f.sessionID, err)
	}

	f.turns = turns
	f.ids = make([]string, len(turns))
	for i := range turns {
		f.ids[i] = turns[i].ID
	}
	f.ready = true
	return nil
}

// SessionID returns the attached session id, or "" before Attach.
func (f *Feed) SessionID() string { return f.sessionID }

// Ready reports whether the sequence has been loaded at least once.
func (f *Feed) Ready() bool { return f.ready }

// Turns returns the loaded ordered turn sequence.
func (f *Feed) Turns() []Turn { return f.turns }

// IDs returns the ordered turn ids, aligned with Turns.
func (f *Feed) IDs() []string { return f.ids }

// Len returns the loaded sequence length.
func (f *Feed) Len() int { return len(f.turns) }

// Watch starts watching the transcript database file for external writes.
// The watch covers the containing directory because SQLite appends to the
// -wal sidecar and some writers replace the file atomically.
func (f *Feed) Watch(dbPath string) error {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()

	if f.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating database watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching database directory: %w", err)
	}

	f.watcher = watcher
	f.done = make(chan struct{})
	go f.watchLoop(watcher, dbPath, f.done)
	return nil
}

func (f *Feed) watchLoop(watcher *fsnotify.Watcher, dbPath string, done chan struct{}) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	base := filepath.Base(dbPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if name != base && !strings.HasPrefix(name, base+"-") {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				if f.notify != nil {
					f.notify()
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Transcript database watcher error", "error", err)
		case <-done:
			return
		}
	}
}

// Close stops the database watcher. Safe to call without a prior Watch.
func (f *Feed) Close() error {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()

	if f.watcher == nil {
		return nil
	}
	close(f.done)
	err := f.watcher.Close()
	f.watcher = nil
	f.done = nil
	return err
}
