// Package watcher keeps a live index of the snapshot documents in the data
// directory, grouping the five per-session files by their shared token so
// the CLI can list and load past sessions without rescanning on every call.
package watcher

import (
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 500 * time.Millisecond

// documentPrefixes are the five document kinds of one session, keyed by
// filename prefix.
var documentPrefixes = []string{"movements", "clicks", "scrolls", "hover", "stats"}

// SnapshotSet describes which documents exist for one session token.
type SnapshotSet struct {
	Token        string
	HasMovements bool
	HasClicks    bool
	HasScrolls   bool
	HasHover     bool
	HasStats     bool
}

// Loadable reports whether the set can be loaded: the movements document
// is the only required one.
func (s SnapshotSet) Loadable() bool {
	return s.HasMovements
}

// IndexCallback is called with the full index whenever it changes.
type IndexCallback func(sets []SnapshotSet)

// Watcher monitors a data directory for snapshot document changes.
type Watcher struct {
	mu        sync.RWMutex
	dir       string
	fsWatcher *fsnotify.Watcher
	cancel    chan struct{}
	callback  IndexCallback
	logger    *slog.Logger
	index     map[string]SnapshotSet
}

// New creates a watcher. The callback may be nil.
func New(callback IndexCallback, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		callback: callback,
		logger:   logger,
		index:    make(map[string]SnapshotSet),
	}
}

// Watch starts watching dir and performs the initial scan.
func (w *Watcher) Watch(dir string) error {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsW.Add(dir); err != nil {
		fsW.Close()
		return err
	}

	cancel := make(chan struct{})
	w.mu.Lock()
	w.dir = dir
	w.fsWatcher = fsW
	w.cancel = cancel
	w.mu.Unlock()

	go w.watchLoop(fsW, cancel)

	w.rescan()
	return nil
}

// Index returns the current snapshot sets, newest token first.
func (w *Watcher) Index() []SnapshotSet {
	w.mu.RLock()
	defer w.mu.RUnlock()

	sets := make([]SnapshotSet, 0, len(w.index))
	for _, s := range w.index {
		sets = append(sets, s)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Token > sets[j].Token })
	return sets
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop(fsW *fsnotify.Watcher, cancel chan struct{}) {
	var timer *time.Timer

	for {
		select {
		case <-cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsW.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, w.rescan)

		case err, ok := <-fsW.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watcher error", "error", err)
		}
	}
}

// rescan rebuilds the index from the directory and notifies if it changed.
func (w *Watcher) rescan() {
	w.mu.RLock()
	dir := w.dir
	w.mu.RUnlock()

	fresh, err := Scan(dir)
	if err != nil {
		w.logger.Warn("snapshot rescan failed", "dir", dir, "error", err)
		return
	}

	freshMap := make(map[string]SnapshotSet, len(fresh))
	for _, s := range fresh {
		freshMap[s.Token] = s
	}

	w.mu.Lock()
	changed := len(freshMap) != len(w.index)
	if !changed {
		for token, s := range freshMap {
			if w.index[token] != s {
				changed = true
				break
			}
		}
	}
	w.index = freshMap
	callback := w.callback
	w.mu.Unlock()

	if changed && callback != nil {
		callback(fresh)
	}
}

// Scan builds the snapshot index for a directory without watching it.
func Scan(dir string) ([]SnapshotSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	index := make(map[string]SnapshotSet)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		prefix, token, ok := splitDocumentName(entry.Name())
		if !ok {
			continue
		}
		set := index[token]
		set.Token = token
		switch prefix {
		case "movements":
			set.HasMovements = true
		case "clicks":
			set.HasClicks = true
		case "scrolls":
			set.HasScrolls = true
		case "hover":
			set.HasHover = true
		case "stats":
			set.HasStats = true
		}
		index[token] = set
	}

	sets := make([]SnapshotSet, 0, len(index))
	for _, s := range index {
		sets = append(sets, s)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Token > sets[j].Token })
	return sets, nil
}

// splitDocumentName parses "<prefix>_<token>.json" for a known prefix.
func splitDocumentName(name string) (prefix, token string, ok bool) {
	if !strings.HasSuffix(name, ".json") {
		return "", "", false
	}
	base := strings.TrimSuffix(name, ".json")
	for _, p := range documentPrefixes {
		if strings.HasPrefix(base, p+"_") {
			return p, strings.TrimPrefix(base, p+"_"), true
		}
	}
	return "", "", false
}

// Shutdown stops the watcher.
func (w *Watcher) Shutdown() {
	w.mu.Lock()
	fsW := w.fsWatcher
	cancel := w.cancel
	w.fsWatcher = nil
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		close(cancel)
	}
	if fsW != nil {
		fsW.Close()
	}
}
