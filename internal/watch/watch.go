// Package watch keeps drift tracking correct for edits made outside the
// editor integration: it monitors tracked source files with fsnotify,
// re-reads a file when it changes on disk, and derives a single edit event
// by diffing against the last-seen content.
package watch

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/redlinehq/coverlay/internal/drift"
)

// FileChange reports one drift-relevant change to a watched file.
type FileChange struct {
	Path    string
	Edit    drift.Edit
	Changed bool // whether the tracker shifted or dropped any line
}

// Watcher monitors tracked files and feeds content diffs to the tracker.
type Watcher struct {
	Tracker *drift.Tracker
	Changes <-chan FileChange // Read-only external channel

	changes  chan FileChange // Internal write channel
	done     chan struct{}
	watcher  *fsnotify.Watcher
	contents map[string]string // last-seen content per path
}

// NewWatcher creates a watcher that applies file changes to tr. The initial
// content of each watched file is captured at Add time.
func NewWatcher(tr *drift.Tracker) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan FileChange, 16)
	w := &Watcher{
		Tracker:  tr,
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
		contents: make(map[string]string),
	}
	return w, nil
}

// Add registers a file for watching and snapshots its current content as
// the diff baseline. fsnotify watches the parent directory because many
// editors replace files on save rather than writing in place.
func (w *Watcher) Add(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	w.contents[path] = string(data)
	return w.watcher.Add(filepath.Dir(path))
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop closes the watcher and channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per file.
	const debounce = 100 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				// Drain pending on close.
				for file := range pending {
					w.emitChange(file)
				}
				return
			}

			if _, watched := w.contents[event.Name]; !watched {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					w.emitChange(file)
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Ignore watch errors; they're non-fatal.
		}
	}
}

// emitChange re-reads the file, derives the edit from the content diff,
// applies it to the tracker, and publishes the outcome.
func (w *Watcher) emitChange(file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		// File may have been removed; keep the old baseline and wait for
		// it to reappear.
		return
	}
	newContent := string(data)
	edit, ok := DiffEdit(w.contents[file], newContent)
	w.contents[file] = newContent
	if !ok {
		return
	}

	changed := w.Tracker.ApplyEdit(file, edit)
	w.changes <- FileChange{Path: file, Edit: edit, Changed: changed}
}
