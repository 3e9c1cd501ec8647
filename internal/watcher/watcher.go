// Package watcher provides recursive filesystem watching for a workspace
// tree, translating fsnotify events into the Create/Modify/Delete/Rename
// shape the Incremental Indexer consumes.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"symbex/internal/discovery"
	"symbex/internal/logging"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	OldPath   string // set for EventRename
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called when changes are detected under repoPath.
type ChangeHandler func(repoPath string, events []Event)

// Config contains watcher configuration.
type Config struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounce_ms"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignore_patterns"`
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 300,
		IgnorePatterns: []string{
			"*.log",
			"*.tmp",
		},
	}
}

// Watcher recursively watches one or more workspace roots for filesystem
// changes, coalescing bursts of events behind a per-root debounce window and
// following a Delete/Rename with a paired Create by an extra EventRename.
type Watcher struct {
	config  Config
	logger  *logging.Logger
	handler ChangeHandler

	mu    sync.RWMutex
	roots map[string]*rootWatcher

	done chan struct{}
}

type rootWatcher struct {
	rootPath  string
	fsw       *fsnotify.Watcher
	debouncer *BatchDebouncer

	mu           sync.Mutex
	recentDelete map[string]Event // path -> Delete event awaiting a paired Create
}

// New creates a new Watcher.
func New(config Config, logger *logging.Logger, handler ChangeHandler) *Watcher {
	return &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		roots:   make(map[string]*rootWatcher),
		done:    make(chan struct{}),
	}
}

// Start is a no-op beyond logging; watching begins per-root via WatchRepo.
func (w *Watcher) Start() error {
	if !w.config.Enabled {
		w.logger.Info("File watcher is disabled", nil)
		return nil
	}
	w.logger.Info("Starting file watcher", map[string]interface{}{
		"debounceMs": w.config.DebounceMs,
	})
	return nil
}

// Stop tears down every watched root.
func (w *Watcher) Stop() error {
	w.logger.Info("Stopping file watcher", nil)
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, rw := range w.roots {
		rw.fsw.Close()
		delete(w.roots, path)
	}
	return nil
}

// WatchRepo begins recursively watching rootPath. Renamed from the
// teacher's git-centric name, kept for call-site familiarity; "repo" here
// means "workspace root", not specifically a git repository.
func (w *Watcher) WatchRepo(rootPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.roots[rootPath]; exists {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	rw := &rootWatcher{
		rootPath:     rootPath,
		fsw:          fsw,
		recentDelete: make(map[string]Event),
	}
	rw.debouncer = NewBatchDebouncer(time.Duration(w.config.DebounceMs)*time.Millisecond, func(events []Event) {
		rw.mu.Lock()
		rw.recentDelete = make(map[string]Event)
		rw.mu.Unlock()
		if w.handler != nil {
			w.handler(rootPath, events)
		}
	})

	if err := addRecursive(fsw, rootPath); err != nil {
		fsw.Close()
		return err
	}

	w.roots[rootPath] = rw
	go w.watchRoot(rw)

	w.logger.Info("Watching workspace root", map[string]interface{}{"path": rootPath})
	return nil
}

// UnwatchRepo stops watching rootPath.
func (w *Watcher) UnwatchRepo(rootPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if rw, exists := w.roots[rootPath]; exists {
		rw.fsw.Close()
		delete(w.roots, rootPath)
		w.logger.Info("Stopped watching workspace root", map[string]interface{}{"path": rootPath})
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && shouldIgnoreDir(rel) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func shouldIgnoreDir(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if discovery.IgnoredSegments[seg] {
			return true
		}
	}
	return false
}

// watchRoot drains fsw's event channel, translating fsnotify ops into
// Events. A Remove or Rename op is always queued as an EventDelete for the
// old path; a Create of a different path within the same debounce window is
// queued as an EventRename (with OldPath) instead of an EventCreate, so a
// move reaches the handler as Delete(old) plus Rename(new). Pending deletes
// are forgotten when the debouncer flushes.
func (w *Watcher) watchRoot(rw *rootWatcher) {
	for {
		select {
		case ev, ok := <-rw.fsw.Events:
			if !ok {
				return
			}
			w.translate(rw, ev)
		case err, ok := <-rw.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("filesystem watch error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (w *Watcher) translate(rw *rootWatcher, ev fsnotify.Event) {
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && ev.Op&fsnotify.Create != 0 {
		_ = rw.fsw.Add(ev.Name)
	}

	now := time.Now()
	switch {
	case ev.Op&fsnotify.Remove != 0:
		pending := Event{Type: EventDelete, Path: ev.Name, Timestamp: now}
		rw.mu.Lock()
		rw.recentDelete[ev.Name] = pending
		rw.mu.Unlock()
		rw.debouncer.Add(pending)

	case ev.Op&fsnotify.Create != 0:
		rw.mu.Lock()
		var rename *Event
		for oldPath, del := range rw.recentDelete {
			if oldPath != ev.Name {
				rename = &Event{Type: EventRename, Path: ev.Name, OldPath: oldPath, Timestamp: now}
				delete(rw.recentDelete, oldPath)
				_ = del
				break
			}
		}
		rw.mu.Unlock()
		if rename != nil {
			rw.debouncer.Add(*rename)
			return
		}
		rw.debouncer.Add(Event{Type: EventCreate, Path: ev.Name, Timestamp: now})

	case ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0:
		rw.debouncer.Add(Event{Type: EventModify, Path: ev.Name, Timestamp: now})

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports the source side of a rename as Op==Rename (no
		// Remove); treat it the same as a delete awaiting a paired Create.
		pending := Event{Type: EventDelete, Path: ev.Name, Timestamp: now}
		rw.mu.Lock()
		rw.recentDelete[ev.Name] = pending
		rw.mu.Unlock()
		rw.debouncer.Add(pending)
	}
}

// WatchedRepos returns the list of watched root paths.
func (w *Watcher) WatchedRepos() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	roots := make([]string, 0, len(w.roots))
	for path := range w.roots {
		roots = append(roots, path)
	}
	return roots
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return map[string]interface{}{
		"enabled":    w.config.Enabled,
		"watchedRoots": len(w.roots),
		"debounceMs": w.config.DebounceMs,
	}
}
