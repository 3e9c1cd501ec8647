// Package incremental implements the Incremental Indexer: an Index kept in
// sync with a workspace's source tree by hashing files, asking an analyzer
// for resolved units, and applying the resulting documents one at a time.
package incremental

import "time"

// EventKind enumerates the shapes an Incremental Indexer broadcasts on its
// update stream.
type EventKind string

const (
	EventInitialBuild     EventKind = "initial-build"
	EventCachedLoad       EventKind = "cached-load"
	EventIncrementalBuild EventKind = "incremental-build"
	EventFileUpdated      EventKind = "file-updated"
	EventFileRemoved      EventKind = "file-removed"
	EventIndexError       EventKind = "index-error"
)

// Stats summarizes one build pass.
type Stats struct {
	Added     int
	Changed   int
	Removed   int
	Unchanged int
	Duration  time.Duration
}

// Event is one message on the Indexer's update stream.
type Event struct {
	Kind          EventKind
	Stats         Stats
	CheckedFiles  int
	Path          string
	SymbolCount   int
	Message       string
}

// FileChangeKind classifies a filesystem event as seen by the indexer. A
// move arrives as FileDeleted for the old path plus a change for the new
// path (the watch command maps the watcher's EventRename to FileModified).
type FileChangeKind string

const (
	FileCreated  FileChangeKind = "created"
	FileModified FileChangeKind = "modified"
	FileDeleted  FileChangeKind = "deleted"
)

// FileChange is one filesystem notification the Indexer reacts to.
type FileChange struct {
	Path string
	Kind FileChangeKind
}

// FileOutcome reports what IndexOneFile did for a single path.
type FileOutcome string

const (
	OutcomeUnchanged FileOutcome = "unchanged"
	OutcomeUpdated   FileOutcome = "updated"
	OutcomeSkipped   FileOutcome = "skipped" // analyzer had no ResolvedUnit for this path
	OutcomeErrored   FileOutcome = "errored"
)
