package incremental

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"symbex/internal/analyzer"
	"symbex/internal/cache"
	"symbex/internal/discovery"
	"symbex/internal/errors"
	"symbex/internal/index"
)

const subscriberBufferSize = 64

// Indexer owns one Index plus the analyzer and cache that keep it in sync
// with a workspace's source tree. All Index mutations (UpdateDocument,
// RemoveDocument) are serialized through a single mutator goroutine (Design
// Note 9, option b); the file-hash table is guarded separately by mu and
// written from the calling goroutine. Readers of Idx go straight through its
// own sync.RWMutex rather than through the mutator, and two concurrent
// file-change notifications can never apply Index updates at the same time.
type Indexer struct {
	projectRoot string
	an          analyzer.Analyzer
	fs          afero.Fs
	cache       *cache.Cache

	Idx *index.Index

	mu       sync.Mutex // protects hashes
	hashes   map[string]string
	commands chan func()
	done     chan struct{}

	subMu       sync.Mutex
	subscribers []chan Event
}

// NewIndexer constructs an Indexer. The analyzer and cache are not touched
// until Open runs.
func NewIndexer(projectRoot string, an analyzer.Analyzer, c *cache.Cache, fs afero.Fs) *Indexer {
	ix := &Indexer{
		projectRoot: filepath.Clean(projectRoot),
		an:          an,
		fs:          fs,
		cache:       c,
		hashes:      make(map[string]string),
		commands:    make(chan func(), 256),
		done:        make(chan struct{}),
	}
	go ix.run()
	return ix
}

func (ix *Indexer) run() {
	for {
		select {
		case cmd := <-ix.commands:
			cmd()
		case <-ix.done:
			return
		}
	}
}

// Close stops the mutator goroutine. Safe to call once.
func (ix *Indexer) Close() {
	close(ix.done)
}

// do runs fn on the mutator goroutine and blocks until it completes.
func (ix *Indexer) do(fn func()) {
	result := make(chan struct{})
	ix.commands <- func() {
		fn()
		close(result)
	}
	<-result
}

// Subscribe returns a channel of Events. The channel has a bounded buffer;
// if a subscriber falls behind, the oldest buffered event is dropped to make
// room rather than blocking the indexer.
func (ix *Indexer) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBufferSize)
	ix.subMu.Lock()
	ix.subscribers = append(ix.subscribers, ch)
	ix.subMu.Unlock()
	return ch
}

func (ix *Indexer) broadcast(e Event) {
	ix.subMu.Lock()
	defer ix.subMu.Unlock()
	for _, ch := range ix.subscribers {
		select {
		case ch <- e:
		default:
			// Drop the oldest queued event to make room, then retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// Open performs the full open sequence: load package manifest metadata,
// restore from cache if possible, enumerate source files, reindex whatever
// changed, and persist the cache. Watching is wired separately by the
// caller via HandleFileChange.
func (ix *Indexer) Open(ctx context.Context, manifestName string) (Stats, error) {
	start := time.Now()

	exists, err := afero.Exists(ix.fs, filepath.Join(ix.projectRoot, manifestName))
	if err != nil {
		return Stats{}, errors.Wrap(errors.IoFailure, "check package manifest", err)
	}
	if !exists {
		return Stats{}, errors.Wrap(errors.MissingPackageManifest, fmt.Sprintf("no %s under %s", manifestName, ix.projectRoot), nil)
	}

	files, err := ix.listSourceFiles()
	if err != nil {
		return Stats{}, err
	}

	restored := false
	var manifest *cache.Manifest
	if ix.cache != nil && ix.cache.HasValidCache() {
		docs, meta, m, err := ix.cache.Load()
		if err == nil {
			ix.Idx = index.New(meta)
			for _, d := range docs {
				ix.Idx.UpdateDocument(d)
			}
			manifest = m
			for path, h := range m.FileHashes {
				ix.hashes[path] = h
			}
			restored = true
		}
	}
	if ix.Idx == nil {
		ix.Idx = index.New(&index.Metadata{ProjectRoot: "file://" + ix.projectRoot})
	}

	stats := Stats{}
	if restored {
		currentHashes, err := cache.HashAll(ix.fs, ix.projectRoot, files)
		if err != nil {
			return Stats{}, errors.Wrap(errors.IoFailure, "hash source files", err)
		}
		diff := cache.DiffAgainst(manifest, currentHashes)
		for _, path := range diff.Removed {
			ix.do(func() { ix.Idx.RemoveDocument(path) })
			ix.broadcast(Event{Kind: EventFileRemoved, Path: path})
		}
		for _, path := range append(diff.Added, diff.Modified...) {
			outcome, err := ix.IndexOneFile(path)
			if err != nil {
				ix.broadcast(Event{Kind: EventIndexError, Path: path, Message: err.Error()})
				continue
			}
			if outcome == OutcomeUpdated {
				stats.Changed++
			}
		}
		stats.Added = len(diff.Added)
		stats.Removed = len(diff.Removed)
		stats.Unchanged = len(diff.Unchanged)
		stats.Duration = time.Since(start)
		ix.broadcast(Event{Kind: EventCachedLoad, Stats: stats, CheckedFiles: len(files)})
	} else {
		for _, path := range files {
			if _, err := ix.IndexOneFile(path); err != nil {
				ix.broadcast(Event{Kind: EventIndexError, Path: path, Message: err.Error()})
				continue
			}
			stats.Added++
		}
		stats.Duration = time.Since(start)
		ix.broadcast(Event{Kind: EventInitialBuild, Stats: stats})
	}

	if err := ix.persistCache(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (ix *Indexer) listSourceFiles() ([]string, error) {
	if lister, ok := ix.an.(analyzer.SourceLister); ok {
		return lister.ListSourceFiles()
	}
	return discovery.WalkSourceFiles(ix.fs, ix.projectRoot)
}

// IndexOneFile hashes path, asks the analyzer for a ResolvedUnit, and —
// unless the hash is unchanged or the analyzer has nothing to say about the
// file — produces a Document and replaces the prior slot for path in Idx.
func (ix *Indexer) IndexOneFile(path string) (FileOutcome, error) {
	hash, err := cache.HashFile(ix.fs, filepath.Join(ix.projectRoot, path))
	if err != nil {
		return OutcomeErrored, errors.Wrap(errors.IoFailure, fmt.Sprintf("hash %s", path), err)
	}

	ix.mu.Lock()
	prior, known := ix.hashes[path]
	ix.mu.Unlock()
	if known && prior == hash {
		return OutcomeUnchanged, nil
	}

	unit, err := ix.an.GetResolvedUnit(path)
	if err != nil {
		ix.broadcast(Event{Kind: EventIndexError, Path: path, Message: err.Error()})
		return OutcomeErrored, errors.Wrap(errors.AnalyzerResolutionFailed, fmt.Sprintf("resolve %s", path), err)
	}
	if unit == nil {
		ix.mu.Lock()
		ix.hashes[path] = hash
		ix.mu.Unlock()
		return OutcomeSkipped, nil
	}

	visitor, ok := ix.an.(analyzer.Visitor)
	if !ok {
		return OutcomeErrored, errors.Wrap(errors.AnalyzerResolutionFailed, "analyzer does not implement Visitor", nil)
	}
	doc, err := visitor.Visit(unit)
	if err != nil {
		ix.broadcast(Event{Kind: EventIndexError, Path: path, Message: err.Error()})
		return OutcomeErrored, errors.Wrap(errors.AnalyzerResolutionFailed, fmt.Sprintf("visit %s", path), err)
	}

	ix.do(func() { ix.Idx.UpdateDocument(doc) })
	ix.mu.Lock()
	ix.hashes[path] = hash
	ix.mu.Unlock()
	ix.broadcast(Event{Kind: EventFileUpdated, Path: path, SymbolCount: len(doc.Symbols)})
	return OutcomeUpdated, nil
}

// HandleFileChange reacts to one filesystem notification. Create and
// Modify both re-run IndexOneFile after notifying the analyzer; Delete
// removes the document outright.
func (ix *Indexer) HandleFileChange(change FileChange) {
	switch change.Kind {
	case FileCreated, FileModified:
		ix.an.NotifyFileChange(change.Path)
		if _, err := ix.IndexOneFile(change.Path); err != nil {
			ix.broadcast(Event{Kind: EventIndexError, Path: change.Path, Message: err.Error()})
		}
	case FileDeleted:
		ix.do(func() { ix.Idx.RemoveDocument(change.Path) })
		ix.mu.Lock()
		delete(ix.hashes, change.Path)
		ix.mu.Unlock()
		ix.broadcast(Event{Kind: EventFileRemoved, Path: change.Path})
	}
	_ = ix.persistCache()
}

func (ix *Indexer) persistCache() error {
	if ix.cache == nil {
		return nil
	}
	ix.mu.Lock()
	hashesCopy := make(map[string]string, len(ix.hashes))
	for k, v := range ix.hashes {
		hashesCopy[k] = v
	}
	ix.mu.Unlock()

	var docs []*index.Document
	var meta *index.Metadata
	ix.do(func() {
		docs = ix.Idx.Documents()
		meta = ix.Idx.Metadata()
	})
	return ix.cache.Save(docs, meta, hashesCopy, meta.ProjectRoot, time.Now().UTC().Format(time.RFC3339))
}
