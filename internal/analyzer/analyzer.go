// Package analyzer defines the capability-set contract between the
// Incremental Indexer and whatever turns source text into resolved symbol
// tables. The indexer itself never parses source; it only ever talks to
// this interface, so the production tree-sitter-backed analyzer
// (internal/analyzer/golang) and the test fixture analyzer
// (internal/testutil/tsfixture) are interchangeable.
package analyzer

import "symbex/internal/index"

// ResolvedUnit is the opaque result of resolving a single source file: its
// content hash (for the external-adapter fallback when no file exists on
// disk) and a path identifying it to the Visitor.
type ResolvedUnit struct {
	Path        string
	ContentHash string

	// Payload carries whatever analyzer-specific representation Visit needs
	// to walk; its shape is a contract between one Analyzer implementation
	// and its paired Visitor, not something the indexer inspects.
	Payload interface{}
}

// Visitor turns a ResolvedUnit into a Document ready for Index.UpdateDocument.
type Visitor interface {
	Visit(unit *ResolvedUnit) (*index.Document, error)
}

// Analyzer is the capability set an Incremental Indexer depends on:
// projectRoot identifies the root the analyzer was constructed against;
// GetResolvedUnit resolves one file, returning nil if the analyzer has
// nothing to say about it (e.g. unsupported extension); NotifyFileChange
// lets an analyzer that caches parse state invalidate it ahead of a re-read.
type Analyzer interface {
	ProjectRoot() string
	GetResolvedUnit(path string) (*ResolvedUnit, error)
	NotifyFileChange(path string)
}

// SourceLister is an optional capability: an analyzer that already knows
// its own file set (e.g. because it drives a build graph) can supply it
// directly instead of the indexer falling back to a directory walk.
type SourceLister interface {
	ListSourceFiles() ([]string, error)
}

// EventStreamer is an optional capability: an adapter fronting an
// out-of-process analyzer that watches files itself can push change events
// instead of the indexer owning a filesystem watcher.
type EventStreamer interface {
	FileChanges() <-chan string
}

// Adapter is the external-adapter variant of Analyzer: in addition to the
// base capability set, it supplies resolved units keyed by a package
// manifest the caller already parsed, for indexing a dependency that has no
// corresponding on-disk workspace of its own.
type Adapter interface {
	Analyzer
	ResolveForPackage(manifestPath string) (*ResolvedUnit, error)
}
