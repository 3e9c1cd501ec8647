// Package registry federates a local workspace index together with
// pre-built external indexes (SDK, framework, hosted, and git dependency
// tiers) behind the same lookup surface internal/index.Index exposes for a
// single package. Adapted from the teacher's internal/federation package:
// its cross-repo governance schema (federated_ownership, federated_hotspots,
// federated_decisions, contracts, proto_imports) is dropped entirely — none
// of it is index federation, all of it is code-review analytics outside this
// project's scope — and OpenIndex/UpsertRepo's on-disk-registration idiom is
// replaced by the local/sdk/framework/hosted/git tier maps described below.
package registry

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"symbex/internal/incremental"
	"symbex/internal/index"
	"symbex/internal/logging"
)

// Scope controls how far FindSymbols fans out.
type Scope int

const (
	// ScopeProject searches only the local workspace package.
	ScopeProject Scope = iota
	// ScopeProjectAndLoaded searches the local package plus every loaded
	// external tier, in AllIndexes order.
	ScopeProjectAndLoaded
)

// LocalPackage is a writable, watched workspace package.
type LocalPackage struct {
	Name    string
	Path    string
	Indexer *incremental.Indexer
	Idx     *index.Index
}

// ExternalPackage is a read-only pre-built index for an SDK, framework,
// hosted, or git dependency.
type ExternalPackage struct {
	Name       string
	Version    string
	SourceRoot string
	Idx        *index.Index
}

// Registry owns the local package plus every loaded external tier and
// fans out Index-shaped lookups across all of them.
type Registry struct {
	logger *logging.Logger

	mu        sync.RWMutex
	local     map[string]*LocalPackage
	sdk       *ExternalPackage
	framework map[string]*ExternalPackage
	hosted    map[string]*ExternalPackage
	git       map[string]*ExternalPackage
}

// New returns an empty Registry.
func New(logger *logging.Logger) *Registry {
	return &Registry{
		logger:    logger,
		local:     make(map[string]*LocalPackage),
		framework: make(map[string]*ExternalPackage),
		hosted:    make(map[string]*ExternalPackage),
		git:       make(map[string]*ExternalPackage),
	}
}

// AddLocal registers a local workspace package.
func (r *Registry) AddLocal(name string, pkg *LocalPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local[name] = pkg
	if r.logger != nil {
		r.logger.Info("registered local package", map[string]interface{}{"name": name, "path": pkg.Path})
	}
}

// SetSDK registers the single SDK tier package.
func (r *Registry) SetSDK(pkg *ExternalPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sdk = pkg
}

// AddFramework registers a framework-tier companion package under key
// (typically "<framework>-<version>").
func (r *Registry) AddFramework(key string, pkg *ExternalPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.framework[key] = pkg
}

// AddHosted registers a hosted-tier dependency under key ("name-version").
func (r *Registry) AddHosted(key string, pkg *ExternalPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosted[key] = pkg
}

// AddGit registers a git-tier dependency under key ("repo-commit").
func (r *Registry) AddGit(key string, pkg *ExternalPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.git[key] = pkg
}

// AllIndexes returns every loaded index in the canonical federation order:
// local first (sorted by name for determinism), then sdk, framework,
// hosted, git.
func (r *Registry) AllIndexes() []*index.Index {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*index.Index
	for _, name := range sortedKeysLocal(r.local) {
		out = append(out, r.local[name].Idx)
	}
	if r.sdk != nil {
		out = append(out, r.sdk.Idx)
	}
	for _, key := range sortedKeysExternal(r.framework) {
		out = append(out, r.framework[key].Idx)
	}
	for _, key := range sortedKeysExternal(r.hosted) {
		out = append(out, r.hosted[key].Idx)
	}
	for _, key := range sortedKeysExternal(r.git) {
		out = append(out, r.git[key].Idx)
	}
	return out
}

func sortedKeysLocal(m map[string]*LocalPackage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysExternal(m map[string]*ExternalPackage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetSymbol returns the first hit across AllIndexes, in iteration order.
func (r *Registry) GetSymbol(id string) *index.SymbolInformation {
	for _, ix := range r.AllIndexes() {
		if sym := ix.GetSymbol(id); sym != nil {
			return sym
		}
	}
	return nil
}

// FindOwningIndex returns the first index that defines id.
func (r *Registry) FindOwningIndex(id string) *index.Index {
	for _, ix := range r.AllIndexes() {
		if ix.GetSymbol(id) != nil {
			return ix
		}
	}
	return nil
}

// ResolveFilePath composes the owning index's source root with the
// symbol's defining file, returning ok=false if the symbol is unknown or
// has no defining file (e.g. an external, declaration-only symbol).
func (r *Registry) ResolveFilePath(id string) (path string, ok bool) {
	sym := r.GetSymbol(id)
	if sym == nil || sym.DefiningFile == "" {
		return "", false
	}
	owning := r.FindOwningIndex(id)
	if owning == nil {
		return "", false
	}
	root := sourceRootOf(owning)
	return filepath.Join(root, sym.DefiningFile), true
}

func sourceRootOf(ix *index.Index) string {
	meta := ix.Metadata()
	if meta == nil {
		return ""
	}
	return strings.TrimPrefix(meta.ProjectRoot, "file://")
}

// FindDefinition returns the first definition occurrence across all
// loaded indexes.
func (r *Registry) FindDefinition(id string) *index.Occurrence {
	for _, ix := range r.AllIndexes() {
		if occ := ix.FindDefinition(id); occ != nil {
			return occ
		}
	}
	return nil
}

// FindAllReferences unions non-definition occurrences of id across every
// loaded index.
func (r *Registry) FindAllReferences(id string) []*index.Occurrence {
	var out []*index.Occurrence
	for _, ix := range r.AllIndexes() {
		out = append(out, ix.FindReferences(id)...)
	}
	return out
}

// FindAllReferencesByName joins across indexes by display name (optionally
// narrowed by kind) rather than by id, since an external package's SCIP ids
// for a conceptually identical symbol differ from the workspace's ids.
func (r *Registry) FindAllReferencesByName(name string, kind index.SymbolKind) []*index.Occurrence {
	var out []*index.Occurrence
	for _, ix := range r.AllIndexes() {
		for _, sym := range ix.FindByName(name) {
			if kind != "" && sym.Kind != kind {
				continue
			}
			out = append(out, ix.FindReferences(sym.ID)...)
		}
	}
	return out
}

// FindSymbols fans the pattern-dialect search out across Scope, deduplicating
// by symbol id.
func (r *Registry) FindSymbols(pattern string, scope Scope) ([]*index.SymbolInformation, error) {
	indexes := r.scopedIndexes(scope)

	seen := make(map[string]bool)
	var out []*index.SymbolInformation
	for _, ix := range indexes {
		matches, err := ix.FindSymbols(pattern)
		if err != nil {
			return nil, err
		}
		for _, sym := range matches {
			if seen[sym.ID] {
				continue
			}
			seen[sym.ID] = true
			out = append(out, sym)
		}
	}
	return out, nil
}

func (r *Registry) scopedIndexes(scope Scope) []*index.Index {
	if scope == ScopeProject {
		r.mu.RLock()
		defer r.mu.RUnlock()
		var out []*index.Index
		for _, name := range sortedKeysLocal(r.local) {
			out = append(out, r.local[name].Idx)
		}
		return out
	}
	return r.AllIndexes()
}

// FindQualified unions container.member lookups across all loaded indexes,
// deduplicating by id.
func (r *Registry) FindQualified(container, member string) []*index.SymbolInformation {
	seen := make(map[string]bool)
	var out []*index.SymbolInformation
	qualified := container + "." + member
	for _, ix := range r.AllIndexes() {
		if sym := ix.FindQualified(qualified); sym != nil && !seen[sym.ID] {
			seen[sym.ID] = true
			out = append(out, sym)
		}
	}
	return out
}

// GetCallers unions caller ids for symbolID across all loaded indexes.
func (r *Registry) GetCallers(symbolID string) []string {
	return unionStrings(r.AllIndexes(), func(ix *index.Index) []string { return ix.GetCallers(symbolID) })
}

// GetCalls unions callee ids for symbolID across all loaded indexes.
func (r *Registry) GetCalls(symbolID string) []string {
	return unionStrings(r.AllIndexes(), func(ix *index.Index) []string { return ix.GetCalls(symbolID) })
}

func unionStrings(indexes []*index.Index, fn func(*index.Index) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ix := range indexes {
		for _, s := range fn(ix) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// SupertypesOf unions supertype symbols for id across all loaded indexes.
func (r *Registry) SupertypesOf(id string) []*index.SymbolInformation {
	return unionSymbols(r.AllIndexes(), func(ix *index.Index) []*index.SymbolInformation { return ix.Supertypes(id) })
}

// SubtypesOf unions subtype symbols for id across all loaded indexes.
func (r *Registry) SubtypesOf(id string) []*index.SymbolInformation {
	return unionSymbols(r.AllIndexes(), func(ix *index.Index) []*index.SymbolInformation { return ix.Subtypes(id) })
}

func unionSymbols(indexes []*index.Index, fn func(*index.Index) []*index.SymbolInformation) []*index.SymbolInformation {
	seen := make(map[string]bool)
	var out []*index.SymbolInformation
	for _, ix := range indexes {
		for _, sym := range fn(ix) {
			if !seen[sym.ID] {
				seen[sym.ID] = true
				out = append(out, sym)
			}
		}
	}
	return out
}

// ImplementationsOf unions implementation symbols for id across all loaded
// indexes.
func (r *Registry) ImplementationsOf(id string) []*index.SymbolInformation {
	return unionSymbols(r.AllIndexes(), func(ix *index.Index) []*index.SymbolInformation { return ix.Implementations(id) })
}

// MembersOf short-circuits at the first index with a non-empty member list.
func (r *Registry) MembersOf(id string) []*index.SymbolInformation {
	for _, ix := range r.AllIndexes() {
		if members := ix.MembersOf(id); len(members) > 0 {
			return members
		}
	}
	return nil
}

// Grep visits each unique source root at most once, passing opts through to
// internal/index.Index.Grep. External indexes are only visited when
// includeExternal is set.
func (r *Registry) Grep(opts index.GrepOptions, includeExternal bool) ([]index.GrepMatch, error) {
	var targets []*index.Index
	r.mu.RLock()
	for _, name := range sortedKeysLocal(r.local) {
		targets = append(targets, r.local[name].Idx)
	}
	r.mu.RUnlock()
	if includeExternal {
		r.mu.RLock()
		if r.sdk != nil {
			targets = append(targets, r.sdk.Idx)
		}
		for _, key := range sortedKeysExternal(r.framework) {
			targets = append(targets, r.framework[key].Idx)
		}
		for _, key := range sortedKeysExternal(r.hosted) {
			targets = append(targets, r.hosted[key].Idx)
		}
		for _, key := range sortedKeysExternal(r.git) {
			targets = append(targets, r.git[key].Idx)
		}
		r.mu.RUnlock()
	}

	seenRoots := make(map[string]bool)
	var out []index.GrepMatch
	for _, ix := range targets {
		root := sourceRootOf(ix)
		if seenRoots[root] {
			continue
		}
		seenRoots[root] = true
		matches, err := ix.Grep(root, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

// FindPackageForPath returns the local package whose Path is the longest
// matching prefix of path, or nil.
func (r *Registry) FindPackageForPath(path string) *LocalPackage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *LocalPackage
	bestLen := -1
	clean := filepath.Clean(path)
	for _, pkg := range r.local {
		rel, err := filepath.Rel(pkg.Path, clean)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(pkg.Path) > bestLen {
			best = pkg
			bestLen = len(pkg.Path)
		}
	}
	return best
}

// Dispose closes every local package's indexer. External tiers hold no
// resources beyond their in-memory index.
func (r *Registry) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, pkg := range r.local {
		if pkg.Indexer == nil {
			continue
		}
		pkg.Indexer.Close()
	}
	r.local = make(map[string]*LocalPackage)
	r.sdk = nil
	r.framework = make(map[string]*ExternalPackage)
	r.hosted = make(map[string]*ExternalPackage)
	r.git = make(map[string]*ExternalPackage)
	return firstErr
}

