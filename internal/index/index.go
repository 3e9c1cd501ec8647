package index

import (
	"sort"
	"sync"
)

// Index is the in-memory symbol/occurrence store for one workspace or
// external package. All derived tables (symbol_index, occurrence_index,
// document_index, child_index, calls_index, callers_index) are kept
// consistent on every UpdateDocument/RemoveDocument call; readers never
// observe a partially-updated state because each update prepares a full new
// slot for the affected document and swaps it in under the write lock
// (Design Note 9, option b).
type Index struct {
	mu sync.RWMutex

	meta *Metadata

	symbolIndex    map[string]*SymbolInformation
	occurrenceIdx  map[string][]*Occurrence // symbol id -> occurrences across all documents
	documentIndex  map[string]*Document     // relative path -> document
	childIndex     map[string][]string      // parent symbol id -> child symbol ids
	callsIndex     map[string][]string      // caller symbol id -> callee symbol ids
	callersIndex   map[string][]string      // callee symbol id -> caller symbol ids
	docCallEdges   map[string][]callEdge    // relative path -> edges contributed by that document
}

type callEdge struct {
	caller, callee string
}

// New returns an empty Index.
func New(meta *Metadata) *Index {
	return &Index{
		meta:          meta,
		symbolIndex:   make(map[string]*SymbolInformation),
		occurrenceIdx: make(map[string][]*Occurrence),
		documentIndex: make(map[string]*Document),
		childIndex:    make(map[string][]string),
		callsIndex:    make(map[string][]string),
		callersIndex:  make(map[string][]string),
		docCallEdges:  make(map[string][]callEdge),
	}
}

// Metadata returns the index's header record.
func (ix *Index) Metadata() *Metadata {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.meta
}

// Documents returns a snapshot slice of all documents currently indexed.
func (ix *Index) Documents() []*Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*Document, 0, len(ix.documentIndex))
	for _, d := range ix.documentIndex {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// UpdateDocument (re)indexes a single document. If a document already exists
// at doc.RelativePath, all of its prior symbols/occurrences/call edges are
// purged first, so the document is always replaced atomically from the
// caller's perspective.
func (ix *Index) UpdateDocument(doc *Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeDocumentLocked(doc.RelativePath)
	ix.documentIndex[doc.RelativePath] = doc

	for _, sym := range doc.Symbols {
		ix.symbolIndex[sym.ID] = sym
		if parent := ParentID(sym.ID); parent != "" {
			ix.childIndex[parent] = append(ix.childIndex[parent], sym.ID)
		}
	}
	for _, occ := range doc.Occurrences {
		ix.occurrenceIdx[occ.SymbolID] = append(ix.occurrenceIdx[occ.SymbolID], occ)
	}
	ix.buildCallGraphLocked(doc)
}

// RemoveDocument purges a document and every symbol/occurrence/call edge
// that originated from it.
func (ix *Index) RemoveDocument(relativePath string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeDocumentLocked(relativePath)
}

func (ix *Index) removeDocumentLocked(relativePath string) {
	old, ok := ix.documentIndex[relativePath]
	if !ok {
		return
	}
	delete(ix.documentIndex, relativePath)

	for _, sym := range old.Symbols {
		if ix.symbolIndex[sym.ID] == sym {
			delete(ix.symbolIndex, sym.ID)
		}
		if parent := ParentID(sym.ID); parent != "" {
			ix.childIndex[parent] = removeString(ix.childIndex[parent], sym.ID)
		}
	}
	for _, occ := range old.Occurrences {
		ix.occurrenceIdx[occ.SymbolID] = removeOccurrence(ix.occurrenceIdx[occ.SymbolID], occ)
	}
	ix.removeCallGraphLocked(relativePath)
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func removeOccurrence(occs []*Occurrence, target *Occurrence) []*Occurrence {
	out := occs[:0]
	for _, o := range occs {
		if o != target {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// GetSymbol returns the SymbolInformation for id, or nil if unknown.
func (ix *Index) GetSymbol(id string) *SymbolInformation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.symbolIndex[id]
}

// GetDocument returns the Document at relativePath, or nil.
func (ix *Index) GetDocument(relativePath string) *Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.documentIndex[relativePath]
}

// MembersOf returns the direct children of parentID as recorded by the
// descriptor-truncation parent relation (ParentID), sorted by id for
// deterministic output.
func (ix *Index) MembersOf(parentID string) []*SymbolInformation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := append([]string(nil), ix.childIndex[parentID]...)
	sort.Strings(ids)
	out := make([]*SymbolInformation, 0, len(ids))
	for _, id := range ids {
		if sym := ix.symbolIndex[id]; sym != nil {
			out = append(out, sym)
		}
	}
	return out
}

// Occurrences returns every recorded occurrence of symbolID across all
// documents, in no particular cross-document order (callers sort if needed).
func (ix *Index) Occurrences(symbolID string) []*Occurrence {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*Occurrence(nil), ix.occurrenceIdx[symbolID]...)
}

// AllSymbols returns every symbol currently indexed, sorted by id.
func (ix *Index) AllSymbols() []*SymbolInformation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*SymbolInformation, 0, len(ix.symbolIndex))
	for _, s := range ix.symbolIndex {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
