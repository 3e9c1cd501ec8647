package index

import "strings"

// FindReferences returns every non-definition occurrence of symbolID.
func (ix *Index) FindReferences(symbolID string) []*Occurrence {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*Occurrence
	for _, occ := range ix.occurrenceIdx[symbolID] {
		if !occ.IsDefinition() {
			out = append(out, occ)
		}
	}
	return out
}

// FindDefinition returns the single defining occurrence of symbolID, or nil
// if the symbol is known only by reference (e.g. an external/imported
// symbol with no local definition).
func (ix *Index) FindDefinition(symbolID string) *Occurrence {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, occ := range ix.occurrenceIdx[symbolID] {
		if occ.IsDefinition() {
			return occ
		}
	}
	return nil
}

// FindQualified resolves a dotted qualified name (package.Type.member) by
// walking the child_index from the best-matching root symbol down through
// each dotted segment, returning the final segment's SymbolInformation.
func (ix *Index) FindQualified(qualified string) *SymbolInformation {
	segments := strings.Split(qualified, ".")
	if len(segments) == 0 {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	candidates := ix.symbolsNamedLocked(segments[0])
	for _, seg := range segments[1:] {
		var next []*SymbolInformation
		for _, c := range candidates {
			for _, childID := range ix.childIndex[c.ID] {
				if child := ix.symbolIndex[childID]; child != nil && ExtractName(child) == seg {
					next = append(next, child)
				}
			}
		}
		candidates = next
		if len(candidates) == 0 {
			return nil
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

func (ix *Index) symbolsNamedLocked(name string) []*SymbolInformation {
	var out []*SymbolInformation
	for _, sym := range ix.symbolIndex {
		if ExtractName(sym) == name {
			out = append(out, sym)
		}
	}
	return out
}

// Supertypes returns the symbols that symbolID's relationships mark as
// implemented interfaces or base types (IsImplementation || IsTypeDefinition).
func (ix *Index) Supertypes(symbolID string) []*SymbolInformation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	sym := ix.symbolIndex[symbolID]
	if sym == nil {
		return nil
	}
	var out []*SymbolInformation
	for _, rel := range sym.Relationships {
		if rel.IsImplementation || rel.IsTypeDefinition {
			if target := ix.symbolIndex[rel.TargetID]; target != nil {
				out = append(out, target)
			}
		}
	}
	return out
}

// Subtypes returns every symbol whose relationships point back at symbolID
// as an implemented interface or base type — the inverse of Supertypes.
func (ix *Index) Subtypes(symbolID string) []*SymbolInformation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*SymbolInformation
	for _, sym := range ix.symbolIndex {
		for _, rel := range sym.Relationships {
			if (rel.IsImplementation || rel.IsTypeDefinition) && rel.TargetID == symbolID {
				out = append(out, sym)
				break
			}
		}
	}
	return out
}

// Implementations returns symbols whose relationships reference symbolID
// with IsImplementation set — used for the DSL's `impls` action, distinct
// from Subtypes in that it excludes plain type-definition edges.
func (ix *Index) Implementations(symbolID string) []*SymbolInformation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*SymbolInformation
	for _, sym := range ix.symbolIndex {
		for _, rel := range sym.Relationships {
			if rel.IsImplementation && rel.TargetID == symbolID {
				out = append(out, sym)
				break
			}
		}
	}
	return out
}
