package index

import "sort"

// definitionRange is a defining occurrence's line span within a document:
// the construct starts at StartLine and its body runs through
// EnclosingEndLine. Non-definition occurrences falling within a range are
// credited to the innermost (smallest-spanning) enclosing definition.
type definitionRange struct {
	symbolID  string
	startLine int
	endLine   int
}

// buildCallGraphLocked derives calls_index/callers_index edges for a single
// document using a two-pass scan. Pass 1 collects every definition's line
// range; pass 2 walks every non-definition occurrence and attributes it to
// the innermost enclosing definition found in pass 1.
//
// The definitions are explicitly sorted by (start_line asc, enclosing_end_line
// asc) before the scan. A first-match-wins scan over an unsorted or
// insertion-ordered slice of definitions is only accidentally correct: two
// nested definitions can appear in either order in doc.Symbols/Occurrences,
// and without the explicit sort a first-match scan can credit an occurrence
// to an outer function instead of the inner one that actually contains it.
// Sorting by start line (and, as a tiebreaker, by the narrower end line)
// guarantees that when iterating occurrences in document order, the most
// recently opened and not-yet-closed definition is always the innermost one.
func (ix *Index) buildCallGraphLocked(doc *Document) {
	var ranges []definitionRange
	for _, occ := range doc.Occurrences {
		if !occ.HasEnclosing || !occ.IsDefinition() {
			continue
		}
		ranges = append(ranges, definitionRange{
			symbolID:  occ.SymbolID,
			startLine: occ.StartLine,
			endLine:   occ.EnclosingEndLine,
		})
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].startLine != ranges[j].startLine {
			return ranges[i].startLine < ranges[j].startLine
		}
		return ranges[i].endLine < ranges[j].endLine
	})

	var edges []callEdge
	for _, occ := range doc.Occurrences {
		if occ.IsDefinition() {
			continue
		}
		enclosing := innermostEnclosing(ranges, occ.StartLine)
		if enclosing == "" || enclosing == occ.SymbolID {
			continue
		}
		edges = append(edges, callEdge{caller: enclosing, callee: occ.SymbolID})
	}

	for _, e := range edges {
		ix.callsIndex[e.caller] = appendUnique(ix.callsIndex[e.caller], e.callee)
		ix.callersIndex[e.callee] = appendUnique(ix.callersIndex[e.callee], e.caller)
	}
	if len(edges) > 0 {
		ix.docCallEdges[doc.RelativePath] = edges
	}
}

// innermostEnclosing returns the symbol id of the definition range that
// both contains line and has the smallest span, given ranges sorted by
// (startLine asc, endLine asc). A linear scan keeping the best-so-far match
// is sufficient: because of the sort order, later ranges that still contain
// line are never wider than earlier ones once start <= line is established,
// except when a later range starts later but is still nested — so every
// containing range is checked and the narrowest wins.
func innermostEnclosing(ranges []definitionRange, line int) string {
	best := ""
	bestSpan := -1
	for _, r := range ranges {
		if r.startLine > line {
			break
		}
		if r.endLine < line {
			continue
		}
		span := r.endLine - r.startLine
		if bestSpan == -1 || span < bestSpan {
			best = r.symbolID
			bestSpan = span
		}
	}
	return best
}

func appendUnique(ss []string, s string) []string {
	for _, existing := range ss {
		if existing == s {
			return ss
		}
	}
	return append(ss, s)
}

// removeCallGraphLocked undoes every call edge that buildCallGraphLocked
// previously attributed to relativePath.
func (ix *Index) removeCallGraphLocked(relativePath string) {
	edges, ok := ix.docCallEdges[relativePath]
	if !ok {
		return
	}
	delete(ix.docCallEdges, relativePath)
	for _, e := range edges {
		ix.callsIndex[e.caller] = removeString(ix.callsIndex[e.caller], e.callee)
		ix.callersIndex[e.callee] = removeString(ix.callersIndex[e.callee], e.caller)
	}
}

// GetCalls returns the symbol ids that symbolID's body invokes.
func (ix *Index) GetCalls(symbolID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.callsIndex[symbolID]...)
}

// GetCallers returns the symbol ids whose bodies invoke symbolID.
func (ix *Index) GetCallers(symbolID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.callersIndex[symbolID]...)
}
