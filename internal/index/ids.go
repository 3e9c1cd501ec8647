package index

import "regexp"

// trailingIdentifier matches the last maximal identifier before a descriptor
// boundary (. # ( ) [ ]) at the end of a symbol id — spec §4.1 "Name
// extraction". Grounded on the fallback-name logic in the teacher's
// internal/backends/scip/ids.go (GetSimpleName), generalized to the exact
// regex spec.md names.
var trailingIdentifier = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)[.#()\[\]]*$`)

// ExtractName returns a human-readable name for a symbol. When
// sym.DisplayName is non-empty it is used verbatim; otherwise the trailing
// identifier is extracted from the opaque id.
func ExtractName(sym *SymbolInformation) string {
	if sym.DisplayName != "" {
		return sym.DisplayName
	}
	return NameFromID(sym.ID)
}

// NameFromID extracts the trailing identifier from an opaque symbol id.
func NameFromID(id string) string {
	m := trailingIdentifier.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	return m[1]
}

// ParentID returns the symbol id of the lexical parent of id, derived by
// descriptor truncation, or "" if id has no parent (top-level symbol).
//
// A SCIP symbol id's descriptor path is the suffix after the package
// version, a `/`-and-descriptor-separated chain (e.g.
// "scip-dart pub pkg 1.0 lib/Widget#build()."). The parent is obtained by
// dropping the rightmost descriptor segment.
func ParentID(id string) string {
	// Find the last descriptor boundary and strip it; if what remains still
	// ends in a descriptor boundary, that's the parent id.
	trimmed := stripLastDescriptor(id)
	if trimmed == "" || trimmed == id {
		return ""
	}
	if !endsInDescriptor(trimmed) {
		return ""
	}
	return trimmed
}

func endsInDescriptor(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '#', '.', ']':
		return true
	}
	return false
}

// stripLastDescriptor removes the rightmost descriptor segment (a run of
// identifier-or-bracket characters terminated by one of the descriptor
// boundary markers) from id.
func stripLastDescriptor(id string) string {
	if !endsInDescriptor(id) {
		return id
	}
	i := len(id) - 1
	// Consume the boundary marker itself.
	switch id[i] {
	case ']':
		depth := 0
		for i >= 0 {
			switch id[i] {
			case ']':
				depth++
			case '[':
				depth--
			}
			i--
			if depth == 0 {
				break
			}
		}
	case '#', '.':
		i--
		// A method descriptor ends in "().": also consume the parens.
		if i >= 1 && id[i] == ')' && id[i-1] == '(' {
			i -= 2
		}
	}
	// Consume the identifier preceding the boundary.
	for i >= 0 && isIdentChar(id[i]) {
		i--
	}
	return id[:i+1]
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
