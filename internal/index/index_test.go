package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defOcc(symbolID string, start, end int) *Occurrence {
	return &Occurrence{
		SymbolID:         symbolID,
		StartLine:        start,
		EndLine:          start,
		EnclosingEndLine: end,
		HasEnclosing:     true,
		RoleMask:         RoleDefinition,
	}
}

func refOcc(symbolID string, line int) *Occurrence {
	return &Occurrence{SymbolID: symbolID, StartLine: line, EndLine: line}
}

func TestUpdateDocumentIsIdempotent(t *testing.T) {
	ix := New(&Metadata{ProjectRoot: "file:///repo"})
	doc := &Document{
		RelativePath: "pkg/widget.go",
		Symbols: []*SymbolInformation{
			{ID: "scip-go gomod pkg 1.0 Widget#", Kind: KindClass, DisplayName: "Widget"},
		},
		Occurrences: []*Occurrence{
			defOcc("scip-go gomod pkg 1.0 Widget#", 1, 10),
		},
	}
	ix.UpdateDocument(doc)
	before := len(ix.AllSymbols())

	ix.UpdateDocument(doc)
	after := len(ix.AllSymbols())

	assert.Equal(t, before, after, "re-indexing the same document must not duplicate symbols")
	assert.NotNil(t, ix.GetDocument("pkg/widget.go"))
}

func TestMembersOfReflectsParentID(t *testing.T) {
	ix := New(&Metadata{})
	parent := "scip-go gomod pkg 1.0 Widget#"
	child := "scip-go gomod pkg 1.0 Widget#build()."
	doc := &Document{
		RelativePath: "pkg/widget.go",
		Symbols: []*SymbolInformation{
			{ID: parent, Kind: KindClass, DisplayName: "Widget"},
			{ID: child, Kind: KindMethod, DisplayName: "build"},
		},
		Occurrences: []*Occurrence{
			defOcc(parent, 1, 20),
			defOcc(child, 5, 8),
		},
	}
	ix.UpdateDocument(doc)

	members := ix.MembersOf(parent)
	require.Len(t, members, 1)
	assert.Equal(t, child, members[0].ID)
}

func TestCallGraphCreditsInnermostDefinition(t *testing.T) {
	ix := New(&Metadata{})
	outer := "pkg Outer#run()."
	inner := "pkg Outer#run().helper"
	callee := "pkg Other#do()."

	doc := &Document{
		RelativePath: "pkg/outer.go",
		Occurrences: []*Occurrence{
			defOcc(outer, 1, 30),
			defOcc(inner, 10, 15), // nested closure inside run()
			refOcc(callee, 12),    // call happens inside the nested closure
		},
	}
	ix.UpdateDocument(doc)

	assert.Contains(t, ix.GetCalls(inner), callee, "call inside nested def must be credited to the inner def")
	assert.NotContains(t, ix.GetCalls(outer), callee, "call must not also be credited to the outer def")
	assert.Contains(t, ix.GetCallers(callee), inner)
}

func TestFindSymbolsContainment(t *testing.T) {
	ix := New(&Metadata{})
	doc := &Document{
		RelativePath: "pkg/a.go",
		Symbols: []*SymbolInformation{
			{ID: "pkg Widget#", DisplayName: "Widget"},
			{ID: "pkg WidgetFactory#", DisplayName: "WidgetFactory"},
			{ID: "pkg Gadget#", DisplayName: "Gadget"},
		},
	}
	ix.UpdateDocument(doc)

	got, err := ix.FindSymbols("Widget*")
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, s := range got {
		names[i] = s.DisplayName
	}
	assert.ElementsMatch(t, []string{"Widget", "WidgetFactory"}, names)
}

func TestFindReferencesAndDefinitionAreDisjoint(t *testing.T) {
	ix := New(&Metadata{})
	sym := "pkg Widget#"
	doc := &Document{
		RelativePath: "pkg/a.go",
		Symbols:      []*SymbolInformation{{ID: sym, DisplayName: "Widget"}},
		Occurrences: []*Occurrence{
			defOcc(sym, 1, 5),
			refOcc(sym, 12),
			refOcc(sym, 20),
		},
	}
	ix.UpdateDocument(doc)

	def := ix.FindDefinition(sym)
	require.NotNil(t, def)
	assert.True(t, def.IsDefinition())

	refs := ix.FindReferences(sym)
	assert.Len(t, refs, 2)
	for _, r := range refs {
		assert.False(t, r.IsDefinition())
	}
}

func TestRemoveDocumentPurgesEverything(t *testing.T) {
	ix := New(&Metadata{})
	caller := "pkg Widget#run()."
	callee := "pkg Other#do()."
	doc := &Document{
		RelativePath: "pkg/a.go",
		Symbols: []*SymbolInformation{
			{ID: caller, DisplayName: "run"},
		},
		Occurrences: []*Occurrence{
			defOcc(caller, 1, 10),
			refOcc(callee, 5),
		},
	}
	ix.UpdateDocument(doc)
	require.NotEmpty(t, ix.GetCalls(caller))

	ix.RemoveDocument("pkg/a.go")

	assert.Nil(t, ix.GetDocument("pkg/a.go"))
	assert.Nil(t, ix.GetSymbol(caller))
	assert.Empty(t, ix.GetCalls(caller))
	assert.Empty(t, ix.Occurrences(caller))
}

func TestParentIDDescriptorTruncation(t *testing.T) {
	cases := map[string]string{
		"pkg Widget#":              "",
		"pkg Widget#build().":      "pkg Widget#",
		"pkg Widget#name.":         "pkg Widget#",
		"pkg Widget#[T]":           "pkg Widget#",
	}
	for id, want := range cases {
		assert.Equal(t, want, ParentID(id), "ParentID(%q)", id)
	}
}
