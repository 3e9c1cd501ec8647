package query

import (
	"os"
	"path/filepath"
	"testing"

	"symbex/internal/index"
	"symbex/internal/registry"
	"symbex/internal/testutil/tsfixture"
)

func buildExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	src := []byte("package lib\n\nfunc Build() {\n\tHelper()\n}\n\nfunc Helper() {}\n\nfunc unexported() {}\n")
	if err := os.WriteFile(filepath.Join(root, "widget.go"), src, 0644); err != nil {
		t.Fatalf("write fixture source: %v", err)
	}
	doc, err := tsfixture.BuildGoDocument("widget.go", src)
	if err != nil {
		t.Fatalf("BuildGoDocument error: %v", err)
	}
	doc.Language = "go"

	ix := index.New(&index.Metadata{ProjectRoot: "file://" + root})
	ix.UpdateDocument(doc)

	reg := registry.New(nil)
	reg.AddLocal("app", &registry.LocalPackage{Name: "app", Path: root, Idx: ix})
	return New(reg), root
}

func TestExecDefRanksAndCaps(t *testing.T) {
	e, _ := buildExecutor(t)
	res, err := e.Run("def Build")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Kind != KindOccurrences || len(res.Symbols) == 0 {
		t.Fatalf("expected a non-empty occurrences result, got %+v", res)
	}
	if index.ExtractName(res.Symbols[0]) != "Build" {
		t.Errorf("expected Build ranked first, got %s", index.ExtractName(res.Symbols[0]))
	}
}

func TestExecFindMatchesGlob(t *testing.T) {
	e, _ := buildExecutor(t)
	res, err := e.Run("find B*")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Kind != KindSymbols || len(res.Symbols) != 1 {
		t.Fatalf("expected exactly 1 glob match, got %+v", res)
	}
}

func TestExecSymbolsUnfilteredListsAll(t *testing.T) {
	e, _ := buildExecutor(t)
	res, err := e.Run("symbols")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Kind != KindSymbols || len(res.Symbols) != 3 {
		t.Fatalf("expected all 3 symbols, got %+v", res)
	}
}

func TestExecCallsAndCallers(t *testing.T) {
	e, _ := buildExecutor(t)

	calls, err := e.Run("calls Build")
	if err != nil {
		t.Fatalf("calls error: %v", err)
	}
	if calls.Kind != KindSymbols || len(calls.Symbols) != 1 || index.ExtractName(calls.Symbols[0]) != "Helper" {
		t.Fatalf("expected Build to call Helper, got %+v", calls)
	}

	callers, err := e.Run("callers Helper")
	if err != nil {
		t.Fatalf("callers error: %v", err)
	}
	if callers.Kind != KindSymbols || len(callers.Symbols) != 1 || index.ExtractName(callers.Symbols[0]) != "Build" {
		t.Fatalf("expected Helper's caller to be Build, got %+v", callers)
	}
}

func TestExecSourceReadsEnclosingRange(t *testing.T) {
	e, _ := buildExecutor(t)
	res, err := e.Run("source Build")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Kind != KindSource || res.Source == "" {
		t.Fatalf("expected non-empty source, got %+v", res)
	}
}

func TestExecSigDerivesFromSource(t *testing.T) {
	e, _ := buildExecutor(t)
	res, err := e.Run("sig Build")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Kind != KindSignature || res.Signature == "" {
		t.Fatalf("expected a derived signature, got %+v", res)
	}
}

func TestExecGrepFindsLiteral(t *testing.T) {
	e, _ := buildExecutor(t)
	res, err := e.Run("grep Helper")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Kind != KindGrep || len(res.Grep) == 0 {
		t.Fatalf("expected at least one grep match, got %+v", res)
	}
}

func TestExecClassifyFlagsExportedVsUnexported(t *testing.T) {
	e, _ := buildExecutor(t)

	pub, err := e.Run("classify Build")
	if err != nil {
		t.Fatalf("classify Build error: %v", err)
	}
	if pub.Classification == nil || pub.Classification.Visibility != "public" {
		t.Errorf("expected Build to classify as public, got %+v", pub.Classification)
	}

	priv, err := e.Run("classify unexported")
	if err != nil {
		t.Fatalf("classify unexported error: %v", err)
	}
	if priv.Classification == nil || priv.Classification.Visibility != "private" {
		t.Errorf("expected unexported to classify as private, got %+v", priv.Classification)
	}
}

func TestExecFilesAndStats(t *testing.T) {
	e, _ := buildExecutor(t)

	files, err := e.Run("files")
	if err != nil {
		t.Fatalf("files error: %v", err)
	}
	if files.Kind != KindFiles || len(files.Files) != 1 || files.Files[0] != "widget.go" {
		t.Fatalf("expected [widget.go], got %+v", files)
	}

	stats, err := e.Run("stats")
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if stats.Stats["symbols"] != 3 || stats.Stats["files"] != 1 {
		t.Fatalf("expected 3 symbols / 1 file, got %+v", stats.Stats)
	}
}

func TestExecGetMissingReturnsNotFound(t *testing.T) {
	e, _ := buildExecutor(t)
	_, err := e.Run(`get "no such id"`)
	if err == nil {
		t.Fatal("expected an error for an unknown symbol id")
	}
}

func TestExecDepsExcludesInternalMemberCalls(t *testing.T) {
	// Hand-built index: a class Widget with members Build/Helper, where
	// Build calls Helper (internal) and External (outside the class).
	widget := &index.SymbolInformation{ID: "local w.go Widget#", Kind: index.KindClass, DisplayName: "Widget", DefiningFile: "w.go"}
	build := &index.SymbolInformation{ID: "local w.go Widget#build().", Kind: index.KindMethod, DisplayName: "build", DefiningFile: "w.go"}
	helper := &index.SymbolInformation{ID: "local w.go Widget#helper().", Kind: index.KindMethod, DisplayName: "helper", DefiningFile: "w.go"}
	external := &index.SymbolInformation{ID: "local w.go external().", Kind: index.KindFunction, DisplayName: "external", DefiningFile: "w.go"}

	doc := &index.Document{
		RelativePath: "w.go",
		Symbols:      []*index.SymbolInformation{widget, build, helper, external},
		Occurrences: []*index.Occurrence{
			{File: "w.go", SymbolID: widget.ID, StartLine: 1, EndLine: 1, EnclosingEndLine: 10, HasEnclosing: true, RoleMask: index.RoleDefinition},
			{File: "w.go", SymbolID: build.ID, StartLine: 2, EndLine: 2, EnclosingEndLine: 4, HasEnclosing: true, RoleMask: index.RoleDefinition},
			{File: "w.go", SymbolID: helper.ID, StartLine: 5, EndLine: 5, EnclosingEndLine: 6, HasEnclosing: true, RoleMask: index.RoleDefinition},
			{File: "w.go", SymbolID: external.ID, StartLine: 7, EndLine: 7, EnclosingEndLine: 8, HasEnclosing: true, RoleMask: index.RoleDefinition},
			// inside build(): calls helper() and external()
			{File: "w.go", SymbolID: helper.ID, StartLine: 3, EndLine: 3},
			{File: "w.go", SymbolID: external.ID, StartLine: 3, EndLine: 3},
		},
	}
	ix := index.New(&index.Metadata{ProjectRoot: "file:///ws"})
	ix.UpdateDocument(doc)

	reg := registry.New(nil)
	reg.AddLocal("app", &registry.LocalPackage{Name: "app", Path: "/ws", Idx: ix})
	e := New(reg)

	// The class itself: deps should union its members' calls and prune the
	// helper() call (an internal member-to-member edge) while keeping the
	// call to the outside-the-class external().
	res, err := e.Run(`deps "local w.go Widget#"`)
	if err != nil {
		t.Fatalf("deps error: %v", err)
	}
	if res.Kind != KindSymbols || len(res.Symbols) != 1 || index.ExtractName(res.Symbols[0]) != "external" {
		t.Fatalf("expected only the external() dependency, got %+v", res)
	}
}
