package golang

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestGetResolvedUnitSkipsNonGoFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# hi\n")

	a := New(root)
	unit, err := a.GetResolvedUnit("README.md")
	if err != nil {
		t.Fatalf("GetResolvedUnit: %v", err)
	}
	if unit != nil {
		t.Error("expected nil ResolvedUnit for a non-Go file")
	}
}

func TestVisitExtractsFunctionsAndCallEdges(t *testing.T) {
	root := t.TempDir()
	src := "package main\n\nfunc main() {\n\thelper()\n}\n\nfunc helper() {}\n"
	writeFile(t, filepath.Join(root, "main.go"), src)

	a := New(root)
	unit, err := a.GetResolvedUnit("main.go")
	if err != nil {
		t.Fatalf("GetResolvedUnit: %v", err)
	}
	if unit == nil {
		t.Fatal("expected a ResolvedUnit for main.go")
	}

	doc, err := a.Visit(unit)
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if len(doc.Symbols) != 2 {
		t.Fatalf("expected 2 symbols (main, helper), got %d", len(doc.Symbols))
	}

	wantIDs := map[string]bool{
		"local main.go main().":   false,
		"local main.go helper().": false,
	}
	for _, s := range doc.Symbols {
		if _, ok := wantIDs[s.ID]; !ok {
			t.Errorf("unexpected symbol id %q", s.ID)
		}
		wantIDs[s.ID] = true
	}
	for id, found := range wantIDs {
		if !found {
			t.Errorf("expected symbol id %q", id)
		}
	}

	var sawCallEdge bool
	for _, occ := range doc.Occurrences {
		if occ.SymbolID == "local main.go helper()." && occ.RoleMask == 0 {
			sawCallEdge = true
		}
	}
	if !sawCallEdge {
		t.Error("expected a reference occurrence for the call to helper()")
	}
}

func TestNotifyFileChangeIsNoop(t *testing.T) {
	a := New(t.TempDir())
	a.NotifyFileChange("main.go") // must not panic
}
