package incremental

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"symbex/internal/analyzer"
	"symbex/internal/cache"
	"symbex/internal/index"
	"symbex/internal/testutil/tsfixture"
)

// fixtureAnalyzer resolves .go files under root through tsfixture, standing
// in for a real language analyzer (internal/analyzer/golang's tree-sitter
// walk is exercised separately against real files on disk).
type fixtureAnalyzer struct {
	root    string
	fs      afero.Fs
	changed []string
}

func (a *fixtureAnalyzer) ProjectRoot() string { return a.root }

func (a *fixtureAnalyzer) GetResolvedUnit(path string) (*analyzer.ResolvedUnit, error) {
	if filepath.Ext(path) != ".go" {
		return nil, nil
	}
	src, err := afero.ReadFile(a.fs, filepath.Join(a.root, path))
	if err != nil {
		return nil, err
	}
	return &analyzer.ResolvedUnit{Path: path, Payload: src}, nil
}

func (a *fixtureAnalyzer) NotifyFileChange(path string) {
	a.changed = append(a.changed, path)
}

func (a *fixtureAnalyzer) Visit(unit *analyzer.ResolvedUnit) (*index.Document, error) {
	return tsfixture.BuildGoDocument(unit.Path, unit.Payload.([]byte))
}

func writeFile(t *testing.T, fs afero.Fs, path, contents string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := afero.WriteFile(fs, path, []byte(contents), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func newTestIndexer(t *testing.T, fs afero.Fs, root string) *Indexer {
	t.Helper()
	an := &fixtureAnalyzer{root: root, fs: fs}
	c := cache.New(fs, filepath.Join(root, ".symbex"))
	ix := NewIndexer(root, an, c, fs)
	t.Cleanup(ix.Close)
	return ix
}

func TestIndexerOpenMissingManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work"
	ix := newTestIndexer(t, fs, root)

	_, err := ix.Open(context.Background(), "pubspec.yaml")
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestIndexerOpenInitialBuild(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work"
	writeFile(t, fs, filepath.Join(root, "pubspec.yaml"), "name: work\n")
	writeFile(t, fs, filepath.Join(root, "main.go"), "package main\n\nfunc main() {\n\thelper()\n}\n\nfunc helper() {}\n")

	ix := newTestIndexer(t, fs, root)
	stats, err := ix.Open(context.Background(), "pubspec.yaml")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if stats.Added != 1 {
		t.Errorf("expected Added=1, got %d", stats.Added)
	}
	if len(ix.Idx.Documents()) != 1 {
		t.Errorf("expected one document, got %d", len(ix.Idx.Documents()))
	}
}

func TestIndexerOpenRestoresFromCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work"
	writeFile(t, fs, filepath.Join(root, "pubspec.yaml"), "name: work\n")
	writeFile(t, fs, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n")

	ix := newTestIndexer(t, fs, root)
	if _, err := ix.Open(context.Background(), "pubspec.yaml"); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	ix.Close()

	ix2 := newTestIndexer(t, fs, root)
	stats, err := ix2.Open(context.Background(), "pubspec.yaml")
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if stats.Unchanged != 1 {
		t.Errorf("expected Unchanged=1 on restore with no edits, got %+v", stats)
	}
}

func TestIndexerHandleFileChangeUpdatesDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work"
	writeFile(t, fs, filepath.Join(root, "pubspec.yaml"), "name: work\n")
	writeFile(t, fs, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n")

	ix := newTestIndexer(t, fs, root)
	if _, err := ix.Open(context.Background(), "pubspec.yaml"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	writeFile(t, fs, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n\nfunc extra() {}\n")
	ix.HandleFileChange(FileChange{Path: "main.go", Kind: FileModified})

	doc, ok := docByPath(ix.Idx.Documents(), "main.go")
	if !ok {
		t.Fatal("expected main.go to remain indexed")
	}
	if len(doc.Symbols) < 2 {
		t.Errorf("expected updated document to carry the new symbol, got %d symbols", len(doc.Symbols))
	}
}

func TestIndexerHandleFileChangeRemovesDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work"
	writeFile(t, fs, filepath.Join(root, "pubspec.yaml"), "name: work\n")
	writeFile(t, fs, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n")

	ix := newTestIndexer(t, fs, root)
	if _, err := ix.Open(context.Background(), "pubspec.yaml"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	ix.HandleFileChange(FileChange{Path: "main.go", Kind: FileDeleted})
	if _, ok := docByPath(ix.Idx.Documents(), "main.go"); ok {
		t.Error("expected main.go to be removed from the index")
	}
}

func TestIndexerSubscribeReceivesEvents(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work"
	writeFile(t, fs, filepath.Join(root, "pubspec.yaml"), "name: work\n")
	writeFile(t, fs, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n")

	ix := newTestIndexer(t, fs, root)
	events := ix.Subscribe()

	if _, err := ix.Open(context.Background(), "pubspec.yaml"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	select {
	case e := <-events:
		if e.Kind != EventFileUpdated || e.Path != "main.go" {
			t.Errorf("expected EventFileUpdated for main.go first, got %s %q", e.Kind, e.Path)
		}
	default:
		t.Error("expected an event on the subscriber channel")
	}
	select {
	case e := <-events:
		if e.Kind != EventInitialBuild {
			t.Errorf("expected EventInitialBuild, got %s", e.Kind)
		}
	default:
		t.Error("expected an EventInitialBuild after the per-file event")
	}
}

func docByPath(docs []*index.Document, path string) (*index.Document, bool) {
	for _, d := range docs {
		if d.RelativePath == path {
			return d, true
		}
	}
	return nil, false
}
