package cache

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symbex/internal/index"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/repo/.symbex")

	docs := []*index.Document{
		{
			RelativePath: "lib/widget.go",
			Language:     "go",
			Symbols: []*index.SymbolInformation{
				{ID: "pkg Widget#", DisplayName: "Widget", Kind: index.KindClass},
			},
		},
	}
	meta := &index.Metadata{ProjectRoot: "file:///repo"}
	hashes := map[string]string{"lib/widget.go": "deadbeef"}

	require.NoError(t, c.Save(docs, meta, hashes, "file:///repo", "2026-07-31T00:00:00Z"))
	assert.True(t, c.HasValidCache())

	gotDocs, gotMeta, gotManifest, err := c.Load()
	require.NoError(t, err)
	require.Len(t, gotDocs, 1)
	assert.Equal(t, "lib/widget.go", gotDocs[0].RelativePath)
	assert.Equal(t, "file:///repo", gotMeta.ProjectRoot)
	assert.Equal(t, "deadbeef", gotManifest.FileHashes["lib/widget.go"])
}

func TestSaveNeverLeavesHalfWrittenPair(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/repo/.symbex")

	require.NoError(t, c.Save(nil, &index.Metadata{}, map[string]string{}, "file:///repo", "2026-07-31T00:00:00Z"))

	exists, err := afero.Exists(fs, c.indexPath()+".tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temp file must be renamed away, not left behind")

	exists, err = afero.Exists(fs, c.manifestPath()+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiffAgainstClassifiesPaths(t *testing.T) {
	manifest := &Manifest{FileHashes: map[string]string{
		"a.go": "h1",
		"b.go": "h2",
	}}
	current := map[string]string{
		"a.go": "h1",    // unchanged
		"b.go": "h2new", // modified
		"c.go": "h3",    // added
	}
	diff := DiffAgainst(manifest, current)
	assert.ElementsMatch(t, []string{"c.go"}, diff.Added)
	assert.ElementsMatch(t, []string{"b.go"}, diff.Modified)
	assert.ElementsMatch(t, []string{"a.go"}, diff.Unchanged)
	assert.Empty(t, diff.Removed)
}

func TestInvalidateRemovesBothFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/repo/.symbex")
	require.NoError(t, c.Save(nil, &index.Metadata{}, map[string]string{}, "file:///repo", "2026-07-31T00:00:00Z"))

	require.NoError(t, c.Invalidate())
	assert.False(t, c.HasValidCache())

	// Invalidating an already-empty cache is not an error.
	require.NoError(t, c.Invalidate())
}
