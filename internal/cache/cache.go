// Package cache persists an Index to disk as a protobuf-shaped index.bin
// plus a manifest.json recording the content hash of every indexed file, so
// a later run can tell which files changed without re-parsing everything.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"symbex/internal/errors"
	"symbex/internal/index"
)

const (
	indexFileName    = "index.bin"
	manifestFileName = "manifest.json"
	manifestVersion  = 1
)

// Manifest is the JSON sidecar written next to index.bin. FileHashes maps a
// document's relative path to the SHA-256 hex digest of its content at the
// time it was last indexed.
type Manifest struct {
	Version     int               `json:"version"`
	CreatedAt   string            `json:"created_at"`
	ProjectRoot string            `json:"project_root"`
	FileHashes  map[string]string `json:"file_hashes"`
}

// Cache wraps a directory containing one index.bin/manifest.json pair. Fs is
// an afero.Fs so tests can exercise cache behavior against an in-memory
// filesystem instead of touching disk, grounded on the teacher's
// tmp-then-rename idiom in internal/repos/registry.go, generalized from
// os.* calls to an injectable afero.Fs.
type Cache struct {
	fs  afero.Fs
	dir string
}

// New returns a Cache rooted at dir. dir is created lazily on first Save.
func New(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

func (c *Cache) indexPath() string    { return filepath.Join(c.dir, indexFileName) }
func (c *Cache) manifestPath() string { return filepath.Join(c.dir, manifestFileName) }

// HasValidCache reports whether both index.bin and manifest.json exist and
// the manifest parses. It does not validate file hashes against the current
// working tree — callers use DiffAgainst for that.
func (c *Cache) HasValidCache() bool {
	if _, err := c.fs.Stat(c.indexPath()); err != nil {
		return false
	}
	_, err := c.readManifest()
	return err == nil
}

// Load reads index.bin and manifest.json and returns the decoded documents,
// metadata, and manifest.
func (c *Cache) Load() ([]*index.Document, *index.Metadata, *Manifest, error) {
	data, err := afero.ReadFile(c.fs, c.indexPath())
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.IoFailure, "read cached index", err)
	}
	docs, meta, err := index.LoadBytes(data)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.CorruptCache, "decode cached index", err)
	}
	manifest, err := c.readManifest()
	if err != nil {
		return nil, nil, nil, err
	}
	return docs, meta, manifest, nil
}

func (c *Cache) readManifest() (*Manifest, error) {
	data, err := afero.ReadFile(c.fs, c.manifestPath())
	if err != nil {
		return nil, errors.Wrap(errors.IoFailure, "read cache manifest", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.CorruptCache, "parse cache manifest", err)
	}
	return &m, nil
}

// Save writes docs/meta/manifest to disk, replacing any prior contents.
// Each file is written to a temporary path in the same directory and then
// renamed into place, so neither file is ever observed half-written. The
// two renames are separate steps (index.bin first, then manifest.json), so
// a crash between them leaves the new index.bin beside the previous
// manifest.json.
func (c *Cache) Save(docs []*index.Document, meta *index.Metadata, fileHashes map[string]string, projectRoot, createdAt string) error {
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrap(errors.IoFailure, "create cache directory", err)
	}

	indexBytes, err := index.SaveBytes(docs, meta)
	if err != nil {
		return errors.Wrap(errors.CorruptCache, "encode index for cache", err)
	}
	if err := c.writeAtomic(c.indexPath(), indexBytes); err != nil {
		return err
	}

	manifest := Manifest{
		Version:     manifestVersion,
		CreatedAt:   createdAt,
		ProjectRoot: projectRoot,
		FileHashes:  fileHashes,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CorruptCache, "encode cache manifest", err)
	}
	return c.writeAtomic(c.manifestPath(), manifestBytes)
}

func (c *Cache) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return errors.Wrap(errors.IoFailure, fmt.Sprintf("write %s", filepath.Base(path)), err)
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
		return errors.Wrap(errors.IoFailure, fmt.Sprintf("rename %s into place", filepath.Base(path)), err)
	}
	return nil
}

// DiffResult classifies every path seen on disk or in the manifest.
type DiffResult struct {
	Added    []string
	Modified []string
	Removed  []string
	Unchanged []string
}

// DiffAgainst compares the manifest's recorded hashes against currentHashes
// (freshly computed from the working tree) and reports which paths were
// added, modified, removed, or left unchanged.
func DiffAgainst(manifest *Manifest, currentHashes map[string]string) DiffResult {
	var out DiffResult
	for path, hash := range currentHashes {
		old, existed := manifest.FileHashes[path]
		switch {
		case !existed:
			out.Added = append(out.Added, path)
		case old != hash:
			out.Modified = append(out.Modified, path)
		default:
			out.Unchanged = append(out.Unchanged, path)
		}
	}
	for path := range manifest.FileHashes {
		if _, ok := currentHashes[path]; !ok {
			out.Removed = append(out.Removed, path)
		}
	}
	return out
}

// Invalidate removes both index.bin and manifest.json, forcing the next
// Open to perform a full re-index.
func (c *Cache) Invalidate() error {
	if err := c.fs.Remove(c.indexPath()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.IoFailure, "remove cached index", err)
	}
	if err := c.fs.Remove(c.manifestPath()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.IoFailure, "remove cache manifest", err)
	}
	return nil
}
