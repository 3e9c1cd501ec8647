// Package builder produces a serialized Index for a non-workspace source
// tree: an SDK, a framework companion package, a hosted dependency, or a
// pinned git dependency. New package — the teacher always shells out to a
// separate indexer binary and never builds an index for anything but the
// workspace itself — grounded on internal/backends/scip/adapter.go's
// "index everything under a root, key by name, deduplicate" shape
// (buildRepoIndexes) generalized from "one index per configured repo" to
// "one index per dependency tier entry".
package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"symbex/internal/analyzer"
	"symbex/internal/discovery"
	"symbex/internal/errors"
	"symbex/internal/index"
)

// Kind identifies which dependency tier a built index belongs to.
type Kind string

const (
	KindSDK     Kind = "sdk"
	KindPackage Kind = "package"
	KindHosted  Kind = "hosted"
	KindFlutter Kind = "flutter"
	KindGit     Kind = "git"
)

// compressedKinds persist index.bin zstd-compressed, since hosted and git
// tier indexes are the ones most likely to pile up across many dependency
// versions on disk.
var compressedKinds = map[Kind]bool{KindHosted: true, KindGit: true}

// ToolVersion is stamped into every built manifest so a consumer loading an
// index built by a different builder version can reject and regenerate it.
const ToolVersion = "1"

// ExternalManifest is the provenance record written alongside index.bin.
type ExternalManifest struct {
	Type        Kind   `json:"type"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	SourcePath  string `json:"source_path"`
	IndexedAt   string `json:"indexed_at"`
	ToolVersion string `json:"tool_version"`

	// SynthesizedManifest holds a TOML-encoded stand-in manifest for
	// library-directory packages that ship with no manifest file of their
	// own; empty when the source tree already had one.
	SynthesizedManifest string `json:"synthesized_manifest,omitempty"`
}

// synthesizedManifest is the minimal pub-style manifest the builder writes
// into provenance metadata (never into the read-only source tree) when a
// library-directory package ships with no manifest file at all.
type synthesizedManifest struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Options describes one package to build an index for.
type Options struct {
	Kind       Kind
	Name       string
	Version    string
	SourcePath string // package root
	LibDir     string // non-empty for the library-directory code path
	An         analyzer.Analyzer
}

// Build runs the two code paths §4.4 describes and returns the resulting
// in-memory index plus its provenance manifest. Callers persist both via
// Save.
func Build(opts Options) (*index.Index, *ExternalManifest, error) {
	visitor, ok := opts.An.(analyzer.Visitor)
	if !ok {
		return nil, nil, errors.Wrap(errors.AdapterError, "analyzer does not implement Visitor", nil)
	}

	var scanRoot string
	var synthesized string
	if opts.LibDir != "" {
		scanRoot = opts.LibDir
		var err error
		synthesized, err = synthesizeManifest(opts.SourcePath, opts.Name, opts.Version)
		if err != nil {
			return nil, nil, err
		}
	} else {
		scanRoot = opts.SourcePath
	}

	files, err := discovery.WalkSourceFiles(afero.NewOsFs(), scanRoot)
	if err != nil {
		return nil, nil, errors.Wrap(errors.IoFailure, "enumerate source files", err)
	}

	ix := index.New(&index.Metadata{ProjectRoot: "file://" + opts.SourcePath})
	for _, relToScanRoot := range files {
		absPath := filepath.Join(scanRoot, relToScanRoot)
		relToPackage, relErr := filepath.Rel(opts.SourcePath, absPath)
		if relErr != nil {
			return nil, nil, errors.Wrap(errors.IoFailure, "compute package-relative path", relErr)
		}
		relToPackage = filepath.ToSlash(relToPackage)

		unit, err := opts.An.GetResolvedUnit(relToPackage)
		if err != nil {
			return nil, nil, errors.Wrap(errors.AnalyzerResolutionFailed, fmt.Sprintf("resolve %s", relToPackage), err)
		}
		if unit == nil {
			continue
		}
		doc, err := visitor.Visit(unit)
		if err != nil {
			return nil, nil, errors.Wrap(errors.AnalyzerResolutionFailed, fmt.Sprintf("visit %s", relToPackage), err)
		}
		doc.RelativePath = relToPackage
		ix.UpdateDocument(doc)
	}

	manifest := &ExternalManifest{
		Type:                 opts.Kind,
		Name:                 opts.Name,
		Version:              opts.Version,
		SourcePath:           opts.SourcePath,
		ToolVersion:          ToolVersion,
		SynthesizedManifest:  synthesized,
	}
	return ix, manifest, nil
}

// synthesizeManifest builds a minimal pub-style manifest with
// BurntSushi/toml when a library-directory package ships without one. The
// synthesized manifest is never written into the (read-only) source tree —
// it is returned for the caller to store in the index's provenance
// metadata instead.
func synthesizeManifest(sourcePath, name, version string) (string, error) {
	if name == "" {
		return "", errors.Wrap(errors.MissingPackageManifest, fmt.Sprintf("package at %s has no name to synthesize a manifest from", sourcePath), nil)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(synthesizedManifest{Name: name, Version: version}); err != nil {
		return "", errors.Wrap(errors.IoFailure, "synthesize manifest", err)
	}
	return buf.String(), nil
}

// Save writes index.bin and manifest.json under
// <cacheRoot>/<kind>/<key>/. Hosted and git tier index.bin files are
// zstd-compressed under the same index.bin name; Load decides whether to
// decompress from the kind, not from the file's bytes.
func Save(cacheRoot string, key string, ix *index.Index, manifest *ExternalManifest, indexedAt string) error {
	manifest.IndexedAt = indexedAt
	dir := filepath.Join(cacheRoot, string(manifest.Type), key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.IoFailure, "create index directory", err)
	}

	data, err := index.SaveBytes(ix.Documents(), ix.Metadata())
	if err != nil {
		return errors.Wrap(errors.IoFailure, "serialize index", err)
	}
	if compressedKinds[manifest.Type] {
		data, err = compress(data)
		if err != nil {
			return errors.Wrap(errors.IoFailure, "compress index", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "index.bin"), data, 0644); err != nil {
		return errors.Wrap(errors.IoFailure, "write index.bin", err)
	}

	manifestJSON, err := marshalManifest(manifest)
	if err != nil {
		return errors.Wrap(errors.IoFailure, "serialize manifest", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), manifestJSON, 0644); err != nil {
		return errors.Wrap(errors.IoFailure, "write manifest.json", err)
	}
	return nil
}

// Load reads back an index previously written by Save, decompressing if
// necessary, and rejects a manifest built by an incompatible tool version.
func Load(cacheRoot string, kind Kind, key string) (*index.Index, *ExternalManifest, error) {
	dir := filepath.Join(cacheRoot, string(kind), key)

	manifestJSON, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, nil, errors.Wrap(errors.NotFound, "read manifest.json", err)
	}
	manifest, err := unmarshalManifest(manifestJSON)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CorruptCache, "parse manifest.json", err)
	}
	if manifest.ToolVersion != ToolVersion {
		return nil, nil, errors.Wrap(errors.CorruptCache, fmt.Sprintf("index built by tool version %s, need %s", manifest.ToolVersion, ToolVersion), nil)
	}

	data, err := os.ReadFile(filepath.Join(dir, "index.bin"))
	if err != nil {
		return nil, nil, errors.Wrap(errors.NotFound, "read index.bin", err)
	}
	if compressedKinds[kind] {
		data, err = decompress(data)
		if err != nil {
			return nil, nil, errors.Wrap(errors.CorruptCache, "decompress index.bin", err)
		}
	}

	docs, meta, err := index.LoadBytes(data)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CorruptCache, "parse index.bin", err)
	}
	ix := index.New(meta)
	for _, doc := range docs {
		ix.UpdateDocument(doc)
	}
	return ix, manifest, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func marshalManifest(m *ExternalManifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func unmarshalManifest(data []byte) (*ExternalManifest, error) {
	var m ExternalManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DependencyRecord is one entry parsed out of a lockfile by ParseLockfile.
type DependencyRecord struct {
	Name         string
	Version      string
	PubCacheRoot string
}

type lockfile struct {
	Packages map[string]struct {
		Version     string `yaml:"version"`
		Source      string `yaml:"source"`
		Description struct {
			Path string `yaml:"path"`
		} `yaml:"description"`
	} `yaml:"packages"`
}

// ParseLockfile parses a pub-style lockfile into a stable-ordered list of
// dependency records.
func ParseLockfile(data []byte) ([]DependencyRecord, error) {
	var lf lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, errors.Wrap(errors.IoFailure, "parse lockfile", err)
	}
	names := make([]string, 0, len(lf.Packages))
	for name := range lf.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]DependencyRecord, 0, len(names))
	for _, name := range names {
		pkg := lf.Packages[name]
		out = append(out, DependencyRecord{Name: name, Version: pkg.Version, PubCacheRoot: pkg.Description.Path})
	}
	return out, nil
}

// BatchResult reports the outcome of indexing one dependency lockfile entry.
type BatchResult struct {
	Name    string
	Version string
	Skipped bool
	Err     error
}

// IndexDependencies runs Build+Save for every lockfile entry whose index
// doesn't already exist on disk (unless force is set), via resolveSourcePath
// to locate each dependency's checked-out source and anFactory to build an
// analyzer scoped to it.
func IndexDependencies(
	cacheRoot string,
	records []DependencyRecord,
	force bool,
	resolveSourcePath func(rec DependencyRecord) (sourcePath, libDir string, kind Kind, err error),
	anFactory func(sourcePath string) (analyzer.Analyzer, error),
	indexedAt string,
) []BatchResult {
	results := make([]BatchResult, 0, len(records))
	for _, rec := range records {
		key := rec.Name + "-" + rec.Version

		sourcePath, libDir, kind, err := resolveSourcePath(rec)
		if err != nil {
			results = append(results, BatchResult{Name: rec.Name, Version: rec.Version, Err: err})
			continue
		}

		if !force {
			if _, _, err := Load(cacheRoot, kind, key); err == nil {
				results = append(results, BatchResult{Name: rec.Name, Version: rec.Version, Skipped: true})
				continue
			}
		}

		an, err := anFactory(sourcePath)
		if err != nil {
			results = append(results, BatchResult{Name: rec.Name, Version: rec.Version, Err: err})
			continue
		}

		ix, manifest, err := Build(Options{
			Kind: kind, Name: rec.Name, Version: rec.Version, SourcePath: sourcePath, LibDir: libDir, An: an,
		})
		if err != nil {
			results = append(results, BatchResult{Name: rec.Name, Version: rec.Version, Err: err})
			continue
		}
		if err := Save(cacheRoot, key, ix, manifest, indexedAt); err != nil {
			results = append(results, BatchResult{Name: rec.Name, Version: rec.Version, Err: err})
			continue
		}
		results = append(results, BatchResult{Name: rec.Name, Version: rec.Version})
	}
	return results
}
