// Package discovery walks a workspace root to find package manifests,
// skipping ignored directory segments. Adapted from the teacher's
// internal/modules/detection.go shouldIgnore + filepath.Walk pattern,
// narrowed to plain manifest discovery (no module-classification tiers).
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"symbex/internal/errors"
)

// IgnoredSegments is the set of directory path components that are never
// descended into, matched segment-by-segment (never as a substring) so that
// e.g. "build_utils/" is not mistakenly skipped just because it contains
// "build".
var IgnoredSegments = map[string]bool{
	".git":             true,
	".hg":              true,
	"build":            true,
	"node_modules":     true,
	".pub-cache":       true,
	".pub":             true,
	".dart_tool":       true,
	".symlinks":        true,
	".plugin_symlinks": true,
	"ephemeral":        true,
	".idea":            true,
	".vscode":          true,
}

// defaultManifestName is used when callers pass an empty manifestName to
// Discover.
const defaultManifestName = "pubspec.yaml"

// Package describes one discovered package root.
type Package struct {
	Name         string
	AbsolutePath string
	RelativePath string
}

// manifestStub captures just the field Package Discovery needs out of a
// pub-style manifest; the rest of the document is ignored.
type manifestStub struct {
	Name string `yaml:"name"`
}

// Discover walks root looking for files named manifestName, skipping any
// path whose relative-to-root directory contains a segment in
// IgnoredSegments or equal to cacheDirName. Results are sorted by relative
// path and deduplicated by absolute path.
func Discover(root, manifestName, cacheDirName string) ([]Package, error) {
	if manifestName == "" {
		manifestName = defaultManifestName
	}
	ignored := make(map[string]bool, len(IgnoredSegments)+1)
	for seg := range IgnoredSegments {
		ignored[seg] = true
	}
	if cacheDirName != "" {
		ignored[cacheDirName] = true
	}

	seen := make(map[string]bool)
	var packages []Package

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && shouldIgnore(rel, ignored) {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() != manifestName {
			return nil
		}
		dir := filepath.Dir(path)
		if seen[dir] {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return errors.Wrap(errors.MissingPackageManifest, "read "+path, readErr)
		}
		var stub manifestStub
		if yamlErr := yaml.Unmarshal(data, &stub); yamlErr != nil {
			return errors.Wrap(errors.MissingPackageManifest, "parse "+path, yamlErr)
		}

		rel, _ := filepath.Rel(root, dir)
		seen[dir] = true
		packages = append(packages, Package{
			Name:         stub.Name,
			AbsolutePath: dir,
			RelativePath: rel,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(packages, func(i, j int) bool { return packages[i].RelativePath < packages[j].RelativePath })
	return packages, nil
}

// shouldIgnore reports whether any path segment of rel (using the OS path
// separator) appears in ignored, checked segment-by-segment rather than as
// a substring of the whole path.
func shouldIgnore(rel string, ignored map[string]bool) bool {
	if rel == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if ignored[seg] {
			return true
		}
	}
	return false
}

// WalkSourceFiles enumerates every regular file under root on fs, skipping
// ignored directory segments, and returns POSIX-style paths relative to
// root. Used as the Incremental Indexer's fallback file enumeration when
// the analyzer has no SourceLister capability.
func WalkSourceFiles(fs afero.Fs, root string) ([]string, error) {
	var out []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if info.IsDir() {
			if shouldIgnore(rel, IgnoredSegments) {
				return filepath.SkipDir
			}
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
