package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"symbex/internal/builder"
)

var listIndexesCmd = &cobra.Command{
	Use:   "list-indexes",
	Short: "Enumerate every index.bin/manifest.json pair in the global cache",
	Args:  cobra.NoArgs,
	RunE:  runListIndexes,
}

func init() {
	rootCmd.AddCommand(listIndexesCmd)
}

type cachedIndexEntry struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
	Path string `json:"path"`
}

func runListIndexes(cmd *cobra.Command, args []string) error {
	cacheRoot, err := globalCacheRoot()
	if err != nil {
		return withExit(1, err)
	}

	kinds := []builder.Kind{builder.KindSDK, builder.KindPackage, builder.KindFlutter, builder.KindHosted, builder.KindGit}
	var entries []cachedIndexEntry
	for _, kind := range kinds {
		entries = append(entries, walkCachedKind(cacheRoot, kind)...)
	}

	return printJSON(entries)
}

// walkCachedKind lists every terminal directory under cacheRoot/kind that
// holds an index.bin, recursing through the framework tier's extra
// <version>/<package>/ nesting as well as the flat <name>-<version>/ layout
// every other tier uses.
func walkCachedKind(cacheRoot string, kind builder.Kind) []cachedIndexEntry {
	root := filepath.Join(cacheRoot, string(kind))
	var entries []cachedIndexEntry
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() != "index.bin" {
			return nil
		}
		dir := filepath.Dir(path)
		key, relErr := filepath.Rel(root, dir)
		if relErr != nil {
			key = dir
		}
		entries = append(entries, cachedIndexEntry{Kind: string(kind), Key: filepath.ToSlash(key), Path: dir})
		return nil
	})
	return entries
}
