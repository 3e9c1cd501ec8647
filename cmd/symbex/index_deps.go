package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"symbex/internal/analyzer"
	"symbex/internal/analyzer/golang"
	"symbex/internal/builder"
	"symbex/internal/errors"
)

var indexDepsCmd = &cobra.Command{
	Use:   "index-deps [root]",
	Short: "Build and cache indexes for every hosted dependency in the lockfile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexDeps,
}

var indexDepsForce bool

func init() {
	indexDepsCmd.Flags().BoolVar(&indexDepsForce, "force", false, "rebuild even if a cached index already exists")
	rootCmd.AddCommand(indexDepsCmd)
}

func runIndexDeps(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return withExit(6, err)
	}

	data, err := os.ReadFile(filepath.Join(root, "pubspec.lock"))
	if err != nil {
		return withExit(6, errors.Wrap(errors.MissingResolvedConfig, "read pubspec.lock", err))
	}
	records, err := builder.ParseLockfile(data)
	if err != nil {
		return withExit(6, err)
	}

	cacheRoot, err := globalCacheRootFor(root)
	if err != nil {
		return withExit(6, err)
	}
	pubRoot, err := pubCacheRoot()
	if err != nil {
		return withExit(6, err)
	}

	logger := newLogger()
	results := builder.IndexDependencies(
		cacheRoot,
		records,
		indexDepsForce,
		func(rec builder.DependencyRecord) (sourcePath, libDir string, kind builder.Kind, err error) {
			sourcePath = rec.PubCacheRoot
			if sourcePath == "" {
				sourcePath = filepath.Join(pubRoot, "hosted", "pub.dev", rec.Name+"-"+rec.Version)
			}
			if _, statErr := os.Stat(sourcePath); statErr != nil {
				return "", "", "", fmt.Errorf("dependency source not found at %s: %w", sourcePath, statErr)
			}
			return sourcePath, "", builder.KindHosted, nil
		},
		func(sourcePath string) (analyzer.Analyzer, error) {
			return golang.New(sourcePath), nil
		},
		time.Now().UTC().Format(time.RFC3339),
	)

	failed := 0
	skipped := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Warn("dependency index failed", map[string]interface{}{"name": r.Name, "version": r.Version, "error": r.Err.Error()})
		} else if r.Skipped {
			skipped++
		}
	}

	if err := printJSON(map[string]interface{}{
		"total":   len(results),
		"failed":  failed,
		"skipped": skipped,
		"built":   len(results) - failed - skipped,
		"results": results,
	}); err != nil {
		return withExit(6, err)
	}
	if failed > 0 {
		return withExit(6, fmt.Errorf("%d of %d dependencies failed to index", failed, len(results)))
	}
	return nil
}
