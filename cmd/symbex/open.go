package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"symbex/internal/errors"
)

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a workspace and build or restore its index",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return withExit(2, err)
	}
	if _, err := os.Stat(root); err != nil {
		return withExit(2, fmt.Errorf("workspace path %s: %w", root, err))
	}

	logger := newLogger()
	reg, ix, stats, err := openRegistry(root, logger)
	if err != nil {
		logger.Error("open failed", map[string]interface{}{"root": root, "error": err.Error()})
		if ckbErr, ok := err.(*errors.CkbError); ok && ckbErr.Code == errors.MissingPackageManifest {
			return err // exitCodeFor maps MissingPackageManifest to 3
		}
		return withExit(2, err)
	}
	defer ix.Close()

	local := reg.AllIndexes()[0]
	logger.Info("workspace opened", map[string]interface{}{
		"root":      root,
		"added":     stats.Added,
		"changed":   stats.Changed,
		"removed":   stats.Removed,
		"unchanged": stats.Unchanged,
		"duration":  stats.Duration.String(),
	})

	return printJSON(map[string]interface{}{
		"root":             root,
		"symbols":          len(local.AllSymbols()),
		"documents":        len(local.Documents()),
		"federatedIndexes": len(reg.AllIndexes()),
		"added":            stats.Added,
		"changed":          stats.Changed,
		"removed":          stats.Removed,
		"unchanged":        stats.Unchanged,
		"duration":         stats.Duration.String(),
	})
}
