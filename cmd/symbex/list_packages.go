package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"symbex/internal/discovery"
)

var listPackagesCmd = &cobra.Command{
	Use:   "list-packages <root>",
	Short: "Discover and print every package manifest under root",
	Args:  cobra.ExactArgs(1),
	RunE:  runListPackages,
}

func init() {
	rootCmd.AddCommand(listPackagesCmd)
}

func runListPackages(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return withExit(1, err)
	}

	applyDiscoveryConfig(root)

	packages, err := discovery.Discover(root, manifestName, cacheDirName)
	if err != nil {
		return withExit(1, err)
	}

	return printJSON(packages)
}
