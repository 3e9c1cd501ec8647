package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index statistics for the workspace at the current directory",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsRoot string

func init() {
	statsCmd.Flags().StringVar(&statsRoot, "root", ".", "workspace root")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(statsRoot)
	if err != nil {
		return withExit(1, err)
	}

	logger := newLogger()
	reg, ix, _, err := openRegistry(root, logger)
	if err != nil {
		return withExit(1, err)
	}
	defer ix.Close()

	local := reg.AllIndexes()[0]
	byKind := map[string]int{}
	for _, sym := range local.AllSymbols() {
		byKind[string(sym.Kind)]++
	}

	return printJSON(map[string]interface{}{
		"root":             root,
		"documents":        len(local.Documents()),
		"symbols":          len(local.AllSymbols()),
		"symbolsByKind":    byKind,
		"federatedIndexes": len(reg.AllIndexes()),
	})
}
