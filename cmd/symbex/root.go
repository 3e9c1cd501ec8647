package main

import (
	"symbex/internal/version"

	"github.com/spf13/cobra"
)

var (
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "symbex",
	Short: "symbex - semantic code intelligence",
	Long: `symbex is a language-agnostic symbol indexing engine built on the SCIP
wire format. It maintains an incrementally-updated in-memory index of a
workspace's symbols, occurrences, and call graph, federates it against
pre-built SDK/framework/dependency indexes, and answers a small query DSL
over the result.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("symbex version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error logs")
}
