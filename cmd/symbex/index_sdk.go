package main

import (
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"symbex/internal/analyzer/golang"
	"symbex/internal/builder"
)

var indexSDKCmd = &cobra.Command{
	Use:   "index-sdk <path>",
	Short: "Build and cache an index for the language SDK's source tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexSDK,
}

func init() {
	rootCmd.AddCommand(indexSDKCmd)
}

func runIndexSDK(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return withExit(6, err)
	}

	version := detectSDKVersion()
	logger := newLogger()

	ix, manifest, err := builder.Build(builder.Options{
		Kind:       builder.KindSDK,
		Name:       "go",
		Version:    version,
		SourcePath: path,
		An:         golang.New(path),
	})
	if err != nil {
		logger.Error("index-sdk build failed", map[string]interface{}{"path": path, "error": err.Error()})
		return withExit(6, err)
	}

	cacheRoot, err := globalCacheRootFor(path)
	if err != nil {
		return withExit(6, err)
	}
	if err := builder.Save(cacheRoot, version, ix, manifest, time.Now().UTC().Format(time.RFC3339)); err != nil {
		logger.Error("index-sdk save failed", map[string]interface{}{"path": path, "error": err.Error()})
		return withExit(6, err)
	}

	return printJSON(map[string]interface{}{
		"kind":      manifest.Type,
		"name":      manifest.Name,
		"version":   manifest.Version,
		"documents": len(ix.Documents()),
		"symbols":   len(ix.AllSymbols()),
	})
}

// detectSDKVersion shells out to `go version` and returns the word after
// "version" in its output. Falls back to "unknown" if the
// toolchain isn't on PATH, since a missing version string shouldn't abort
// an otherwise successful build.
func detectSDKVersion() string {
	out, err := exec.Command("go", "version").Output()
	if err != nil {
		return "unknown"
	}
	fields := strings.Fields(string(out))
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return "unknown"
}
