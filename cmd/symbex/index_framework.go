package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"symbex/internal/analyzer/golang"
	"symbex/internal/builder"
)

var indexFrameworkCmd = &cobra.Command{
	Use:   "index-framework <path>",
	Short: "Build and cache an index for one framework companion package",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexFramework,
}

func init() {
	rootCmd.AddCommand(indexFrameworkCmd)
}

func runIndexFramework(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return withExit(6, err)
	}

	name, version, libDir := frameworkPackageMeta(path)

	opts := builder.Options{
		Kind:       builder.KindFlutter,
		Name:       name,
		Version:    version,
		SourcePath: path,
		LibDir:     libDir,
		An:         golang.New(path),
	}

	logger := newLogger()
	ix, manifest, err := builder.Build(opts)
	if err != nil {
		logger.Error("index-framework build failed", map[string]interface{}{"path": path, "error": err.Error()})
		return withExit(6, err)
	}

	cacheRoot, err := globalCacheRootFor(path)
	if err != nil {
		return withExit(6, err)
	}
	key := filepath.Join(version, name)
	if err := builder.Save(cacheRoot, key, ix, manifest, time.Now().UTC().Format(time.RFC3339)); err != nil {
		logger.Error("index-framework save failed", map[string]interface{}{"path": path, "error": err.Error()})
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

// frameworkPackageMeta reads name/version off path's own manifest when
// present; otherwise the package ships as a bare library directory (no
// manifest of its own) and Build needs a non-empty libDir to take that code
// path plus synthesizeManifest's minimal stand-in.
func frameworkPackageMeta(path string) (name, version, libDir string) {
	data, err := os.ReadFile(filepath.Join(path, manifestName))
	if err != nil {
		return filepath.Base(path), "0.0.0", path
	}
	var stub struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	}
	if yaml.Unmarshal(data, &stub) != nil || stub.Name == "" {
		return filepath.Base(path), "0.0.0", path
	}
	if stub.Version == "" {
		stub.Version = "0.0.0"
	}
	return stub.Name, stub.Version, ""
}
