package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"symbex/internal/analyzer/golang"
	"symbex/internal/builder"
	"symbex/internal/cache"
	"symbex/internal/incremental"
	"symbex/internal/logging"
	"symbex/internal/registry"
)

// openRegistry opens the workspace at root as the local tier of a fresh
// Registry and opportunistically federates whatever external indexes this
// machine's global cache already holds for its declared dependencies.
// Missing or stale external indexes are skipped, not an error: federation is
// best-effort, the workspace tier is what open/query/stats require.
func openRegistry(root string, logger *logging.Logger) (*registry.Registry, *incremental.Indexer, incremental.Stats, error) {
	applyDiscoveryConfig(root)

	fs := afero.NewOsFs()
	an := golang.New(root)
	c := cache.New(fs, filepath.Join(root, cacheDirName))
	ix := incremental.NewIndexer(root, an, c, fs)

	stats, err := ix.Open(context.Background(), manifestName)
	if err != nil {
		ix.Close()
		return nil, nil, incremental.Stats{}, err
	}

	reg := registry.New(logger)
	reg.AddLocal(filepath.Base(root), &registry.LocalPackage{
		Name:    filepath.Base(root),
		Path:    root,
		Indexer: ix,
		Idx:     ix.Idx,
	})

	if cacheRoot, err := globalCacheRootFor(root); err == nil {
		loadExternalTiers(reg, root, cacheRoot, logger)
	}

	return reg, ix, stats, nil
}

// loadExternalTiers attaches whichever SDK/framework/hosted indexes this
// workspace's lockfile names and the global cache already has built. It
// never builds anything itself — that is index-sdk/index-deps/
// index-framework's job — and swallows Load errors (stale, absent, or
// wrong tool version) since a federation miss just narrows query scope.
func loadExternalTiers(reg *registry.Registry, root, cacheRoot string, logger *logging.Logger) {
	sdkDir := filepath.Join(cacheRoot, string(builder.KindSDK))
	entries, err := os.ReadDir(sdkDir)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if ix, manifest, err := builder.Load(cacheRoot, builder.KindSDK, e.Name()); err == nil {
				reg.SetSDK(&registry.ExternalPackage{Name: manifest.Name, Version: manifest.Version, SourceRoot: manifest.SourcePath, Idx: ix})
				break
			}
		}
	}

	lockPath := filepath.Join(root, "pubspec.lock")
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return
	}
	records, err := builder.ParseLockfile(data)
	if err != nil {
		logger.Warn("could not parse lockfile", map[string]interface{}{"path": lockPath, "error": err.Error()})
		return
	}

	for _, rec := range records {
		key := rec.Name + "-" + rec.Version
		if ix, manifest, err := builder.Load(cacheRoot, builder.KindHosted, key); err == nil {
			reg.AddHosted(key, &registry.ExternalPackage{Name: manifest.Name, Version: manifest.Version, SourceRoot: manifest.SourcePath, Idx: ix})
			continue
		}
		if ix, manifest, err := builder.Load(cacheRoot, builder.KindFlutter, filepath.Join(rec.Version, rec.Name)); err == nil {
			reg.AddFramework(key, &registry.ExternalPackage{Name: manifest.Name, Version: manifest.Version, SourceRoot: manifest.SourcePath, Idx: ix})
			continue
		}
	}
}
