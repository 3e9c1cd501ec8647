package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"symbex/internal/config"
	"symbex/internal/incremental"
	"symbex/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Open a workspace and keep its index updated as files change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return withExit(2, err)
	}
	if _, err := os.Stat(root); err != nil {
		return withExit(2, fmt.Errorf("workspace path %s: %w", root, err))
	}

	logger := newLogger()
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return withExit(2, err)
	}

	reg, ix, stats, err := openRegistry(root, logger)
	if err != nil {
		return withExit(2, err)
	}
	defer ix.Close()
	local := reg.AllIndexes()[0]
	logger.Info("workspace opened", map[string]interface{}{
		"root": root, "symbols": len(local.AllSymbols()), "documents": len(local.Documents()),
		"added": stats.Added, "changed": stats.Changed, "removed": stats.Removed,
	})

	wcfg := watcher.Config{
		Enabled:        true,
		DebounceMs:     cfg.Watcher.DebounceMs,
		IgnorePatterns: append([]string{}, watcher.DefaultConfig().IgnorePatterns...),
	}
	w := watcher.New(wcfg, logger, func(repoRoot string, events []watcher.Event) {
		for _, ev := range events {
			rel, relErr := filepath.Rel(repoRoot, ev.Path)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			var kind incremental.FileChangeKind
			switch ev.Type {
			case watcher.EventCreate:
				kind = incremental.FileCreated
			case watcher.EventDelete:
				kind = incremental.FileDeleted
			default:
				kind = incremental.FileModified
			}
			ix.HandleFileChange(incremental.FileChange{Path: rel, Kind: kind})
		}
	})

	if err := w.Start(); err != nil {
		return withExit(2, err)
	}
	if err := w.WatchRepo(root); err != nil {
		return withExit(2, err)
	}
	defer w.Stop()

	events := ix.Subscribe()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	logger.Info("watching for changes", map[string]interface{}{"root": root, "debounceMs": cfg.Watcher.DebounceMs})
	for {
		select {
		case e := <-events:
			fields := map[string]interface{}{"kind": e.Kind}
			if e.Path != "" {
				fields["path"] = e.Path
			}
			if e.Message != "" {
				fields["message"] = e.Message
			}
			logger.Info(strings.ReplaceAll(string(e.Kind), "-", " "), fields)
		case <-sigCh:
			logger.Info("stopping watch", nil)
			return nil
		}
	}
}
