package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"symbex/internal/config"
	"symbex/internal/discovery"
	symbexerrors "symbex/internal/errors"
	"symbex/internal/logging"
	"symbex/internal/paths"
)

// manifestName is the package manifest discovery.Discover and
// incremental.Indexer.Open look for, matching the teacher's pub-style
// ecosystem convention.
const manifestName = "pubspec.yaml"

// cacheDirName is the workspace cache directory name, fixed per §6.
const cacheDirName = ".symbex"

// newLogger builds a logger honoring the root command's -v/-q flags.
func newLogger() *logging.Logger {
	level := logging.InfoLevel
	switch {
	case quiet:
		level = logging.ErrorLevel
	case verbosity >= 2:
		level = logging.DebugLevel
	case verbosity == 1:
		level = logging.InfoLevel
	default:
		level = logging.WarnLevel
	}
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  level,
		Output: os.Stderr,
	})
}

// globalCacheRoot resolves the external-index cache root without reading
// any workspace config: SYMBEX_HOME if set, otherwise <home>/.symbex.
func globalCacheRoot() (string, error) {
	return paths.GetCKBHome()
}

// globalCacheRootFor is like globalCacheRoot but also honors root's
// workspace config: SYMBEX_HOME if set, then the .symbex/config.json
// globalCacheRoot setting, otherwise <home>/.symbex.
func globalCacheRootFor(root string) (string, error) {
	if envHome := os.Getenv(paths.CKBHomeEnvVar); envHome != "" {
		return envHome, nil
	}
	cfg, err := config.LoadConfig(root)
	if err == nil && cfg.GlobalCacheRoot != "" {
		return cfg.GlobalCacheRoot, nil
	}
	return globalCacheRoot()
}

// applyDiscoveryConfig extends discovery.IgnoredSegments with whatever extra
// segments root's workspace config declares, so list-packages and
// incremental.Indexer's manifest walk both skip them.
func applyDiscoveryConfig(root string) {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return
	}
	for _, seg := range cfg.Discovery.IgnoreSegments {
		discovery.IgnoredSegments[seg] = true
	}
}

// pubCacheRoot resolves where dependency sources are checked out: PUB_CACHE
// overrides, otherwise the language-appropriate per-user default.
func pubCacheRoot() (string, error) {
	if v := os.Getenv("PUB_CACHE"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pub-cache"), nil
}

// exitCodeErr carries an explicit §6 exit code alongside the error that
// produced it. Commands whose exit codes depend on which one of them failed
// (NotFound means exit 2 under open, exit 4 under query) wrap their error in
// this rather than leaning on ErrorCode alone.
type exitCodeErr struct {
	code int
	err  error
}

func (e *exitCodeErr) Error() string { return e.err.Error() }
func (e *exitCodeErr) Unwrap() error { return e.err }

// withExit wraps err (if non-nil) to force exit code on exit. A nil err
// passes through unchanged.
func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeErr{code: code, err: err}
}

// exitCodeFor maps an error returned from a command's RunE to one of §6's
// stable exit codes. A command that needs a code §6 doesn't imply from the
// error's ErrorCode alone should wrap it with withExit. Anything else falls
// back to the error's ErrorCode, defaulting to 1 for unclassified errors.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var wrapped *exitCodeErr
	if errors.As(err, &wrapped) {
		return wrapped.code
	}
	var ckbErr *symbexerrors.CkbError
	if !errors.As(err, &ckbErr) {
		return 1
	}
	switch ckbErr.Code {
	case symbexerrors.MissingPackageManifest:
		return 3
	case symbexerrors.NotFound:
		return 2
	case symbexerrors.BadQuery:
		return 5
	default:
		return 1
	}
}

// printJSON marshals v as indented JSON to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
