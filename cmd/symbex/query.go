package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"symbex/internal/index"
	"symbex/internal/query"
	"symbex/internal/querycache"
	"symbex/internal/registry"
)

var queryCmd = &cobra.Command{
	Use:   "query <dsl>",
	Short: "Execute a query against the workspace at the current directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var queryRoot string

func init() {
	queryCmd.Flags().StringVar(&queryRoot, "root", ".", "workspace root")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	raw := strings.Join(args, " ")

	root, err := filepath.Abs(queryRoot)
	if err != nil {
		return withExit(2, err)
	}

	logger := newLogger()
	reg, ix, _, err := openRegistry(root, logger)
	if err != nil {
		return withExit(2, err)
	}
	defer ix.Close()

	stateID := indexStateFingerprint(ix.Idx)

	qc, err := querycache.Open(filepath.Join(root, cacheDirName))
	if err != nil {
		logger.Warn("query cache unavailable, executing uncached", map[string]interface{}{"error": err.Error()})
		qc = nil
	} else {
		defer qc.Close()
	}

	result, err := runCachedQuery(qc, stateID, raw, reg)
	if err != nil {
		return withExit(5, err)
	}

	fmt.Println(result.Text())
	if result.Kind == query.KindEmpty {
		return withExit(4, fmt.Errorf("no matches for %q", raw))
	}
	return nil
}

// runCachedQuery serves raw from qc when a fresh entry exists for stateID,
// and memoizes a fresh execution otherwise. qc may be nil (cache unavailable
// this run), in which case every query executes uncached.
func runCachedQuery(qc *querycache.Cache, stateID, raw string, reg *registry.Registry) (*query.Result, error) {
	if qc != nil {
		var cached query.Result
		if hit, err := qc.Get(raw, stateID, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	ex := query.New(reg)
	result, err := ex.RunPipeline(raw)
	if err != nil {
		return nil, err
	}

	if qc != nil {
		_ = qc.Set(raw, stateID, result, querycache.DefaultTTL)
	}
	return result, nil
}

// indexStateFingerprint hashes the contents of ix (document paths, every
// symbol id, and every occurrence's symbol id, range and roles) so a cached
// query result is only ever served back for the exact index state it was
// computed against; any reindex that changes a document's symbols or
// occurrences changes the fingerprint and invalidates every
// previously-cached entry.
func indexStateFingerprint(ix *index.Index) string {
	h := sha256.New()
	for _, doc := range ix.Documents() {
		fmt.Fprintf(h, "%s:%d:%d\n", doc.RelativePath, len(doc.Symbols), len(doc.Occurrences))
		for _, sym := range doc.Symbols {
			fmt.Fprintf(h, "s %s\n", sym.ID)
		}
		for _, occ := range doc.Occurrences {
			fmt.Fprintf(h, "o %s %d:%d-%d:%d %d %d\n", occ.SymbolID, occ.StartLine, occ.StartCol, occ.EndLine, occ.EndCol, occ.EnclosingEndLine, occ.RoleMask)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
