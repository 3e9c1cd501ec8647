package index

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// GrepMatch is one line matching a grep query, optionally attributed to the
// symbol whose definition range encloses it.
type GrepMatch struct {
	File          string
	Line          int
	Text          string
	EnclosingID   string
	HasEnclosing  bool
}

// GrepOptions controls a Grep call. Lang and In narrow which files are
// searched; IgnoreCase lower-cases both pattern and haystack.
type GrepOptions struct {
	Pattern    string
	Lang       string
	In         string
	IgnoreCase bool
}

// Grep scans every indexed document's source file on disk for lines
// matching opts.Pattern (a regular expression), attaching the innermost
// enclosing definition to each hit using the same sorted-range logic
// buildCallGraphLocked uses for call attribution.
func (ix *Index) Grep(projectRoot string, opts GrepOptions) ([]GrepMatch, error) {
	body := opts.Pattern
	if opts.IgnoreCase {
		body = "(?i)" + body
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("invalid grep pattern: %w", err)
	}

	ix.mu.RLock()
	docs := make([]*Document, 0, len(ix.documentIndex))
	for _, d := range ix.documentIndex {
		docs = append(docs, d)
	}
	ix.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].RelativePath < docs[j].RelativePath })

	var out []GrepMatch
	for _, doc := range docs {
		if opts.Lang != "" && doc.Language != opts.Lang {
			continue
		}
		if opts.In != "" && !strings.Contains(doc.RelativePath, opts.In) {
			continue
		}
		matches, err := grepFile(projectRoot, doc, re)
		if err != nil {
			continue // unreadable file (deleted/moved since indexing): skip, don't fail the whole query
		}
		out = append(out, matches...)
	}
	return out, nil
}

func grepFile(projectRoot string, doc *Document, re *regexp.Regexp) ([]GrepMatch, error) {
	f, err := os.Open(filepath.Join(projectRoot, doc.RelativePath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ranges := definitionRangesOf(doc)

	var out []GrepMatch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if !re.MatchString(text) {
			continue
		}
		enclosing := innermostEnclosing(ranges, lineNo)
		out = append(out, GrepMatch{
			File:         doc.RelativePath,
			Line:         lineNo,
			Text:         text,
			EnclosingID:  enclosing,
			HasEnclosing: enclosing != "",
		})
	}
	return out, scanner.Err()
}

// definitionRangesOf extracts and sorts a document's definition ranges, the
// same shape buildCallGraphLocked computes, for reuse by Grep.
func definitionRangesOf(doc *Document) []definitionRange {
	var ranges []definitionRange
	for _, occ := range doc.Occurrences {
		if !occ.HasEnclosing || !occ.IsDefinition() {
			continue
		}
		ranges = append(ranges, definitionRange{
			symbolID:  occ.SymbolID,
			startLine: occ.StartLine,
			endLine:   occ.EnclosingEndLine,
		})
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].startLine != ranges[j].startLine {
			return ranges[i].startLine < ranges[j].startLine
		}
		return ranges[i].endLine < ranges[j].endLine
	})
	return ranges
}
