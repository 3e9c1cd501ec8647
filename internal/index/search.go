package index

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// PatternKind classifies how a search pattern should be matched, per the
// query DSL's pattern dialects.
type PatternKind int

const (
	// PatternLiteral matches the pattern as an exact name.
	PatternLiteral PatternKind = iota
	// PatternGlob treats '*' as "any run of characters" and '?' as "any
	// single character", anchored to the full name.
	PatternGlob
	// PatternRegex wraps the pattern body in a compiled regular expression.
	PatternRegex
	// PatternFuzzy matches by bounded edit distance (see FindSymbolsFuzzy).
	PatternFuzzy
)

// fuzzyMaxPatternLen bounds which patterns are eligible for a distance
// computation; longer patterns rely on substring matching only, since edit
// distance against a long pattern is both slow and semantically noisy.
const fuzzyMaxPatternLen = 10

// fuzzyDefaultThreshold is the maximum edit distance considered a fuzzy hit.
const fuzzyDefaultThreshold = 2

// CompilePattern classifies pattern and, for glob/regex dialects, returns a
// ready-to-use matcher. Dialect detection: "/re/" or "/re/i" is PatternRegex
// (second form case-insensitive); a leading '~' is PatternFuzzy; a pattern
// containing '*' or '?' is PatternGlob; anything else is PatternLiteral.
func CompilePattern(pattern string) (PatternKind, *regexp.Regexp, string, error) {
	if strings.HasPrefix(pattern, "/") {
		body := pattern[1:]
		caseInsensitive := false
		if idx := strings.LastIndex(body, "/"); idx >= 0 {
			flags := body[idx+1:]
			body = body[:idx]
			caseInsensitive = strings.Contains(flags, "i")
		}
		if caseInsensitive {
			body = "(?i)" + body
		}
		re, err := regexp.Compile(body)
		if err != nil {
			return PatternRegex, nil, "", err
		}
		return PatternRegex, re, "", nil
	}
	if strings.HasPrefix(pattern, "~") {
		return PatternFuzzy, nil, pattern[1:], nil
	}
	if strings.ContainsAny(pattern, "*?") {
		escaped := regexp.QuoteMeta(pattern)
		escaped = strings.ReplaceAll(escaped, `\*`, ".*")
		escaped = strings.ReplaceAll(escaped, `\?`, ".")
		re, err := regexp.Compile("^" + escaped + "$")
		if err != nil {
			return PatternGlob, nil, "", err
		}
		return PatternGlob, re, "", nil
	}
	return PatternLiteral, nil, pattern, nil
}

// FindSymbols returns every symbol whose extracted name matches pattern
// under the dialect CompilePattern infers, sorted by id.
func (ix *Index) FindSymbols(pattern string) ([]*SymbolInformation, error) {
	kind, re, literal, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []*SymbolInformation
	for _, sym := range ix.symbolIndex {
		name := ExtractName(sym)
		switch kind {
		case PatternLiteral:
			if name == literal {
				out = append(out, sym)
			}
		case PatternGlob, PatternRegex:
			if re.MatchString(name) {
				out = append(out, sym)
			}
		case PatternFuzzy:
			if fuzzyMatches(name, literal) {
				out = append(out, sym)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fuzzyMatches reports whether name should be considered a fuzzy hit for
// pattern: an exact substring always hits regardless of length, and
// otherwise (for short patterns only) the Levenshtein distance between name
// and pattern must be within fuzzyDefaultThreshold.
func fuzzyMatches(name, pattern string) bool {
	lowerName, lowerPattern := strings.ToLower(name), strings.ToLower(pattern)
	if strings.Contains(lowerName, lowerPattern) {
		return true
	}
	if len(pattern) > fuzzyMaxPatternLen {
		return false
	}
	return levenshtein.ComputeDistance(lowerName, lowerPattern) <= fuzzyDefaultThreshold
}

// FindByName is an exact-match convenience wrapper used when a query target
// names a symbol directly rather than via a pattern.
func (ix *Index) FindByName(name string) []*SymbolInformation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*SymbolInformation
	for _, sym := range ix.symbolIndex {
		if ExtractName(sym) == name {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
