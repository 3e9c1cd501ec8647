package query

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"symbex/internal/errors"
	"symbex/internal/index"
	"symbex/internal/registry"
)

// primaryKinds are the kinds def/refs/members prefer over every other kind
// when ranking candidates, per §4.8.
var primaryKinds = map[index.SymbolKind]bool{
	index.KindClass: true, index.KindMethod: true, index.KindFunction: true,
	index.KindField: true, index.KindConstructor: true, index.KindEnum: true,
	index.KindMixin: true, index.KindExtension: true, index.KindGetter: true,
	index.KindSetter: true, index.KindProperty: true,
}

// kindRank orders primary kinds for def's ranking rule: class < function <
// enum < mixin < extension < method < field < constructor < getter <
// setter. property has no stated rank; it sorts after setter.
var kindRank = map[index.SymbolKind]int{
	index.KindClass: 0, index.KindFunction: 1, index.KindEnum: 2,
	index.KindMixin: 3, index.KindExtension: 4, index.KindMethod: 5,
	index.KindField: 6, index.KindConstructor: 7, index.KindGetter: 8,
	index.KindSetter: 9, index.KindProperty: 10,
}

// containerKinds are the kinds members restricts candidates to.
var containerKinds = map[index.SymbolKind]bool{
	index.KindClass: true, index.KindMixin: true, index.KindExtension: true, index.KindEnum: true,
}

const (
	defTopN        = 3
	refsAmbiguousN = 10
	defaultMaxDepth = 8
	defaultMaxPaths = 5
)

// SignatureProvider lets a caller plug in a real signature extractor
// (e.g. a language-specific one backed by the analyzer); when nil or when
// it reports no hit, sig falls back to the heuristic in deriveSignature.
type SignatureProvider func(symbolID string) (string, bool)

// Executor dispatches parsed queries against a Registry.
type Executor struct {
	Reg       *registry.Registry
	SigLookup SignatureProvider
}

// New returns an Executor bound to reg.
func New(reg *registry.Registry) *Executor {
	return &Executor{Reg: reg}
}

// Run parses and executes a single DSL stage.
func (e *Executor) Run(raw string) (*Result, error) {
	q, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return e.Execute(q)
}

// Execute runs an already-parsed Query.
func (e *Executor) Execute(q *Query) (*Result, error) {
	switch q.Action {
	case ActionDef:
		return e.execDef(q)
	case ActionRefs:
		return e.execRefs(q)
	case ActionMembers:
		return e.execMembers(q)
	case ActionImpls:
		return e.execRelationship(q, e.Reg.ImplementationsOf)
	case ActionSupertypes:
		return e.execRelationship(q, e.Reg.SupertypesOf)
	case ActionSubtypes:
		return e.execRelationship(q, e.Reg.SubtypesOf)
	case ActionHierarchy:
		return e.execHierarchy(q)
	case ActionSource:
		return e.execSource(q)
	case ActionSig:
		return e.execSig(q)
	case ActionFind:
		return e.execFind(q)
	case ActionWhich:
		return e.execWhich(q)
	case ActionGrep:
		return e.execGrep(q)
	case ActionCalls:
		return e.execCallEdges(q, e.Reg.GetCalls)
	case ActionCallers:
		return e.execCallEdges(q, e.Reg.GetCallers)
	case ActionDeps:
		return e.execDeps(q)
	case ActionImports:
		return e.execImports(q)
	case ActionExports:
		return e.execExports(q)
	case ActionSymbols:
		return e.execSymbols(q)
	case ActionGet:
		return e.execGet(q)
	case ActionFiles:
		return e.execFiles(q)
	case ActionStats:
		return e.execStats(q)
	case ActionClassify:
		return e.execClassify(q)
	case ActionStoryboard:
		return e.execStoryboard(q)
	default:
		return nil, errors.Wrap(errors.BadQuery, fmt.Sprintf("unhandled action %q", q.Action), nil)
	}
}

// resolveCandidates finds the symbols a target names: a full SCIP id (any
// target containing a space) is looked up directly; a qualified target
// tries container.member first and falls back to a plain search on the
// member name; anything else is a pattern search across every loaded index.
func (e *Executor) resolveCandidates(q *Query) ([]*index.SymbolInformation, error) {
	target := q.Target
	if target == "" {
		return nil, nil
	}
	if strings.Contains(target, " ") {
		if sym := e.Reg.GetSymbol(target); sym != nil {
			return []*index.SymbolInformation{sym}, nil
		}
		return nil, nil
	}
	if q.Pattern.Qualified {
		if syms := e.Reg.FindQualified(q.Pattern.Container, q.Pattern.Member); len(syms) > 0 {
			return applyFilters(e.Reg, syms, q.Filters), nil
		}
		target = q.Pattern.Member
	}
	syms, err := e.Reg.FindSymbols(target, registry.ScopeProjectAndLoaded)
	if err != nil {
		return nil, errors.Wrap(errors.BadQuery, "invalid pattern", err)
	}
	return applyFilters(e.Reg, syms, q.Filters), nil
}

func applyFilters(r *registry.Registry, syms []*index.SymbolInformation, filters []Filter) []*index.SymbolInformation {
	if len(filters) == 0 {
		return syms
	}
	var out []*index.SymbolInformation
	for _, s := range syms {
		if matchesFilters(r, s, filters) {
			out = append(out, s)
		}
	}
	return out
}

func matchesFilters(r *registry.Registry, s *index.SymbolInformation, filters []Filter) bool {
	for _, f := range filters {
		switch f.Kind {
		case "kind":
			if string(s.Kind) != f.Value {
				return false
			}
		case "in":
			if !strings.HasPrefix(s.DefiningFile, f.Value) {
				return false
			}
		case "lang":
			if symbolLanguage(r, s) != f.Value {
				return false
			}
		}
	}
	return true
}

func symbolLanguage(r *registry.Registry, s *index.SymbolInformation) string {
	if s.DefiningFile == "" {
		return ""
	}
	owning := r.FindOwningIndex(s.ID)
	if owning == nil {
		return ""
	}
	doc := owning.GetDocument(s.DefiningFile)
	if doc == nil {
		return ""
	}
	return doc.Language
}

func rankOf(k index.SymbolKind) int {
	if r, ok := kindRank[k]; ok {
		return r
	}
	return 1 << 30
}

func sortByRankThenID(syms []*index.SymbolInformation) {
	sort.Slice(syms, func(i, j int) bool {
		ri, rj := rankOf(syms[i].Kind), rankOf(syms[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return syms[i].ID < syms[j].ID
	})
}

func (e *Executor) execDef(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}

	name := lastTargetSegment(q.Target)
	var primary []*index.SymbolInformation
	for _, s := range candidates {
		if primaryKinds[s.Kind] {
			primary = append(primary, s)
		}
	}
	pool := primary
	if len(pool) == 0 {
		pool = candidates
	}

	sort.SliceStable(pool, func(i, j int) bool {
		ei, ej := index.ExtractName(pool[i]) == name, index.ExtractName(pool[j]) == name
		if ei != ej {
			return ei
		}
		return rankOf(pool[i].Kind) < rankOf(pool[j].Kind)
	})

	truncated := false
	if len(pool) > defTopN {
		pool = pool[:defTopN]
		truncated = true
	}

	occs := make([]*index.Occurrence, 0, len(pool))
	for _, s := range pool {
		if occ := e.Reg.FindDefinition(s.ID); occ != nil {
			occs = append(occs, occ)
		}
	}
	return &Result{Kind: KindOccurrences, Symbols: pool, Occurrences: occs, Truncated: truncated}, nil
}

func lastTargetSegment(target string) string {
	if idx := strings.LastIndex(target, "."); idx >= 0 {
		return target[idx+1:]
	}
	return target
}

func (e *Executor) execRefs(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	var primary []*index.SymbolInformation
	for _, s := range candidates {
		if primaryKinds[s.Kind] {
			primary = append(primary, s)
		}
	}
	if len(primary) == 0 {
		primary = candidates
	}
	truncated := false
	if len(primary) > refsAmbiguousN {
		primary = primary[:refsAmbiguousN]
		truncated = true
	}

	var occs []*index.Occurrence
	for _, s := range primary {
		occs = append(occs, e.Reg.FindAllReferences(s.ID)...)
	}
	if len(occs) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindOccurrences, Symbols: primary, Occurrences: occs, Truncated: truncated}, nil
}

func (e *Executor) execMembers(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	for _, s := range candidates {
		if !containerKinds[s.Kind] {
			continue
		}
		members := e.Reg.MembersOf(s.ID)
		if len(members) > 0 {
			return &Result{Kind: KindSymbols, Symbols: members}, nil
		}
	}
	return &Result{Kind: KindEmpty}, nil
}

func (e *Executor) execRelationship(q *Query, fn func(id string) []*index.SymbolInformation) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	var out []*index.SymbolInformation
	seen := make(map[string]bool)
	for _, c := range candidates {
		for _, s := range fn(c.ID) {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindSymbols, Symbols: out}, nil
}

func (e *Executor) execHierarchy(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []*index.SymbolInformation
	add := func(syms []*index.SymbolInformation) {
		for _, s := range syms {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	for _, c := range candidates {
		add(e.Reg.SupertypesOf(c.ID))
		add(e.Reg.SubtypesOf(c.ID))
		add(e.Reg.ImplementationsOf(c.ID))
	}
	if len(out) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindSymbols, Symbols: out}, nil
}

func (e *Executor) execSource(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	sym := candidates[0]
	occ := e.Reg.FindDefinition(sym.ID)
	if occ == nil || !occ.HasEnclosing {
		return &Result{Kind: KindEmpty}, nil
	}
	path, ok := e.Reg.ResolveFilePath(sym.ID)
	if !ok {
		return &Result{Kind: KindEmpty}, nil
	}
	src, err := readLineRange(path, occ.StartLine, occ.EnclosingEndLine)
	if err != nil {
		return nil, errors.Wrap(errors.IoFailure, "read source range", err)
	}
	return &Result{Kind: KindSource, Symbols: candidates[:1], Source: src}, nil
}

func readLineRange(path string, start, end int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line < start {
			continue
		}
		if line > end {
			break
		}
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), scanner.Err()
}

var signatureCut = regexp.MustCompile(`\)\s*(\{|=>)`)

func (e *Executor) execSig(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	sym := candidates[0]

	if e.SigLookup != nil {
		if sig, ok := e.SigLookup(sym.ID); ok {
			return &Result{Kind: KindSignature, Symbols: candidates[:1], Signature: sig}, nil
		}
	}

	srcRes, err := e.execSource(q)
	if err != nil || srcRes.Kind == KindEmpty {
		return &Result{Kind: KindEmpty}, nil
	}

	sig := deriveSignature(sym.Kind, srcRes.Source)
	return &Result{Kind: KindSignature, Symbols: candidates[:1], Signature: sig}, nil
}

// deriveSignature implements §4.8's heuristic fallback: for callable kinds,
// truncate at the first "{" or "=>" following the closing ")"; for
// container kinds, the first line plus an elided body marker.
func deriveSignature(kind index.SymbolKind, source string) string {
	switch kind {
	case index.KindMethod, index.KindFunction, index.KindConstructor:
		loc := signatureCut.FindStringIndex(source)
		if loc == nil {
			return firstLine(source)
		}
		return strings.TrimSpace(source[:loc[0]+1])
	case index.KindClass, index.KindEnum, index.KindMixin, index.KindExtension:
		return firstLine(source) + " { ... }"
	default:
		return firstLine(source)
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func (e *Executor) execFind(q *Query) (*Result, error) {
	syms, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindSymbols, Symbols: syms}, nil
}

func (e *Executor) execWhich(q *Query) (*Result, error) {
	syms, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	sort.SliceStable(syms, func(i, j int) bool {
		ri, rj := rankOf(syms[i].Kind), rankOf(syms[j].Kind)
		if ri != rj {
			return ri < rj
		}
		ci := containerOf(e.Reg, syms[i])
		cj := containerOf(e.Reg, syms[j])
		return ci < cj
	})
	return &Result{Kind: KindSymbols, Symbols: syms}, nil
}

func containerOf(r *registry.Registry, s *index.SymbolInformation) string {
	parentID := index.ParentID(s.ID)
	if parentID == "" {
		return ""
	}
	if parent := r.GetSymbol(parentID); parent != nil {
		return index.ExtractName(parent)
	}
	return ""
}

func (e *Executor) execGrep(q *Query) (*Result, error) {
	opts := index.GrepOptions{Pattern: q.Target, IgnoreCase: q.Pattern.CaseInsensitive}
	if q.GrepFlags.Literal {
		opts.Pattern = regexp.QuoteMeta(q.Target)
	}
	if q.GrepFlags.WordBoundary {
		opts.Pattern = `\b` + opts.Pattern + `\b`
	}
	if v, ok := q.FilterValue("lang"); ok {
		opts.Lang = v
	}
	if v, ok := q.FilterValue("in"); ok {
		opts.In = v
	}

	matches, err := e.Reg.Grep(opts, q.GrepFlags.WidenExternal)
	if err != nil {
		return nil, errors.Wrap(errors.BadQuery, "invalid grep pattern", err)
	}
	matches = applyGrepShaping(matches, q.GrepFlags)
	if len(matches) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindGrep, Grep: matches}, nil
}

// applyGrepShaping applies the per-file cap and include/exclude filename
// filters the index's Grep itself has no notion of.
func applyGrepShaping(matches []index.GrepMatch, flags GrepFlags) []index.GrepMatch {
	if flags.Include == "" && flags.Exclude == "" && flags.MaxPerFile == 0 {
		return matches
	}
	counts := make(map[string]int)
	var out []index.GrepMatch
	for _, m := range matches {
		if flags.Include != "" && !strings.Contains(m.File, flags.Include) {
			continue
		}
		if flags.Exclude != "" && strings.Contains(m.File, flags.Exclude) {
			continue
		}
		if flags.MaxPerFile > 0 && counts[m.File] >= flags.MaxPerFile {
			continue
		}
		counts[m.File]++
		out = append(out, m)
	}
	return out
}

func (e *Executor) execCallEdges(q *Query, fn func(id string) []string) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []*index.SymbolInformation
	for _, c := range candidates {
		for _, id := range fn(c.ID) {
			if seen[id] {
				continue
			}
			seen[id] = true
			if sym := e.Reg.GetSymbol(id); sym != nil {
				out = append(out, sym)
			}
		}
	}
	if len(out) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindSymbols, Symbols: out}, nil
}

// execDeps unions everything a symbol calls, plus — when it is a class —
// everything its members call, pruning self-references and calls between
// the class's own members.
func (e *Executor) execDeps(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	sym := candidates[0]

	internal := map[string]bool{sym.ID: true}
	callers := []string{sym.ID}
	if containerKinds[sym.Kind] {
		for _, m := range e.Reg.MembersOf(sym.ID) {
			internal[m.ID] = true
			callers = append(callers, m.ID)
		}
	}

	seen := make(map[string]bool)
	var out []*index.SymbolInformation
	for _, callerID := range callers {
		for _, calleeID := range e.Reg.GetCalls(callerID) {
			if internal[calleeID] || seen[calleeID] {
				continue
			}
			seen[calleeID] = true
			if target := e.Reg.GetSymbol(calleeID); target != nil {
				out = append(out, target)
			}
		}
	}
	if len(out) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindSymbols, Symbols: out}, nil
}

var importLiteral = regexp.MustCompile(`(?:import|export)\s+['"]([^'"]+)['"]`)

func (e *Executor) execImports(q *Query) (*Result, error) {
	path, ok := e.symbolFilePath(q)
	if !ok {
		path = q.Target
	}
	literals, err := extractLiterals(path, func(keyword string) bool { return true })
	if err != nil {
		return nil, errors.Wrap(errors.IoFailure, "read file for imports", err)
	}
	if len(literals) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	var resolved []string
	for _, lit := range literals {
		if doc := e.resolveDocByLiteral(lit); doc != nil {
			resolved = append(resolved, doc.RelativePath)
		}
	}
	return &Result{Kind: KindFiles, Files: append(literals, resolved...)}, nil
}

func (e *Executor) execExports(q *Query) (*Result, error) {
	target := q.Target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		var out []*index.SymbolInformation
		for _, ix := range e.Reg.AllIndexes() {
			for _, sym := range ix.AllSymbols() {
				if sym.DefiningFile == "" || index.ParentID(sym.ID) != "" {
					continue
				}
				if !strings.HasPrefix(filepath.ToSlash(sym.DefiningFile), filepath.ToSlash(target)) {
					continue
				}
				if isPublic(sym) {
					out = append(out, sym)
				}
			}
		}
		if len(out) == 0 {
			return &Result{Kind: KindEmpty}, nil
		}
		return &Result{Kind: KindSymbols, Symbols: out}, nil
	}

	literals, err := extractLiterals(target, func(keyword string) bool { return keyword == "export" })
	if err != nil {
		return nil, errors.Wrap(errors.IoFailure, "read file for exports", err)
	}
	if len(literals) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindFiles, Files: literals}, nil
}

func isPublic(sym *index.SymbolInformation) bool {
	name := index.ExtractName(sym)
	return name != "" && !strings.HasPrefix(name, "_")
}

func (e *Executor) symbolFilePath(q *Query) (string, bool) {
	candidates, err := e.resolveCandidates(q)
	if err != nil || len(candidates) == 0 {
		return "", false
	}
	return e.Reg.ResolveFilePath(candidates[0].ID)
}

func (e *Executor) resolveDocByLiteral(literal string) *index.Document {
	for _, ix := range e.Reg.AllIndexes() {
		for _, doc := range ix.Documents() {
			if doc.RelativePath == literal || strings.HasSuffix(doc.RelativePath, "/"+filepath.Base(literal)) {
				return doc
			}
		}
	}
	return nil
}

func extractLiterals(path string, keep func(keyword string) bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		m := importLiteral.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		keyword := "import"
		if strings.HasPrefix(strings.TrimSpace(line), "export") {
			keyword = "export"
		}
		if keep(keyword) {
			out = append(out, m[1])
		}
	}
	return out, nil
}

func (e *Executor) execSymbols(q *Query) (*Result, error) {
	pattern := q.Target
	if pattern == "" {
		pattern = "*"
	}
	syms, err := e.Reg.FindSymbols(pattern, registry.ScopeProjectAndLoaded)
	if err != nil {
		return nil, errors.Wrap(errors.BadQuery, "invalid pattern", err)
	}
	syms = applyFilters(e.Reg, syms, q.Filters)
	if len(syms) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindSymbols, Symbols: syms}, nil
}

func (e *Executor) execGet(q *Query) (*Result, error) {
	sym := e.Reg.GetSymbol(q.Target)
	if sym == nil {
		return nil, errors.Wrap(errors.NotFound, fmt.Sprintf("no symbol with id %q", q.Target), nil)
	}
	return &Result{Kind: KindSymbols, Symbols: []*index.SymbolInformation{sym}}, nil
}

func (e *Executor) execFiles(q *Query) (*Result, error) {
	in, _ := q.FilterValue("in")
	seen := make(map[string]bool)
	var out []string
	for _, ix := range e.Reg.AllIndexes() {
		for _, doc := range ix.Documents() {
			if in != "" && !strings.HasPrefix(doc.RelativePath, in) {
				continue
			}
			if !seen[doc.RelativePath] {
				seen[doc.RelativePath] = true
				out = append(out, doc.RelativePath)
			}
		}
	}
	sort.Strings(out)
	if len(out) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindFiles, Files: out}, nil
}

func (e *Executor) execStats(q *Query) (*Result, error) {
	stats := map[string]int{}
	files := make(map[string]bool)
	for _, ix := range e.Reg.AllIndexes() {
		for _, sym := range ix.AllSymbols() {
			stats["symbols"]++
			stats["kind:"+string(sym.Kind)]++
		}
		for _, doc := range ix.Documents() {
			files[doc.RelativePath] = true
		}
	}
	stats["files"] = len(files)
	return &Result{Kind: KindStats, Stats: stats}, nil
}

func (e *Executor) execClassify(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	sym := candidates[0]
	return &Result{
		Kind:           KindClassification,
		Symbols:        candidates[:1],
		Classification: e.classify(sym),
	}, nil
}

// classify adapts the teacher's inferVisibility/isTestFile heuristics: a
// leading "_" is private, otherwise visibility follows the per-language
// exported-identifier convention (only Go's uppercase-first-letter rule is
// implemented — this engine's analyzer surface is Go-only).
func (e *Executor) classify(sym *index.SymbolInformation) *Classification {
	name := index.ExtractName(sym)
	visibility := "public"
	if strings.HasPrefix(name, "_") {
		visibility = "private"
	} else if len(name) > 0 && !(name[0] >= 'A' && name[0] <= 'Z') {
		visibility = "private"
	}
	return &Classification{
		Kind:       sym.Kind,
		Visibility: visibility,
		Container:  containerOf(e.Reg, sym),
		IsTestFile: isTestFile(sym.DefiningFile),
	}
}

func isTestFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "_test.") ||
		strings.Contains(lower, "/test/") ||
		strings.Contains(lower, "/tests/") ||
		strings.HasSuffix(lower, "_test.go")
}

// execStoryboard renders the causal call path(s) from synthetic entrypoints
// (symbols with no recorded callers) down to the target, discovered by
// following callers transitively from the target, bounded by maxDepth and
// maxPaths.
func (e *Executor) execStoryboard(q *Query) (*Result, error) {
	candidates, err := e.resolveCandidates(q)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	target := candidates[0]

	var paths []StoryboardPath
	var walk func(id string, chain []string, depth int)
	walk = func(id string, chain []string, depth int) {
		if len(paths) >= defaultMaxPaths {
			return
		}
		callers := e.Reg.GetCallers(id)
		if len(callers) == 0 || depth >= defaultMaxDepth {
			steps := make([]StoryboardStep, 0, len(chain))
			for i := len(chain) - 1; i >= 0; i-- {
				sym := e.Reg.GetSymbol(chain[i])
				name := chain[i]
				if sym != nil {
					name = index.ExtractName(sym)
				}
				steps = append(steps, StoryboardStep{SymbolID: chain[i], DisplayName: name})
			}
			paths = append(paths, StoryboardPath{Steps: steps})
			return
		}
		for _, callerID := range callers {
			if len(paths) >= defaultMaxPaths {
				return
			}
			if containsID(chain, callerID) {
				continue // cycle guard
			}
			walk(callerID, append(chain, callerID), depth+1)
		}
	}
	walk(target.ID, []string{target.ID}, 0)

	if len(paths) == 0 {
		return &Result{Kind: KindEmpty}, nil
	}
	return &Result{Kind: KindStoryboard, Symbols: candidates[:1], Storyboards: paths}, nil
}

func containsID(chain []string, id string) bool {
	for _, c := range chain {
		if c == id {
			return true
		}
	}
	return false
}
