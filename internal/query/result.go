package query

import (
	"fmt"
	"strings"

	"symbex/internal/index"
)

// ResultKind discriminates Result's tagged-sum shape.
type ResultKind string

const (
	KindSymbols        ResultKind = "symbols"
	KindOccurrences    ResultKind = "occurrences"
	KindSource         ResultKind = "source"
	KindSignature      ResultKind = "signature"
	KindGrep           ResultKind = "grep"
	KindFiles          ResultKind = "files"
	KindStats          ResultKind = "stats"
	KindClassification ResultKind = "classification"
	KindStoryboard     ResultKind = "storyboard"
	KindEmpty          ResultKind = "empty"
)

// Classification is classify's per-symbol report, grounded on the teacher's
// inferVisibility/isTestFile heuristics.
type Classification struct {
	Kind       index.SymbolKind
	Visibility string // "public", "private", or "internal"
	Container  string
	IsTestFile bool
}

// StoryboardStep is one hop of a causal call path rendered by storyboard,
// from a synthetic entrypoint down to the queried target.
type StoryboardStep struct {
	SymbolID    string
	DisplayName string
}

// StoryboardPath is one complete entrypoint-to-target call chain.
type StoryboardPath struct {
	Steps []StoryboardStep
}

// Result is the tagged-sum value every executed query produces. Exactly the
// fields matching Kind are meaningful; the rest are zero.
type Result struct {
	Kind ResultKind

	Symbols        []*index.SymbolInformation
	Occurrences    []*index.Occurrence
	Source         string
	Signature      string
	Grep           []index.GrepMatch
	Files          []string
	Stats          map[string]int
	Classification *Classification
	Storyboards    []StoryboardPath

	// Truncated reports that the result was capped below its natural size
	// (e.g. def's top-3 cutoff, refs' 10-candidate cap).
	Truncated bool
}

// Text renders a human-readable rendering of Result, the same shape a CLI
// would print to a terminal.
func (r *Result) Text() string {
	if r == nil {
		return "(no result)"
	}
	switch r.Kind {
	case KindEmpty:
		return "no matches"
	case KindSymbols, KindOccurrences:
		return r.textSymbolsOrOccurrences()
	case KindSource:
		return r.Source
	case KindSignature:
		return r.Signature
	case KindGrep:
		return r.textGrep()
	case KindFiles:
		return strings.Join(r.Files, "\n")
	case KindStats:
		return r.textStats()
	case KindClassification:
		return r.textClassification()
	case KindStoryboard:
		return r.textStoryboard()
	default:
		return ""
	}
}

func (r *Result) textSymbolsOrOccurrences() string {
	var b strings.Builder
	for _, s := range r.Symbols {
		fmt.Fprintf(&b, "%s  %s  %s\n", s.Kind, s.ID, s.DefiningFile)
	}
	for _, o := range r.Occurrences {
		fmt.Fprintf(&b, "%s:%d  %s\n", o.File, o.StartLine, o.SymbolID)
	}
	if r.Truncated {
		b.WriteString("(truncated)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Result) textGrep() string {
	var b strings.Builder
	for _, m := range r.Grep {
		fmt.Fprintf(&b, "%s:%d: %s\n", m.File, m.Line, m.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Result) textStats() string {
	var b strings.Builder
	for k, v := range r.Stats {
		fmt.Fprintf(&b, "%s: %d\n", k, v)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Result) textClassification() string {
	c := r.Classification
	if c == nil {
		return ""
	}
	return fmt.Sprintf("kind=%s visibility=%s container=%s test=%v", c.Kind, c.Visibility, c.Container, c.IsTestFile)
}

func (r *Result) textStoryboard() string {
	var b strings.Builder
	for _, path := range r.Storyboards {
		names := make([]string, 0, len(path.Steps))
		for _, step := range path.Steps {
			names = append(names, step.DisplayName)
		}
		fmt.Fprintln(&b, strings.Join(names, " -> "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ExtractedSymbols returns every symbol id carried by Result, for pipe
// composition's "previous stage's extracted symbols" rule.
func (r *Result) ExtractedSymbols() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, s := range r.Symbols {
		add(s.ID)
	}
	for _, o := range r.Occurrences {
		add(o.SymbolID)
	}
	return out
}
