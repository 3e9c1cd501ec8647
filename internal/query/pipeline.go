package query

import (
	"strings"

	"symbex/internal/index"
)

// pipeSeparator is the DSL's literal stage separator.
const pipeSeparator = " | "

// RunPipeline splits raw on the literal " | " separator and runs each stage
// in turn. A stage after the first receives the previous stage's extracted
// symbols (Result.ExtractedSymbols): the stage's own target is dropped and
// replaced with each extracted symbol's name in turn, fanning out when more
// than one symbol survived, and results are merged with type-specific
// rules — occurrence lists concatenate, symbol lists dedupe by id. An
// empty or erroring stage short-circuits the rest of the pipeline.
func (e *Executor) RunPipeline(raw string) (*Result, error) {
	stages := strings.Split(raw, pipeSeparator)

	result, err := e.Run(stages[0])
	if err != nil {
		return nil, err
	}

	for _, stageRaw := range stages[1:] {
		if result == nil || result.Kind == KindEmpty {
			return result, nil
		}
		q, err := Parse(stageRaw)
		if err != nil {
			return nil, err
		}

		names := symbolNames(e, result.ExtractedSymbols())
		if len(names) == 0 {
			return &Result{Kind: KindEmpty}, nil
		}

		var merged *Result
		for _, name := range names {
			stageQuery := *q
			stageQuery.Target = name
			stageQuery.Pattern = classifyPattern(name)

			stageResult, err := e.Execute(&stageQuery)
			if err != nil {
				return nil, err
			}
			merged = mergeResults(merged, stageResult)
		}
		result = merged
	}
	return result, nil
}

// symbolNames resolves each extracted symbol id to its plain name, since a
// stage's own target syntax (a pattern search, a qualified lookup) expects a
// name, not a full SCIP id.
func symbolNames(e *Executor, ids []string) []string {
	var out []string
	for _, id := range ids {
		if sym := e.Reg.GetSymbol(id); sym != nil {
			out = append(out, index.ExtractName(sym))
		}
	}
	return out
}

// mergeResults combines two per-symbol stage results under the pipeline's
// type-specific rules. A nil prior result is replaced outright.
func mergeResults(prior, next *Result) *Result {
	if prior == nil {
		return next
	}
	if next == nil || next.Kind == KindEmpty {
		return prior
	}
	if prior.Kind == KindEmpty {
		return next
	}

	merged := *prior
	switch prior.Kind {
	case KindOccurrences:
		merged.Occurrences = append(merged.Occurrences, next.Occurrences...)
		merged.Symbols = dedupeSymbols(append(merged.Symbols, next.Symbols...))
	case KindSymbols:
		merged.Symbols = dedupeSymbols(append(merged.Symbols, next.Symbols...))
	case KindFiles:
		merged.Files = dedupeStrings(append(merged.Files, next.Files...))
	case KindGrep:
		merged.Grep = append(merged.Grep, next.Grep...)
	default:
		return next
	}
	return &merged
}

func dedupeSymbols(syms []*index.SymbolInformation) []*index.SymbolInformation {
	seen := make(map[string]bool)
	var out []*index.SymbolInformation
	for _, s := range syms {
		if s == nil || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func dedupeStrings(ss []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range ss {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
