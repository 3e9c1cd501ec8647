// Package tsfixture builds genuinely-parsed Document fixtures for tests in
// internal/index and internal/incremental, using go-tree-sitter's bundled Go
// grammar to find real function/method spans instead of hand-writing
// occurrence ranges line-by-line. It is not the language analyzer itself
// (out of scope); it only stands in for one during tests.
package tsfixture

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"symbex/internal/index"
)

// BuildGoDocument parses src as Go source and returns a Document populated
// with one definition occurrence per top-level func/method declaration,
// plus a reference occurrence for every identifier call expression found
// inside each declaration's body (so call-graph tests have real call edges
// to exercise, not synthetic ones).
func BuildGoDocument(relativePath string, src []byte) (*index.Document, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse fixture source: %w", err)
	}
	root := tree.RootNode()

	doc := &index.Document{RelativePath: relativePath, Language: "go"}

	var walk func(n *sitter.Node, enclosing string)
	walk = func(n *sitter.Node, enclosing string) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_declaration", "method_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode != nil {
				name := nameNode.Content(src)
				symID := fmt.Sprintf("local %s %s().", relativePath, name)
				startLine := int(n.StartPoint().Row) + 1
				endLine := int(n.EndPoint().Row) + 1

				doc.Symbols = append(doc.Symbols, &index.SymbolInformation{
					ID:          symID,
					Kind:        index.KindFunction,
					DisplayName: name,
				})
				doc.Occurrences = append(doc.Occurrences, &index.Occurrence{
					File:             relativePath,
					SymbolID:         symID,
					StartLine:        startLine,
					EndLine:          startLine,
					EnclosingEndLine: endLine,
					HasEnclosing:     true,
					RoleMask:         index.RoleDefinition,
				})
				for i := 0; i < int(n.ChildCount()); i++ {
					walk(n.Child(i), symID)
				}
				return
			}
		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn != nil && fn.Type() == "identifier" && enclosing != "" {
				callee := fmt.Sprintf("local %s %s().", relativePath, fn.Content(src))
				line := int(fn.StartPoint().Row) + 1
				doc.Occurrences = append(doc.Occurrences, &index.Occurrence{
					File:      relativePath,
					SymbolID:  callee,
					StartLine: line,
					EndLine:   line,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), enclosing)
		}
	}
	walk(root, "")

	return doc, nil
}
