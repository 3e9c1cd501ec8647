// Package golang is the concrete Analyzer the CLI wires into the
// Incremental Indexer and the External Index Builder for Go source trees.
// It parses with go-tree-sitter's bundled Go grammar rather than go/ast, the
// same grammar the test fixture analyzer (internal/testutil/tsfixture) uses,
// so both share one symbol-id convention: "local <path> <name>()." for a
// top-level func or method declaration.
package golang

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"symbex/internal/analyzer"
	"symbex/internal/index"
)

// Analyzer resolves and visits .go files under a single project root.
// GetResolvedUnit reads the file fresh on every call; there is no cached
// parse tree to invalidate, so NotifyFileChange is a no-op.
type Analyzer struct {
	projectRoot string
}

// New returns an Analyzer rooted at projectRoot.
func New(projectRoot string) *Analyzer {
	return &Analyzer{projectRoot: filepath.Clean(projectRoot)}
}

func (a *Analyzer) ProjectRoot() string { return a.projectRoot }

// GetResolvedUnit reads path (relative to ProjectRoot) and returns its bytes
// as the Visit payload. Non-Go files resolve to nil, the indexer's signal
// to skip them.
func (a *Analyzer) GetResolvedUnit(path string) (*analyzer.ResolvedUnit, error) {
	if !strings.HasSuffix(path, ".go") {
		return nil, nil
	}
	src, err := os.ReadFile(filepath.Join(a.projectRoot, path))
	if err != nil {
		return nil, err
	}
	return &analyzer.ResolvedUnit{Path: path, Payload: src}, nil
}

// NotifyFileChange is a no-op: GetResolvedUnit always re-reads from disk.
func (a *Analyzer) NotifyFileChange(path string) {}

// Visit parses the resolved unit's source and returns a Document with one
// definition occurrence per top-level func/method declaration plus a
// reference occurrence for every identifier call expression found inside
// each declaration's body.
func (a *Analyzer) Visit(unit *analyzer.ResolvedUnit) (*index.Document, error) {
	src, ok := unit.Payload.([]byte)
	if !ok {
		return nil, fmt.Errorf("golang analyzer: unexpected payload type %T", unit.Payload)
	}
	relativePath := filepath.ToSlash(unit.Path)

	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relativePath, err)
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
					ID:           symID,
					Kind:         index.KindFunction,
					DisplayName:  name,
					DefiningFile: relativePath,
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
