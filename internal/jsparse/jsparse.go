// Package jsparse satisfies the "Parser" external collaborator of spec.md
// §6 ("assumed to produce a standard ECMAScript AST with byte offsets")
// concretely, using a real grammar instead of a hand-rolled recursive-
// descent parser. The returned concrete syntax tree already carries byte
// offsets on every node, so it doubles as the AST the rest of the core
// analyses — see internal/graph, which walks it directly.
package jsparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/flatbundle/flatbundle/internal/errs"
)

// Tree owns a parsed module: the tree-sitter tree, its root "program" node,
// and the raw source bytes every node's Content/StartByte/EndByte is
// relative to. Callers must call Close when done with it.
type Tree struct {
	tree   *sitter.Tree
	Root   *sitter.Node
	Source []byte
}

func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Parser wraps a tree-sitter parser configured for the JavaScript grammar.
// Grounded on ludo-technologies-jscan/internal/parser.Parser and
// gnana997-uispec/pkg/parser.ParserManager, simplified to the single
// language flatbundle's core needs.
type Parser struct {
	delegate *sitter.Parser
}

func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	return &Parser{delegate: p}
}

func (p *Parser) Close() {
	p.delegate.Close()
}

// Parse parses one module's source text. The file name is only used to
// build a readable ParseError; parsing itself is grammar-driven.
func (p *Parser) Parse(file string, source []byte) (*Tree, error) {
	tree, err := p.delegate.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &errs.ParseError{File: file, Message: err.Error()}
	}
	if tree == nil {
		return nil, &errs.ParseError{File: file, Message: "parser returned no tree"}
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, &errs.ParseError{File: file, Message: "no root node"}
	}
	if root.HasError() {
		// Tree-sitter is error-tolerant and still returns a best-effort tree for
		// invalid syntax. The core treats any parse error as a hard failure,
		// same as spec §7's ParseError, rather than silently analysing a
		// partial tree.
		tree.Close()
		return nil, &errs.ParseError{File: file, Message: fmt.Sprintf("syntax error near byte %d", firstErrorByte(root))}
	}
	return &Tree{tree: tree, Root: root, Source: source}, nil
}

// ScanImportSpecifiers returns every source-string specifier referenced by
// a top-level import or re-exporting export statement, in source order,
// without otherwise walking or interpreting the tree. It exists purely for
// internal/loader's concurrent Preload pass, which only needs to discover
// which files an import graph touches, not analyse them.
func ScanImportSpecifiers(t *Tree) []string {
	var out []string
	count := int(t.Root.NamedChildCount())
	for i := 0; i < count; i++ {
		node := t.Root.NamedChild(i)
		switch node.Type() {
		case "import_statement", "export_statement":
			if source := node.ChildByFieldName("source"); source != nil {
				out = append(out, stringFragmentContent(source, t.Source))
			}
		}
	}
	return out
}

func stringFragmentContent(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "string_fragment" {
			return child.Content(src)
		}
	}
	return n.Content(src)
}

func firstErrorByte(n *sitter.Node) uint32 {
	if n.IsError() || n.IsMissing() {
		return n.StartByte()
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && child.HasError() {
			return firstErrorByte(child)
		}
	}
	return n.StartByte()
}
