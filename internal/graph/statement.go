package graph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/flatbundle/flatbundle/internal/logger"
	"github.com/flatbundle/flatbundle/internal/scope"
)

// StmtKind classifies a Statement for markAllStatements (spec §4.4) and for
// codegen's decision about whether to ever print it.
type StmtKind uint8

const (
	StmtOther StmtKind = iota
	StmtImportBare    // `import 's'` — no specifiers
	StmtImportDecl    // `import ... from 's'` — has specifiers
	StmtExportClause  // `export {a as b}` (optionally `from`) or `export * from`
)

// Statement is spec §3's Statement: one top-level AST node, or one
// declarator of a split multi-declarator variable declaration (spec §4.1:
// "This split is essential: it is the granularity at which dead code is
// eliminated.").
type Statement struct {
	Node   *sitter.Node
	Module *Module
	Index  int
	Scope  *scope.Scope
	Range  logger.Range

	Kind StmtKind

	Defines           map[string]bool
	Modifies          map[string]bool
	DependsOn         map[string]bool
	StronglyDependsOn map[string]bool

	IsIncluded          bool
	IsImportDeclaration bool

	// ImportSource is the specifier text for import statements (both bare
	// and specifier-carrying forms), kept on the Statement itself so
	// markAllStatements (spec §4.4) doesn't need a side table to find it.
	ImportSource string

	// DeclKind preserves the original `var`/`let`/`const` keyword across the
	// declarator split (spec §4.1).
	DeclKind string

	// NameOccurrences records every identifier occurrence within this
	// statement that resolves to a module-top-level binding or a free
	// global — the only occurrences that can ever need renaming once
	// flattened into a shared bundle scope, since everything else is
	// function/block-local and inherently collision-free across modules.
	// Collected during the same Analyse() walk that computes DependsOn, so
	// codegen never has to re-walk the CST to find them.
	NameOccurrences []NameOccurrence
}

// NameOccurrence is one identifier reference codegen must rewrite to the
// module's resolved canonical name when printing this statement.
type NameOccurrence struct {
	Start int32
	End   int32
	Name  string
}

// newStatement builds a Statement but does not assign its Index or append it
// to the module — callers go through Module.appendStatement so Index always
// equals final position in Statements (spec §3: "an ordered sequence of
// Statements, with index equal to position"), which for a split multi-
// declarator declaration is NOT the same as the original top-level child
// index of the "program" node.
func newStatement(module *Module, node *sitter.Node, sc *scope.Scope) *Statement {
	return &Statement{
		Node:   node,
		Module: module,
		Scope:  sc,
		Range: logger.Range{
			Loc: logger.Loc{Start: int32(node.StartByte())},
			Len: int32(node.EndByte() - node.StartByte()),
		},
		Defines:           map[string]bool{},
		Modifies:          map[string]bool{},
		DependsOn:         map[string]bool{},
		StronglyDependsOn: map[string]bool{},
	}
}

func (s *Statement) addDefine(name string) {
	s.Defines[name] = true
}

func (s *Statement) addModify(name string) {
	if !s.Defines[name] {
		s.Modifies[name] = true
	}
}

func (s *Statement) addDependsOn(name string, strong bool) {
	if s.Defines[name] {
		// Invariant (spec §3): defines ∩ dependsOn = ∅ for bindings produced by
		// s itself; self-references within s are internal.
		return
	}
	s.DependsOn[name] = true
	if strong {
		s.StronglyDependsOn[name] = true
	}
}

// sortedNames returns a deterministic iteration order over a name set, used
// anywhere statement sets are walked (marking order, reporting) so output is
// stable across runs without depending on Go's randomized map order.
func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	// Simple insertion sort is fine; statement-local sets are small.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
