// Package graph implements the in-scope core of spec.md: per-module static
// analysis (§4.1), import/export bookkeeping (§4.2), demand-driven
// tree-shaking (§4.3-§4.4), and canonical name resolution (§4.5). This file
// holds the data model of §3: Module, ImportBinding, ExportBinding,
// ExportDelegate, Statement.
//
// Grounded on evanw-esbuild/internal/graph's file/part bookkeeping shape,
// reworked onto spec's vocabulary (Statement, Module, mark) and its
// demand-driven per-name semantics, which is Rollup's shape, not esbuild's
// own whole-graph-up-front linking pass.
package graph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/flatbundle/flatbundle/internal/logger"
	"github.com/flatbundle/flatbundle/internal/scope"
)

// Fetcher resolves an import specifier relative to an importing module into
// a registered Module. It is the "Loader" external collaborator of spec §6;
// Module and Bundle depend only on this interface, never on a concrete
// filesystem implementation.
type Fetcher interface {
	FetchModule(source string, importerID string) (*Module, error)
}

// NamespaceRegistrar records modules that were pulled in wholesale because
// something imported them with `import * as ns`. Spec §4.3 item 1 calls
// this "internalNamespaceModules"; it lives on Bundle, but Module only needs
// to append to it, so it's expressed as a narrow interface here to avoid an
// import cycle between graph and bundle.
type NamespaceRegistrar interface {
	RegisterNamespaceModule(m *Module)
	RecordAssumedGlobal(name string)
}

// ImportBinding is spec §3's ImportBinding: `{source, name, localName,
// module?}`. Name is "default", "*", or a named export.
type ImportBinding struct {
	Source    string
	Name      string
	LocalName string
	Module    *Module // filled in lazily on first traversal
	Loc       logger.Loc
}

type ExportKind uint8

const (
	// ExportDefault is spec §3(a): a `default` export.
	ExportDefault ExportKind = iota
	// ExportReexport is spec §3(b): `export {a as b}` (optionally `from`).
	ExportReexport
	// ExportLocal is spec §3(c): a direct named declaration.
	ExportLocal
)

// ExportBinding is the tagged union of spec §3's three ExportBinding
// variants. Only the fields relevant to Kind are populated.
type ExportBinding struct {
	Kind ExportKind

	// Variant (a): default.
	Statement     *Statement
	DeclaredName  string // the name of the underlying declaration, if any
	Identifier    string // the referenced identifier, for `export default foo;`
	IsDeclaration bool
	IsAnonymous   bool
	IsModified    bool

	// Variant (b): re-export specifier.
	LocalName    string
	ExportedName string

	// Variant (c): direct named declaration shares Statement/LocalName above;
	// Expression names the declarator/initializer node for reference.
	Expression *sitter.Node
}

// ExportDelegate is one `export * from 'source'` clause (spec §3, §4.3).
type ExportDelegate struct {
	Statement *Statement
	Source    string
	Module    *Module // filled in lazily
}

// Module is spec §3's Module.
type Module struct {
	ID       string
	Source   logger.Source
	Root     *sitter.Node // the "program" node
	ModScope *scope.Scope

	Statements []*Statement

	Imports         map[string]*ImportBinding  // localName -> binding
	Exports         map[string]*ExportBinding  // exportedName -> binding
	ExportAlls      map[string]*ExportDelegate // name -> resolved delegate
	ExportDelegates []*ExportDelegate          // ordered `export * from` clauses

	Definitions   map[string]*Statement   // name -> the statement that declares it
	Modifications map[string][]*Statement // name -> ordered reassigning statements

	SuggestedNames map[string]string // localName -> suggested canonical name
	CanonicalNames map[string]string // localName -> resolved canonical name (cache)

	IsExternal bool

	// GlobalName is the pre-existing global variable an external module is
	// assumed to be available under (spec §9/config's "globals" mapping,
	// e.g. "react" -> "React" for a script-tag UMD build). Empty unless the
	// bundle's configuration names one; GetCanonicalName consults it instead
	// of synthesising a name for this module's bindings when set.
	GlobalName string

	bundle     NamespaceRegistrar
	fetcher    Fetcher
	markCache  map[string][]*Statement // memoised per (module,name); spec §4.3
	allMarked  bool
	markingAll bool
}

// NewExternal constructs the sentinel external Module for an unresolved bare
// specifier (spec §6 Loader: "returns a sentinel external Module with
// isExternal=true for unresolved bare specifiers").
func NewExternal(id string) *Module {
	return &Module{
		ID:         id,
		IsExternal: true,
		Imports:    map[string]*ImportBinding{},
		Exports:    map[string]*ExportBinding{},
		ExportAlls: map[string]*ExportDelegate{},

		Definitions:    map[string]*Statement{},
		Modifications:  map[string][]*Statement{},
		SuggestedNames: map[string]string{},
		CanonicalNames: map[string]string{},
		markCache:      map[string][]*Statement{},
	}
}

// New constructs a Module over a parsed CST, ready for analyse().
func New(id string, source logger.Source, root *sitter.Node, bundle NamespaceRegistrar, fetcher Fetcher) *Module {
	return &Module{
		ID:             id,
		Source:         source,
		Root:           root,
		Imports:        map[string]*ImportBinding{},
		Exports:        map[string]*ExportBinding{},
		ExportAlls:     map[string]*ExportDelegate{},
		Definitions:    map[string]*Statement{},
		Modifications:  map[string][]*Statement{},
		SuggestedNames: map[string]string{},
		CanonicalNames: map[string]string{},
		bundle:         bundle,
		fetcher:        fetcher,
		markCache:      map[string][]*Statement{},
	}
}

func (m *Module) fetch(specifier string) (*Module, error) {
	return m.fetcher.FetchModule(specifier, m.ID)
}

// appendStatement assigns stmt.Index from the current length of Statements
// and appends it, so Index always equals final position (spec §3).
func (m *Module) appendStatement(stmt *Statement) *Statement {
	stmt.Index = len(m.Statements)
	m.Statements = append(m.Statements, stmt)
	return stmt
}

// recordModify marks name as written by stmt, both on the statement itself
// and in the module-wide ordered Modifications table that default-export
// reordering (spec §4.3) and isModified (spec §3 ExportBinding variant a)
// consult.
func (m *Module) recordModify(stmt *Statement, name string) {
	stmt.addModify(name)
	if stmt.Defines[name] {
		return
	}
	list := m.Modifications[name]
	if len(list) > 0 && list[len(list)-1] == stmt {
		return
	}
	m.Modifications[name] = append(list, stmt)
}

// declareName records a declaration found anywhere within stmt's subtree.
// hoisted selects var/function-style hoisting to the nearest Function/Module
// scope vs. let/const/class's direct block scoping (spec §4.1). Only
// declarations that land in the module's own top-level scope are attributed
// to stmt's Defines and the module's Definitions table — a `var` declared
// deep inside a nested function never reaches module scope, so it never
// becomes part of any top-level Statement's bookkeeping.
func (m *Module) declareName(stmt *Statement, sc *scope.Scope, name string, hoisted bool) {
	var landed *scope.Scope
	if hoisted {
		landed = sc.HoistTarget()
		landed.Declare(name)
	} else {
		sc.Declare(name)
		landed = sc
	}
	if landed == m.ModScope {
		stmt.addDefine(name)
		if _, exists := m.Definitions[name]; !exists {
			m.Definitions[name] = stmt
		}
	}
}

// declareNameNode is declareName for the common case of a single plain
// identifier declaration (a function/class name, or a variable declarator
// whose pattern is a bare identifier rather than a destructuring pattern):
// it additionally records the declaration site itself as a NameOccurrence,
// so codegen renames `function foo` the same way it renames every `foo`
// reference. Destructuring pattern leaves go through declareName directly
// and do not get a recorded declaration-site occurrence — a known
// simplification, since renaming inside a pattern would require per-leaf
// node tracking collectPatternNames intentionally flattens away.
func (m *Module) declareNameNode(stmt *Statement, sc *scope.Scope, nameNode *sitter.Node, hoisted bool) {
	name := nameNode.Content(m.sourceBytes())
	m.declareName(stmt, sc, name, hoisted)
	if stmt.Defines[name] {
		stmt.NameOccurrences = append(stmt.NameOccurrences, NameOccurrence{
			Start: int32(nameNode.StartByte()), End: int32(nameNode.EndByte()), Name: name,
		})
	}
}
