package graph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/flatbundle/flatbundle/internal/scope"
)

// Analyse walks the module's CST once, building the scope tree and the
// per-statement Defines/Modifies/DependsOn/StronglyDependsOn sets of spec
// §4.1, splitting multi-declarator variable declarations (spec §4.1) and
// recording import/export bookkeeping (spec §4.2) as it goes. It must run
// exactly once per Module, before any call to Mark or MarkAllStatements.
//
// Grounded on evanw-esbuild/internal/js_parser's single recursive-descent
// pass that builds scopes and resolves references together; reworked here
// to walk a pre-built tree-sitter CST instead of parsing from tokens.
func (m *Module) Analyse() error {
	m.ModScope = scope.New(scope.Module, nil)

	count := int(m.Root.NamedChildCount())
	for i := 0; i < count; i++ {
		node := m.Root.NamedChild(i)
		var err error
		switch node.Type() {
		case "import_statement":
			err = m.addImportStatement(node)
		case "export_statement":
			err = m.addExportStatement(node)
		case "lexical_declaration", "variable_declaration":
			m.splitVarDecl(node, nil)
		default:
			m.addGenericStatement(node)
		}
		if err != nil {
			return err
		}
	}
	m.finalizePostAnalysis()
	return nil
}

func (m *Module) finalizePostAnalysis() {
	if def, ok := m.Exports["default"]; ok && def.Kind == ExportDefault && def.Identifier != "" {
		def.IsModified = len(m.Modifications[def.Identifier]) > 0
	}
}

func (m *Module) sourceBytes() []byte {
	return []byte(m.Source.Contents)
}

func (m *Module) addGenericStatement(node *sitter.Node) {
	stmt := m.appendStatement(newStatement(m, node, m.ModScope))
	m.walk(stmt, m.ModScope, node, true)
}

// walk is the single recursive dispatcher over statement and expression
// nodes alike; tree-sitter's CST does not distinguish the two categories
// structurally in any way that matters for free-variable analysis. strong
// tracks spec §4.1's "executed at module-load time" condition: it starts
// true for every top-level statement and flips to false on crossing into
// any function or class body.
func (m *Module) walk(stmt *Statement, sc *scope.Scope, n *sitter.Node, strong bool) {
	if n == nil {
		return
	}
	src := m.sourceBytes()

	switch n.Type() {
	case "identifier", "shorthand_property_identifier":
		m.readIdentifier(stmt, sc, n, strong)

	case "this", "super", "string", "template_string", "number", "regex", "true", "false", "null", "undefined":
		// Leaves that never reference a binding.

	case "member_expression":
		m.walk(stmt, sc, n.ChildByFieldName("object"), strong)

	case "subscript_expression":
		m.walk(stmt, sc, n.ChildByFieldName("object"), strong)
		m.walk(stmt, sc, n.ChildByFieldName("index"), strong)

	case "assignment_expression":
		m.walkAssignTarget(stmt, sc, n.ChildByFieldName("left"), strong, false)
		m.walk(stmt, sc, n.ChildByFieldName("right"), strong)

	case "augmented_assignment_expression":
		m.walkAssignTarget(stmt, sc, n.ChildByFieldName("left"), strong, true)
		m.walk(stmt, sc, n.ChildByFieldName("right"), strong)

	case "update_expression":
		m.walkAssignTarget(stmt, sc, n.ChildByFieldName("argument"), strong, true)

	case "statement_block":
		blockScope := scope.New(scope.Block, sc)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			m.walk(stmt, blockScope, n.NamedChild(i), strong)
		}

	case "lexical_declaration", "variable_declaration":
		m.walkNestedVarDecl(stmt, sc, n, strong)

	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			m.declareNameNode(stmt, sc, name, true)
		}
		m.walkFunctionLike(stmt, sc, n)

	case "class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			m.declareNameNode(stmt, sc, name, false)
		}
		m.walkClassLike(stmt, sc, n, strong)

	case "function_expression", "generator_function", "method_definition", "arrow_function":
		m.walkFunctionLike(stmt, sc, n)

	case "class_expression", "class":
		m.walkClassLike(stmt, sc, n, strong)

	case "catch_clause":
		catchScope := scope.New(scope.CatchBinding, sc)
		if param := n.ChildByFieldName("parameter"); param != nil {
			for _, nm := range collectPatternNames(param, src) {
				catchScope.Declare(nm)
			}
		}
		m.walk(stmt, catchScope, n.ChildByFieldName("body"), strong)

	case "for_statement", "for_in_statement":
		loopScope := scope.New(scope.Block, sc)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			m.walk(stmt, loopScope, n.NamedChild(i), strong)
		}

	default:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			m.walk(stmt, sc, n.NamedChild(i), strong)
		}
	}
}

// walkNestedVarDecl handles a `var`/`let`/`const` declaration encountered
// anywhere other than directly as a top-level statement (e.g. inside a
// function body or a for-loop head). Top-level declarations go through
// splitVarDecl instead, which additionally splits into one Statement per
// declarator.
func (m *Module) walkNestedVarDecl(stmt *Statement, sc *scope.Scope, n *sitter.Node, strong bool) {
	src := m.sourceBytes()
	hoisted := isVarKeyword(n, src)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		m.declarePatternOrIdentifier(stmt, sc, decl.ChildByFieldName("name"), hoisted)
		if val := decl.ChildByFieldName("value"); val != nil {
			m.walk(stmt, sc, val, strong)
		}
	}
}

// declarePatternOrIdentifier declares every name bound by nameNode, which
// is either a bare identifier (the common case, recorded as a
// NameOccurrence too) or a destructuring pattern (whose individual leaves
// are declared without a recorded declaration-site occurrence).
func (m *Module) declarePatternOrIdentifier(stmt *Statement, sc *scope.Scope, nameNode *sitter.Node, hoisted bool) {
	if nameNode == nil {
		return
	}
	if nameNode.Type() == "identifier" {
		m.declareNameNode(stmt, sc, nameNode, hoisted)
		return
	}
	for _, nm := range collectPatternNames(nameNode, m.sourceBytes()) {
		m.declareName(stmt, sc, nm, hoisted)
	}
}

func isVarKeyword(n *sitter.Node, src []byte) bool {
	c0 := n.Child(0)
	return c0 != nil && c0.Content(src) == "var"
}

// walkAssignTarget handles the left side of an assignment/update expression.
// A plain `=` only writes; `+=`-style and `++`/`--` both read and write.
func (m *Module) walkAssignTarget(stmt *Statement, sc *scope.Scope, n *sitter.Node, strong, alsoRead bool) {
	if n == nil {
		return
	}
	src := m.sourceBytes()
	switch n.Type() {
	case "identifier":
		name := n.Content(src)
		declScope := sc.Resolve(name)
		if declScope == nil || declScope == m.ModScope {
			m.recordModify(stmt, name)
			if alsoRead {
				stmt.addDependsOn(name, strong)
			}
			stmt.NameOccurrences = append(stmt.NameOccurrences, NameOccurrence{
				Start: int32(n.StartByte()), End: int32(n.EndByte()), Name: name,
			})
			if declScope == nil {
				m.bundle.RecordAssumedGlobal(name)
			}
		}
	case "member_expression":
		// `foo.bar = 1` depends on (reads) foo; the property itself isn't a
		// free-variable reference.
		m.walk(stmt, sc, n.ChildByFieldName("object"), strong)
	case "subscript_expression":
		m.walk(stmt, sc, n.ChildByFieldName("object"), strong)
		m.walk(stmt, sc, n.ChildByFieldName("index"), strong)
	case "array_pattern", "object_pattern", "pair_pattern", "rest_pattern", "assignment_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			m.walkAssignTarget(stmt, sc, n.NamedChild(i), strong, alsoRead)
		}
	default:
		m.walk(stmt, sc, n, strong)
	}
}

// readIdentifier implements spec §4.1's free-variable rule: an identifier
// read counts toward dependsOn only if it resolves to the module's own top
// level, or doesn't resolve at all (a genuine global, also recorded on the
// bundle for later reporting). A read that resolves to some nested
// function/block scope is purely local and contributes nothing — and,
// since it can never collide with another module's top-level binding once
// flattened, it is never recorded as a NameOccurrence either.
func (m *Module) readIdentifier(stmt *Statement, sc *scope.Scope, n *sitter.Node, strong bool) {
	src := m.sourceBytes()
	name := n.Content(src)
	declScope := sc.Resolve(name)
	if declScope != nil && declScope != m.ModScope {
		return
	}
	stmt.addDependsOn(name, strong)
	stmt.NameOccurrences = append(stmt.NameOccurrences, NameOccurrence{
		Start: int32(n.StartByte()), End: int32(n.EndByte()), Name: name,
	})
	if declScope == nil {
		m.bundle.RecordAssumedGlobal(name)
	}
}

func (m *Module) walkFunctionLike(stmt *Statement, sc *scope.Scope, n *sitter.Node) {
	src := m.sourceBytes()
	fnScope := scope.New(scope.Function, sc)

	params := n.ChildByFieldName("parameters")
	if params == nil {
		params = n.ChildByFieldName("parameter")
	}
	if params != nil {
		if params.Type() == "identifier" {
			fnScope.Declare(params.Content(src))
		} else {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				p := params.NamedChild(i)
				for _, nm := range collectPatternNames(p, src) {
					fnScope.Declare(nm)
				}
				if p.Type() == "assignment_pattern" {
					m.walk(stmt, fnScope, p.ChildByFieldName("right"), false)
				}
			}
		}
	}

	if name := n.ChildByFieldName("name"); name != nil && n.Type() != "function_declaration" && n.Type() != "generator_function_declaration" {
		// A named function expression binds its own name only within its own
		// body, never leaking outward.
		fnScope.Declare(name.Content(src))
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Type() == "statement_block" {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			m.walk(stmt, fnScope, body.NamedChild(i), false)
		}
	} else {
		// Arrow function with a bare expression body.
		m.walk(stmt, fnScope, body, false)
	}
}

func (m *Module) walkClassLike(stmt *Statement, sc *scope.Scope, n *sitter.Node, strong bool) {
	src := m.sourceBytes()
	// `extends Foo` is evaluated eagerly at class-definition time, so it
	// keeps the caller's strength; everything inside the class body is
	// treated as weak (spec §4.1 simplification: methods and field
	// initializers alike only run later, on instantiation or call).
	if heritage := n.ChildByFieldName("superclass"); heritage != nil {
		m.walk(stmt, sc, heritage, strong)
	}

	classScope := scope.New(scope.ClassBody, sc)
	if name := n.ChildByFieldName("name"); name != nil {
		classScope.Declare(name.Content(src))
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_definition":
			m.walkFunctionLike(stmt, classScope, member)
		case "field_definition", "public_field_definition":
			if val := member.ChildByFieldName("value"); val != nil {
				m.walk(stmt, classScope, val, false)
			}
		default:
			m.walk(stmt, classScope, member, false)
		}
	}
}

// collectPatternNames flattens a binding target (identifier or destructuring
// pattern) into the list of local names it declares, in left-to-right order.
func collectPatternNames(n *sitter.Node, src []byte) []string {
	var out []string
	collectPatternNamesInto(n, src, &out)
	return out
}

func collectPatternNamesInto(n *sitter.Node, src []byte, out *[]string) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		*out = append(*out, n.Content(src))
	case "object_pattern", "array_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			collectPatternNamesInto(n.NamedChild(i), src, out)
		}
	case "pair_pattern":
		collectPatternNamesInto(n.ChildByFieldName("value"), src, out)
	case "rest_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			collectPatternNamesInto(n.NamedChild(i), src, out)
		}
	case "assignment_pattern":
		collectPatternNamesInto(n.ChildByFieldName("left"), src, out)
	}
}

func firstNamedChildOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

func hasAnonymousChildOfType(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.Type() == typ {
			return true
		}
	}
	return false
}

// stringContents extracts the quoted text of a `string` node, unwrapping
// tree-sitter-javascript's string_fragment child when present.
func stringContents(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "string_fragment" {
			return child.Content(src)
		}
	}
	return n.Content(src)
}
