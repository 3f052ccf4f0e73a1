package graph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/flatbundle/flatbundle/internal/errs"
	"github.com/flatbundle/flatbundle/internal/logger"
)

// addImportStatement handles spec §4.2's import forms: bare (`import 's'`),
// default, namespace (`import * as ns`), and named (optionally aliased),
// any of which may appear together in one clause except the bare form.
func (m *Module) addImportStatement(node *sitter.Node) error {
	src := m.sourceBytes()
	stmt := m.appendStatement(newStatement(m, node, m.ModScope))
	stmt.IsImportDeclaration = true

	source := ""
	if sourceNode := node.ChildByFieldName("source"); sourceNode != nil {
		source = stringContents(sourceNode, src)
	}
	stmt.ImportSource = source

	clause := firstNamedChildOfType(node, "import_clause")
	if clause == nil {
		stmt.Kind = StmtImportBare
		return nil
	}
	stmt.Kind = StmtImportDecl

	for i := 0; i < int(clause.NamedChildCount()); i++ {
		part := clause.NamedChild(i)
		switch part.Type() {
		case "identifier":
			local := part.Content(src)
			if err := m.bindImport(stmt, local, source, "default", part); err != nil {
				return err
			}
		case "namespace_import":
			idNode := firstNamedChildOfType(part, "identifier")
			if idNode == nil {
				continue
			}
			local := idNode.Content(src)
			if err := m.bindImport(stmt, local, source, "*", idNode); err != nil {
				return err
			}
		case "named_imports":
			for j := 0; j < int(part.NamedChildCount()); j++ {
				spec := part.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				aliasNode := spec.ChildByFieldName("alias")
				imported := nameNode.Content(src)
				local := imported
				if aliasNode != nil {
					local = aliasNode.Content(src)
				}
				if err := m.bindImport(stmt, local, source, imported, nameNode); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *Module) bindImport(stmt *Statement, local, source, name string, locNode *sitter.Node) error {
	if _, exists := m.Imports[local]; exists {
		return &errs.DuplicateImport{
			File:      m.ID,
			LocalName: local,
			Loc:       logger.Loc{Start: int32(locNode.StartByte())},
		}
	}
	m.Imports[local] = &ImportBinding{
		Source:    source,
		Name:      name,
		LocalName: local,
		Loc:       logger.Loc{Start: int32(locNode.StartByte())},
	}
	// Bookkeeping only: spec §3's invariant keeps import-bound names out of
	// Definitions, but the scope tree still needs to know `local` resolves
	// here so reads of it elsewhere in the module are attributed correctly.
	stmt.addDefine(local)
	m.ModScope.Declare(local)
	return nil
}

// addExportStatement dispatches the four export forms of spec §4.2:
// default, a direct named declaration, `export * from`, and
// `export {a as b}` (optionally `from`).
func (m *Module) addExportStatement(node *sitter.Node) error {
	declField := node.ChildByFieldName("declaration")
	valueField := node.ChildByFieldName("value")
	sourceField := node.ChildByFieldName("source")

	switch {
	case hasAnonymousChildOfType(node, "default"):
		return m.addDefaultExport(node, declField, valueField)
	case declField != nil:
		return m.addNamedDeclarationExport(node, declField)
	case sourceField != nil && firstNamedChildOfType(node, "export_clause") == nil:
		return m.addExportStarFrom(node, sourceField)
	default:
		return m.addExportClauseStatement(node, sourceField)
	}
}

func (m *Module) addDefaultExport(node, declField, valueField *sitter.Node) error {
	src := m.sourceBytes()

	// The Statement's printable Range is the inner declaration/expression,
	// not the whole `export default ...;` — flattening a bundle never
	// prints an "export" keyword, since nothing outside the core consumes
	// the resulting text as an ES module (spec's scope ends at producing
	// the flattened program, not at re-wrapping it as one).
	printNode := node
	switch {
	case declField != nil:
		printNode = declField
	case valueField != nil:
		printNode = valueField
	}
	stmt := m.appendStatement(newStatement(m, printNode, m.ModScope))
	binding := &ExportBinding{Kind: ExportDefault, Statement: stmt}

	switch {
	case declField != nil:
		binding.IsDeclaration = true
		nameNode := declField.ChildByFieldName("name")
		switch declField.Type() {
		case "function_declaration", "generator_function_declaration":
			if nameNode != nil {
				binding.DeclaredName = nameNode.Content(src)
				m.declareNameNode(stmt, m.ModScope, nameNode, true)
			} else {
				binding.IsAnonymous = true
			}
			m.walkFunctionLike(stmt, m.ModScope, declField)
		case "class_declaration":
			if nameNode != nil {
				binding.DeclaredName = nameNode.Content(src)
				m.declareNameNode(stmt, m.ModScope, nameNode, false)
			} else {
				binding.IsAnonymous = true
			}
			m.walkClassLike(stmt, m.ModScope, declField, true)
		default:
			m.walk(stmt, m.ModScope, declField, true)
		}
	case valueField != nil:
		if valueField.Type() == "identifier" {
			binding.Identifier = valueField.Content(src)
			stmt.addDependsOn(binding.Identifier, true)
		} else {
			m.walk(stmt, m.ModScope, valueField, true)
		}
	}

	m.Exports["default"] = binding
	return nil
}

func (m *Module) addNamedDeclarationExport(node, declField *sitter.Node) error {
	src := m.sourceBytes()
	switch declField.Type() {
	case "lexical_declaration", "variable_declaration":
		m.splitVarDecl(declField, node)
		return nil
	case "function_declaration", "generator_function_declaration", "class_declaration":
		// Printable range is the declaration itself, not the `export`
		// keyword wrapping it.
		stmt := m.appendStatement(newStatement(m, declField, m.ModScope))
		nameNode := declField.ChildByFieldName("name")
		if nameNode == nil {
			return &errs.NotSupported{File: m.ID, Reason: "exported declaration has no name"}
		}
		name := nameNode.Content(src)
		if declField.Type() == "class_declaration" {
			m.declareNameNode(stmt, m.ModScope, nameNode, false)
			m.walkClassLike(stmt, m.ModScope, declField, true)
		} else {
			m.declareNameNode(stmt, m.ModScope, nameNode, true)
			m.walkFunctionLike(stmt, m.ModScope, declField)
		}
		m.Exports[name] = &ExportBinding{
			Kind:       ExportLocal,
			Statement:  stmt,
			LocalName:  name,
			Expression: declField,
		}
		return nil
	default:
		return &errs.NotSupported{File: m.ID, Reason: "unrecognised exported declaration form: " + declField.Type()}
	}
}

// splitVarDecl splits a `var`/`let`/`const` declaration into one Statement
// per declarator (spec §4.1), optionally also registering each as a named
// export when exportNode is the wrapping `export_statement`.
func (m *Module) splitVarDecl(node, exportNode *sitter.Node) {
	src := m.sourceBytes()
	kindTok := ""
	if c0 := node.Child(0); c0 != nil {
		kindTok = c0.Content(src)
	}
	hoisted := kindTok == "var"

	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		// Each split Statement's printable range is just its own
		// declarator ("a = 1"), never the original multi-declarator
		// statement or its `export` wrapper — codegen reconstructs
		// `<DeclKind> <declarator>;` independently per kept declarator,
		// which is the entire point of the split (spec §4.1).
		stmt := m.appendStatement(newStatement(m, decl, m.ModScope))
		stmt.DeclKind = kindTok

		nameField := decl.ChildByFieldName("name")
		m.declarePatternOrIdentifier(stmt, m.ModScope, nameField, hoisted)
		names := collectPatternNames(nameField, src)
		if val := decl.ChildByFieldName("value"); val != nil {
			m.walk(stmt, m.ModScope, val, true)
		}
		if exportNode != nil {
			for _, nm := range names {
				m.Exports[nm] = &ExportBinding{
					Kind:       ExportLocal,
					Statement:  stmt,
					LocalName:  nm,
					Expression: decl,
				}
			}
		}
	}
}

func (m *Module) addExportClauseStatement(node, sourceField *sitter.Node) error {
	src := m.sourceBytes()
	stmt := m.appendStatement(newStatement(m, node, m.ModScope))
	stmt.Kind = StmtExportClause

	clause := firstNamedChildOfType(node, "export_clause")
	if clause == nil {
		return nil
	}
	hasSource := sourceField != nil
	var source string
	if hasSource {
		source = stringContents(sourceField, src)
	}

	for i := 0; i < int(clause.NamedChildCount()); i++ {
		spec := clause.NamedChild(i)
		if spec.Type() != "export_specifier" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		aliasNode := spec.ChildByFieldName("alias")
		localName := nameNode.Content(src)
		exportedName := localName
		if aliasNode != nil {
			exportedName = aliasNode.Content(src)
		}
		if hasSource {
			// `export {a} from 's'` behaves as if `a` were also imported
			// locally under that name (spec §4.2).
			if _, exists := m.Imports[localName]; !exists {
				m.Imports[localName] = &ImportBinding{Source: source, Name: localName, LocalName: localName}
			}
		} else {
			stmt.addDependsOn(localName, true)
		}
		m.Exports[exportedName] = &ExportBinding{
			Kind:         ExportReexport,
			Statement:    stmt,
			LocalName:    localName,
			ExportedName: exportedName,
		}
	}
	return nil
}

func (m *Module) addExportStarFrom(node, sourceField *sitter.Node) error {
	stmt := m.appendStatement(newStatement(m, node, m.ModScope))
	stmt.Kind = StmtExportClause
	source := stringContents(sourceField, m.sourceBytes())
	m.ExportDelegates = append(m.ExportDelegates, &ExportDelegate{Statement: stmt, Source: source})
	return nil
}
