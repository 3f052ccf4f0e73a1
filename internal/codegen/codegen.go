// Package codegen turns the ordered Statement list Bundle.Build produces
// into flattened program text: one shared top-level scope, every surviving
// statement printed once, every identifier that resolves to a module-level
// binding rewritten to its deconflicted canonical name, import/export
// syntax itself never printed (spec §6's output format is out of scope —
// only the process of getting from a marked graph.Module list to text is
// implemented here, just enough to make the CLI runnable end to end).
//
// Grounded on evanw-esbuild/internal/linker/linker.go's documented
// DFS-postorder module evaluation order (the same comment cited in
// internal/graph's grounding): statements are printed in exactly the order
// Bundle.Build returns them, since that order already places every
// dependency before its dependents.
package codegen

import (
	"strings"

	"github.com/flatbundle/flatbundle/internal/editbuffer"
	"github.com/flatbundle/flatbundle/internal/graph"
	"github.com/flatbundle/flatbundle/internal/renamer"
)

// Generate deconflicts every module's canonical-name suggestions into one
// shared set of identifiers, then prints statements in order, producing the
// flattened bundle text. assumedGlobals (spec §4.1/§8 S6) are reserved in
// the allocator first, so a module-level definition can never coincidentally
// shadow a free variable the analysis assumed refers to a pre-existing
// global — "Math is not renamed" (S6) only holds if nothing else is ever
// allowed to claim that name either.
func Generate(statements []*graph.Statement, assumedGlobals []string) string {
	alloc := renamer.NewNameAllocator()
	for _, g := range assumedGlobals {
		alloc.Reserve(g)
	}
	deconflictAllModules(statements, alloc)

	var out strings.Builder
	for _, stmt := range statements {
		text := printStatement(stmt)
		if text == "" {
			continue
		}
		out.WriteString(text)
		out.WriteString("\n")
	}
	return out.String()
}

// deconflictAllModules visits each distinct module touched by statements
// exactly once, in first-seen order (which, since statements is already in
// dependency order, means a dependency's own names are claimed before a
// dependent first needs to agree with them), and assigns every module-level
// name a final collision-free identifier via Module.Rename.
func deconflictAllModules(statements []*graph.Statement, alloc *renamer.NameAllocator) {
	seen := map[*graph.Module]bool{}
	for _, stmt := range statements {
		m := stmt.Module
		if seen[m] {
			continue
		}
		seen[m] = true
		for name := range m.Definitions {
			suggested := m.GetCanonicalName(name)
			m.Rename(name, alloc.Allocate(suggested))
		}
		if def, ok := m.Exports["default"]; ok && (def.IsAnonymous || (!def.IsDeclaration && def.Identifier == "")) {
			// An anonymous default (`export default function(){}`,
			// `export default 42;`) has no Definitions entry of its own to
			// deconflict above — it needs one too, since codegen gives it
			// an addressable binding under this very name.
			suggested := m.GetCanonicalName("default")
			m.Rename("default", alloc.Allocate(suggested))
		}
	}
}

// printStatement renders one Statement's contribution to the flattened
// output, or "" if it contributes nothing.
func printStatement(stmt *graph.Statement) string {
	switch stmt.Kind {
	case graph.StmtExportClause, graph.StmtImportBare, graph.StmtImportDecl:
		// Re-export clauses carry no runtime declaration of their own, and
		// import statements are never printed in a flattened bundle.
		return ""
	}

	m := stmt.Module
	if def, ok := m.Exports["default"]; ok && def.Statement == stmt {
		switch {
		case !def.IsDeclaration && def.Identifier != "":
			// `export default foo;` introduces no value of its own — the
			// name "default" simply aliases foo, already handled by
			// getCanonicalName's import-style recursion.
			return ""
		case def.IsDeclaration && !def.IsAnonymous:
			// A named `export default function foo(){}`/`class Foo{}`
			// already got foo's own NameOccurrence renamed in place; print
			// like any other declaration.
			return renderRange(stmt)
		default:
			// Anonymous declaration or a bare default expression: give it
			// an addressable binding under its canonical default name, so
			// an importer that pulled it in by name has something to call.
			return "const " + m.GetCanonicalName("default") + " = " + renderRange(stmt) + ";"
		}
	}

	body := renderRange(stmt)
	if stmt.DeclKind != "" {
		return stmt.DeclKind + " " + body + ";"
	}
	return body
}

// renderRange slices stmt's own source range out of its module's original
// text and rewrites every recorded NameOccurrence to that module's final
// canonical name.
func renderRange(stmt *graph.Statement) string {
	source := stmt.Module.Source.Contents
	start := int(stmt.Range.Loc.Start)
	end := int(stmt.Range.End())
	if start < 0 || end > len(source) || start > end {
		return ""
	}
	slice := source[start:end]

	buf := editbuffer.New(slice)
	for _, occ := range stmt.NameOccurrences {
		localStart := int(occ.Start) - start
		localEnd := int(occ.End) - start
		if localStart < 0 || localEnd > len(slice) {
			continue
		}
		final := stmt.Module.GetCanonicalName(occ.Name)
		if final == occ.Name {
			continue
		}
		buf.Replace(localStart, localEnd, final)
	}
	return buf.Render()
}
