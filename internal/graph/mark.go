package graph

import "github.com/flatbundle/flatbundle/internal/errs"

// Mark implements spec §4.3's demand-driven Module.mark(name) dispatch. It
// returns the ordered list of Statements that must be included to make name
// available, memoised per (module, name) so cycles and diamonds are visited
// at most once; a cycle currently being resolved returns the cache's
// (possibly still partial) in-progress entry rather than recursing forever.
func (m *Module) Mark(name string) ([]*Statement, error) {
	if cached, ok := m.markCache[name]; ok {
		return cached, nil
	}
	// Seed the cache before recursing so a cycle back to (m, name) sees an
	// empty-but-present entry instead of looping.
	m.markCache[name] = nil

	if m.IsExternal {
		m.markCache[name] = []*Statement{}
		return m.markCache[name], nil
	}

	var result []*Statement
	var err error

	switch {
	case m.Imports[name] != nil:
		result, err = m.markImported(name)
	case name == "default" && m.Exports["default"] != nil && m.Exports["default"].IsDeclaration:
		// A `export default function foo(){}`/`class Foo{}` with a name is
		// itself a declaration reachable by that name; marking "default"
		// recurses through the declared name so later renaming and the
		// declaration's own statement are handled uniformly.
		def := m.Exports["default"]
		if def.DeclaredName != "" {
			result, err = m.Mark(def.DeclaredName)
		} else {
			result, err = m.markStatement(def.Statement)
		}
	default:
		result, err = m.markByLocalOrExport(name)
	}
	if err != nil {
		return nil, err
	}

	result = m.reorderDefaultExport(name, result)
	m.markCache[name] = result
	return result, nil
}

// markImported resolves an imported local name to its exporting module and
// recurses into that module for the imported name (spec §4.3 case 1). A
// default or namespace import also propagates the importer's own spelling
// of localName forward as a naming suggestion on the target, so e.g.
// `import MyThing from './x'` prefers "MyThing" over a name synthesised
// from x's file path.
func (m *Module) markImported(localName string) ([]*Statement, error) {
	binding := m.Imports[localName]
	target, err := m.resolveImport(binding)
	if err != nil {
		return nil, err
	}

	suggested := localName
	if s, ok := m.SuggestedNames[localName]; ok {
		suggested = s
	}

	switch binding.Name {
	case "*":
		// A namespace import pulls in the whole target module, not just one
		// name (spec §4.3 item 1, §4.4). It suggests its own local alias
		// for the namespace object itself, and a "<alias>__default"
		// fallback for "default" in case something reaches through the
		// namespace for a default-interop access.
		target.suggestName("*", suggested)
		target.suggestName("default", suggested+"__default")
		m.bundle.RegisterNamespaceModule(target)
		return target.MarkAllStatements(false)
	case "default":
		target.suggestName("default", suggested)
	}
	return target.Mark(binding.Name)
}

func (m *Module) resolveImport(binding *ImportBinding) (*Module, error) {
	if binding.Module != nil {
		return binding.Module, nil
	}
	target, err := m.fetch(binding.Source)
	if err != nil {
		return nil, err
	}
	binding.Module = target
	return target, nil
}

// markByLocalOrExport handles spec §4.3 case 3: name is neither an import
// nor the declaration-bearing default; it's either a plain local definition,
// a re-export specifier, or must be found through export-all delegates.
func (m *Module) markByLocalOrExport(name string) ([]*Statement, error) {
	if stmt, ok := m.Definitions[name]; ok {
		return m.markStatement(stmt)
	}
	if exp, ok := m.Exports[name]; ok {
		switch exp.Kind {
		case ExportReexport:
			if binding, isImport := m.Imports[exp.LocalName]; isImport {
				target, err := m.resolveImport(binding)
				if err != nil {
					return nil, err
				}
				return target.Mark(binding.Name)
			}
			return m.Mark(exp.LocalName)
		case ExportLocal:
			return m.markStatement(exp.Statement)
		case ExportDefault:
			return m.markStatement(exp.Statement)
		}
	}
	if name == "default" {
		if def, ok := m.Exports["default"]; ok {
			return m.markStatement(def.Statement)
		}
	}
	return m.markExportAll(name)
}

// markExportAll walks ExportDelegates in declaration order, asking each
// target module for name; the first delegate that actually exports it wins
// and the resolution is memoised into ExportAlls (spec §4.3). A name absent
// from every delegate is a NoSuchExport.
func (m *Module) markExportAll(name string) ([]*Statement, error) {
	if delegate, ok := m.ExportAlls[name]; ok {
		if delegate == nil {
			return nil, &errs.NoSuchExport{Module: m.ID, Name: name, Importer: m.ID}
		}
		return delegate.Module.Mark(name)
	}

	for _, delegate := range m.ExportDelegates {
		if delegate.Module == nil {
			target, err := m.fetch(delegate.Source)
			if err != nil {
				return nil, err
			}
			delegate.Module = target
		}
		if !delegate.Module.exportsName(name) {
			continue
		}
		stmts, err := delegate.Module.Mark(name)
		if err != nil {
			continue
		}
		m.ExportAlls[name] = delegate
		delegate.Statement.addDependsOn(name, true)
		return stmts, nil
	}

	m.ExportAlls[name] = nil
	return nil, &errs.NoSuchExport{Module: m.ID, Name: name, Importer: m.ID}
}

// exportsName reports whether m can directly or transitively (through its
// own export-all delegates) produce name, without raising an error — used
// by markExportAll to probe candidates before committing to one. A module
// already on the current probe path answers false, so `export * from`
// chains that cycle back terminate.
func (m *Module) exportsName(name string) bool {
	return m.exportsNameVisiting(name, map[*Module]bool{})
}

func (m *Module) exportsNameVisiting(name string, visiting map[*Module]bool) bool {
	if visiting[m] {
		return false
	}
	visiting[m] = true
	if m.IsExternal {
		return true
	}
	if _, ok := m.Definitions[name]; ok {
		return true
	}
	if _, ok := m.Exports[name]; ok {
		return true
	}
	for _, delegate := range m.ExportDelegates {
		if delegate.Module == nil {
			target, err := m.fetch(delegate.Source)
			if err != nil {
				continue
			}
			delegate.Module = target
		}
		if delegate.Module.exportsNameVisiting(name, visiting) {
			return true
		}
	}
	return false
}

// markStatement flips isIncluded on stmt (idempotently) and recursively
// marks every name in its dependsOn set, returning the flattened list of
// newly-included statements in dependency order followed by stmt itself
// (spec §4.3 case 2's ".mark()" on a Statement).
func (m *Module) markStatement(stmt *Statement) ([]*Statement, error) {
	if stmt.IsIncluded {
		return nil, nil
	}
	stmt.IsIncluded = true

	var out []*Statement
	for _, dep := range sortedNames(stmt.DependsOn) {
		deps, err := m.Mark(dep)
		if err != nil {
			return nil, err
		}
		out = append(out, deps...)
	}
	out = append(out, stmt)
	return out, nil
}

// reorderDefaultExport implements spec §4.3's special case: when marking
// "default" resolves to an identifier reference (`export default foo;`)
// whose underlying name is reassigned somewhere in the module, the export
// statement is taken out of the result and spliced back in immediately
// after the last same-module statement with a smaller index (or appended
// when there is none), so it keeps its textual position relative to the
// module's own statements instead of following those that reassign foo.
func (m *Module) reorderDefaultExport(name string, result []*Statement) []*Statement {
	if name != "default" {
		return result
	}
	def, ok := m.Exports["default"]
	if !ok || def.Identifier == "" || !def.IsModified {
		return result
	}
	exportStmt := def.Statement
	idx := -1
	for i, s := range result {
		if s == exportStmt {
			idx = i
			break
		}
	}
	if idx < 0 {
		return result
	}

	without := append(append([]*Statement{}, result[:idx]...), result[idx+1:]...)
	insertAt := len(without)
	for i := len(without) - 1; i >= 0; i-- {
		if s := without[i]; s.Module == m && s.Index < exportStmt.Index {
			insertAt = i + 1
			break
		}
	}
	reordered := make([]*Statement, 0, len(result))
	reordered = append(reordered, without[:insertAt]...)
	reordered = append(reordered, exportStmt)
	reordered = append(reordered, without[insertAt:]...)
	return reordered
}

// MarkAllStatements implements spec §4.4: walk every top-level statement of
// m. Bare side-effect imports always recurse into their target regardless
// of isEntryModule. Export-clause statements are only forced when m is the
// entry module (so a re-export isn't pulled in just because some other
// module happened to import the module that declares it). Everything else
// is unconditionally .mark()'d, which is how whole-module inclusion works
// for the entry module, a namespace-import target, or a bare-import target.
func (m *Module) MarkAllStatements(isEntryModule bool) ([]*Statement, error) {
	if m.allMarked {
		return nil, nil
	}
	if m.markingAll {
		return nil, nil
	}
	m.markingAll = true
	defer func() { m.markingAll = false }()

	var out []*Statement
	for _, stmt := range m.Statements {
		switch stmt.Kind {
		case StmtImportBare:
			target, err := m.fetch(stmt.ImportSource)
			if err != nil {
				return nil, err
			}
			stmts, err := target.MarkAllStatements(false)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
			stmt.IsIncluded = true
		case StmtImportDecl:
			stmt.IsIncluded = true
		case StmtExportClause:
			if !isEntryModule {
				continue
			}
			stmts, err := m.markStatement(stmt)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		default:
			stmts, err := m.markStatement(stmt)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		}
	}
	m.allMarked = true
	return out, nil
}
