package graph

import "github.com/flatbundle/flatbundle/internal/renamer"

// GetCanonicalName implements spec §4.5's five-step dispatch for resolving
// a module-local name to the identifier it will actually print as in the
// flattened bundle:
//  1. a cache check, so cycles and repeated lookups are O(1) after the
//     first resolution;
//  2. special handling for "default", which has no source-level identifier
//     of its own to canonicalize;
//  3. import-based recursion, so every local alias of an imported binding
//     converges on the same name as the exporting module's own resolution;
//  4. for a name that is not an import, a suggested-name substitution,
//     letting an importer request a nicer alias than the plain local name;
//  5. identity: the (possibly substituted) name, sanitised into a legal
//     identifier.
//
// The result here is a per-module suggestion, not yet guaranteed collision-
// free across the whole bundle — internal/renamer's global deconfliction
// pass is what produces the final, print-ready name (spec §4.5, §8).
func (m *Module) GetCanonicalName(localName string) string {
	if cached, ok := m.CanonicalNames[localName]; ok {
		return cached
	}

	if localName == "default" {
		resolved := m.canonicalDefaultName()
		m.CanonicalNames[localName] = resolved
		return resolved
	}

	if binding, ok := m.Imports[localName]; ok {
		if target, err := m.resolveImport(binding); err == nil && target != nil {
			var resolved string
			switch {
			case target.IsExternal && target.GlobalName != "" && (binding.Name == "*" || binding.Name == "default"):
				// A namespace or default import of an external module
				// configured with a "globals" mapping aliases the
				// pre-existing global variable directly.
				resolved = target.GlobalName
			case target.IsExternal && target.GlobalName != "":
				// A named import off that same external global reads a
				// property of it, e.g. `React.useState`.
				resolved = target.GlobalName + "." + binding.Name
			case binding.Name == "*":
				resolved = target.namespaceIdentifier()
			default:
				// The exported name itself is rarely the declaration's own
				// local name (`const a = 1; export { a as b }` exports "b"
				// but declares "a"); follow Exports[name] down to its
				// LocalName the same way mark.go's markByLocalOrExport
				// does, falling back to the bare exported name only for
				// the export-all case, where no Exports entry exists to
				// redirect through.
				if exp, ok := target.Exports[binding.Name]; ok && exp.LocalName != "" {
					resolved = target.GetCanonicalName(exp.LocalName)
				} else {
					resolved = target.GetCanonicalName(binding.Name)
				}
			}
			m.CanonicalNames[localName] = resolved
			return resolved
		}
	}

	name := localName
	if suggested, ok := m.SuggestedNames[localName]; ok {
		name = suggested
	}
	resolved := renamer.MakeLegalIdentifier(name)
	m.CanonicalNames[localName] = resolved
	return resolved
}

// canonicalDefaultName derives the identifier an `export default` binds to:
// the underlying declaration's own name when there is one
// (`export default function foo(){}` -> foo), the canonical name of the
// referenced identifier when default re-exports one
// (`export default foo;` -> whatever foo itself resolves to), an importer's
// own suggested spelling when one was propagated via markImported's
// suggestName (spec §4.3 item 1 — `import MyThing from './x'` prefers
// "MyThing" over a path-derived name), or else a name derived from the
// module's own file identity for a fully anonymous, unsuggested default
// (`export default 42;` in math.js -> mathDefault).
func (m *Module) canonicalDefaultName() string {
	if def, ok := m.Exports["default"]; ok {
		if def.DeclaredName != "" {
			return renamer.MakeLegalIdentifier(def.DeclaredName)
		}
		if def.Identifier != "" {
			return m.GetCanonicalName(def.Identifier)
		}
	}
	if suggested, ok := m.SuggestedNames["default"]; ok {
		return renamer.MakeLegalIdentifier(suggested)
	}
	return renamer.MakeLegalIdentifier(moduleBaseName(m.ID)) + "Default"
}

func (m *Module) namespaceIdentifier() string {
	if suggested, ok := m.SuggestedNames["*"]; ok {
		return renamer.MakeLegalIdentifier(suggested)
	}
	return renamer.MakeLegalIdentifier(moduleBaseName(m.ID)) + "Ns"
}

// suggestName proposes suggested as bindingName's canonical-name candidate
// on m ("bindingName" being "default" or "*"), so an importer's own
// spelling can win over a path-derived name (spec §4.3 item 1). The first
// suggestion for a given bindingName wins — later importers of the same
// module don't get to override an earlier one's choice. A suggestion that
// collides with one of m's own local import aliases is deconflicted by
// prefixing underscores, the same collision policy renamer.Deconflict uses
// for cross-module collisions.
func (m *Module) suggestName(bindingName, suggested string) {
	if _, ok := m.SuggestedNames[bindingName]; ok {
		return
	}
	for {
		if _, taken := m.Imports[suggested]; !taken {
			break
		}
		suggested = "_" + suggested
	}
	m.SuggestedNames[bindingName] = suggested
}

// Rename forces localName's canonical resolution to replacement. The global
// renamer calls this once it has deconflicted every module's suggestions
// into a final, collision-free set of identifiers.
func (m *Module) Rename(localName, replacement string) {
	m.CanonicalNames[localName] = replacement
}

func moduleBaseName(id string) string {
	start := 0
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' || id[i] == '\\' {
			start = i + 1
			break
		}
	}
	name := id[start:]
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}
