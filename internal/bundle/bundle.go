// Package bundle is spec.md §3's Bundle: the module registry, entry point,
// assumed-globals set, and internal-namespace-module list that
// internal/graph's Module needs but can't own itself (doing so would make
// every Module depend on every other Module directly instead of through the
// narrow graph.Fetcher/graph.NamespaceRegistrar interfaces).
package bundle

import (
	"fmt"
	"sort"

	"github.com/flatbundle/flatbundle/internal/errs"
	"github.com/flatbundle/flatbundle/internal/graph"
	"github.com/flatbundle/flatbundle/internal/jsparse"
	"github.com/flatbundle/flatbundle/internal/logger"
)

// Loader resolves an import specifier against its importer and loads raw
// module text — spec §6's "Loader" external collaborator. internal/loader's
// FSLoader is the concrete filesystem-backed implementation; tests can
// substitute an in-memory fake.
type Loader interface {
	Resolve(specifier, importerID string) (id string, isExternal bool, err error)
	Load(id string) (contents string, prettyPath string, err error)
}

// Bundle owns the module registry and orchestrates a build: fetch the entry
// module, force it (and everything it demands) to be marked, and hand back
// the statements in final order.
type Bundle struct {
	loader Loader
	parser *jsparse.Parser
	log    *logger.Log

	entryModule *graph.Module
	modules     map[string]*graph.Module
	trees       []*jsparse.Tree

	assumedGlobals           map[string]bool
	internalNamespaceModules []*graph.Module
	globals                  map[string]string
}

func New(loader Loader, parser *jsparse.Parser, log *logger.Log) *Bundle {
	return &Bundle{
		loader:         loader,
		parser:         parser,
		log:            log,
		modules:        map[string]*graph.Module{},
		assumedGlobals: map[string]bool{},
	}
}

// SetGlobals installs the config-level specifier -> global-variable-name
// mapping (spec §9/config's "globals" field): an external module resolved
// under one of these specifiers gets its bindings aliased straight to the
// named global rather than a synthesized name, the way a UMD consumer's
// externals map works.
func (b *Bundle) SetGlobals(globals map[string]string) {
	b.globals = globals
}

// RegisterNamespaceModule implements graph.NamespaceRegistrar: `import * as
// ns` pulls in its target module wholesale (spec §4.3 item 1, §4.4), and
// the bundle records each module pulled in this way once, in first-seen
// order, exposed through NamespaceModules. codegen does not read this list
// and emits no namespace object for these modules.
func (b *Bundle) RegisterNamespaceModule(m *graph.Module) {
	for _, existing := range b.internalNamespaceModules {
		if existing == m {
			return
		}
	}
	b.internalNamespaceModules = append(b.internalNamespaceModules, m)
}

// RecordAssumedGlobal implements graph.NamespaceRegistrar: an identifier
// that resolves to nothing inside the module graph is assumed to be a
// pre-existing global (spec §4.1), and the bundle collects these so a
// reimplementation can warn about them (spec §9 "assumed globals" question,
// resolved here by surfacing rather than silently accepting them).
func (b *Bundle) RecordAssumedGlobal(name string) {
	if b.assumedGlobals[name] {
		return
	}
	b.assumedGlobals[name] = true
	b.log.AddWarning(nil, logger.Loc{}, fmt.Sprintf("assuming %q is a pre-existing global", name))
}

// Log returns the accumulated build diagnostics (spec §9's "structural
// build progress" ambient concern — module fetches and assumed-global
// warnings), for a caller that wants to print them after Build completes.
func (b *Bundle) Log() *logger.Log {
	return b.log
}

// AssumedGlobals returns every name the analysis treated as a free global,
// sorted for deterministic reporting.
func (b *Bundle) AssumedGlobals() []string {
	out := make([]string, 0, len(b.assumedGlobals))
	for name := range b.assumedGlobals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (b *Bundle) Modules() map[string]*graph.Module { return b.modules }

func (b *Bundle) EntryModule() *graph.Module { return b.entryModule }

func (b *Bundle) NamespaceModules() []*graph.Module { return b.internalNamespaceModules }

// FetchModule implements graph.Fetcher. A resolved id already present in
// the registry is returned as-is — this is what makes import cycles safe:
// the cycle partner is handed the same, possibly still-mid-analyse, Module
// rather than recursing into FetchModule again.
func (b *Bundle) FetchModule(specifier, importerID string) (*graph.Module, error) {
	id, isExternal, err := b.loader.Resolve(specifier, importerID)
	if err != nil {
		return nil, &errs.ModuleNotFound{Specifier: specifier, ImporterID: importerID}
	}
	if existing, ok := b.modules[id]; ok {
		return existing, nil
	}
	if isExternal {
		m := graph.NewExternal(id)
		m.GlobalName = b.globals[specifier]
		b.modules[id] = m
		return m, nil
	}

	contents, prettyPath, err := b.loader.Load(id)
	if err != nil {
		return nil, &errs.ModuleNotFound{Specifier: specifier, ImporterID: importerID}
	}
	tree, err := b.parser.Parse(id, []byte(contents))
	if err != nil {
		return nil, err
	}
	// Kept alive for the Bundle's own lifetime rather than closed here:
	// Module.Root and every Statement.Node are pointers into this tree, and
	// codegen still walks them to print source ranges after marking.
	b.trees = append(b.trees, tree)

	source := logger.Source{ID: id, PrettyPath: prettyPath, Contents: contents}
	m := graph.New(id, source, tree.Root, b, b)
	b.modules[id] = m
	if err := m.Analyse(); err != nil {
		return nil, err
	}
	b.log.AddInfo(fmt.Sprintf("fetched %s", prettyPath))
	return m, nil
}

// Build implements spec §4.4/§5's top level: fetch the entry module, force
// whole-module inclusion on it (isEntryModule=true lets its own export
// clauses count as forced too), and return the included Statements, each
// exactly once. markAllStatements's depth-first recursion into every
// dependency before appending the statement that required it places each
// statement after the statements it depends on; statements of one module
// are not re-sorted by their source index.
func (b *Bundle) Build(entryID string) ([]*graph.Statement, error) {
	entry, err := b.FetchModule(entryID, "")
	if err != nil {
		return nil, err
	}
	b.entryModule = entry
	marked, err := entry.MarkAllStatements(true)
	if err != nil {
		return nil, err
	}
	// Mark hands back its memoised list on every later call for the same
	// (module, name), so a statement reached through several names appears
	// more than once; keep only its first occurrence.
	seen := make(map[*graph.Statement]bool, len(marked))
	statements := make([]*graph.Statement, 0, len(marked))
	for _, s := range marked {
		if !seen[s] {
			seen[s] = true
			statements = append(statements, s)
		}
	}
	b.log.AddInfo(fmt.Sprintf("marked %d statements across %d modules", len(statements), len(b.modules)))
	return statements, nil
}

// Close releases every parsed tree this Bundle holds. Call it once codegen
// has produced final output; a long-lived watch-mode process builds a fresh
// Bundle per rebuild rather than reusing one, so this never needs to be
// called mid-build.
func (b *Bundle) Close() {
	for _, t := range b.trees {
		t.Close()
	}
	b.trees = nil
}
