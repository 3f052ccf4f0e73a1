package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatbundle/flatbundle/internal/codegen"
	"github.com/flatbundle/flatbundle/internal/errs"
	"github.com/flatbundle/flatbundle/internal/graph"
	"github.com/flatbundle/flatbundle/internal/jsparse"
	"github.com/flatbundle/flatbundle/internal/logger"
)

// fakeEnv is a minimal in-memory stand-in for internal/bundle.Bundle, good
// enough to exercise graph.Module's Fetcher/NamespaceRegistrar contract
// without pulling in internal/loader or the filesystem.
type fakeEnv struct {
	t                *testing.T
	sources          map[string]string
	modules          map[string]*graph.Module
	parser           *jsparse.Parser
	assumedGlobals   map[string]bool
	namespaceModules []*graph.Module
}

func newFakeEnv(t *testing.T, sources map[string]string) *fakeEnv {
	return &fakeEnv{
		t:              t,
		sources:        sources,
		modules:        map[string]*graph.Module{},
		parser:         jsparse.New(),
		assumedGlobals: map[string]bool{},
	}
}

func normalizeID(specifier string) string {
	return strings.TrimPrefix(strings.TrimPrefix(specifier, "./"), "../")
}

func (e *fakeEnv) FetchModule(specifier, importerID string) (*graph.Module, error) {
	id := normalizeID(specifier)
	if m, ok := e.modules[id]; ok {
		return m, nil
	}
	src, ok := e.sources[id]
	if !ok {
		m := graph.NewExternal(id)
		e.modules[id] = m
		return m, nil
	}
	tree, err := e.parser.Parse(id, []byte(src))
	if err != nil {
		return nil, err
	}
	source := logger.Source{ID: id, PrettyPath: id, Contents: src}
	m := graph.New(id, source, tree.Root, e, e)
	e.modules[id] = m
	if err := m.Analyse(); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *fakeEnv) RegisterNamespaceModule(m *graph.Module) {
	e.namespaceModules = append(e.namespaceModules, m)
}

func (e *fakeEnv) RecordAssumedGlobal(name string) {
	e.assumedGlobals[name] = true
}

func (e *fakeEnv) assumedGlobalNames() []string {
	out := make([]string, 0, len(e.assumedGlobals))
	for name := range e.assumedGlobals {
		out = append(out, name)
	}
	return out
}

func (e *fakeEnv) build(entryID string) string {
	e.t.Helper()
	entry, err := e.FetchModule(entryID, "")
	require.NoError(e.t, err)
	statements, err := entry.MarkAllStatements(true)
	require.NoError(e.t, err)
	return codegen.Generate(statements, e.assumedGlobalNames())
}

// S1: a named export never referenced by the entry module is eliminated.
func TestDeadCodeElimination(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { used } from './lib.js';
			used();
		`,
		"lib.js": `
			export function used() { return 1; }
			export function unused() { return 2; }
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "function used")
	assert.NotContains(t, out, "unused")
}

// S2: a two-module import cycle must terminate and include both sides.
func TestImportCycle(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { a } from './a.js';
			a();
		`,
		"a.js": `
			import { b } from './b.js';
			export function a() { return b(); }
		`,
		"b.js": `
			import { a } from './a.js';
			export function b() { return typeof a; }
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "function a")
	assert.Contains(t, out, "function b")
}

// S3: `export * from` resolves to the first delegate that actually exports
// the requested name, and a name present in none of them is NoSuchExport.
func TestExportAllResolution(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { value } from './reexporter.js';
			value();
		`,
		"reexporter.js": `
			export * from './first.js';
			export * from './second.js';
		`,
		"first.js": `
			export function other() { return 0; }
		`,
		"second.js": `
			export function value() { return 1; }
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "function value")
	assert.NotContains(t, out, "function other")
}

func TestExportAllNoSuchExport(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { missing } from './reexporter.js';
			missing();
		`,
		"reexporter.js": `
			export * from './first.js';
		`,
		"first.js": `
			export function other() { return 0; }
		`,
	})

	entry, err := env.FetchModule("entry.js", "")
	require.NoError(t, err)
	_, err = entry.MarkAllStatements(true)
	require.Error(t, err)
	var notFound *errs.NoSuchExport
	assert.ErrorAs(t, err, &notFound)
}

// S4: as the entry module, every top-level statement is force-included in
// its original textual order — the declaration, the (unprinted) identifier-
// alias default export, then the later reassignment.
func TestDefaultExportReordering(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			let foo = 1;
			export default foo;
			foo = 2;
		`,
	})

	out := env.build("entry.js")
	declIdx := strings.Index(out, "let foo = 1")
	reassignIdx := strings.Index(out, "foo = 2")
	require.True(t, declIdx >= 0, "output: %q", out)
	require.True(t, reassignIdx >= 0, "output: %q", out)
	assert.Less(t, declIdx, reassignIdx)
}

// When a different module imports only the default, marking `foo`'s
// declaration is enough to satisfy it — a later reassignment nothing else
// depends on is correctly left out, same dead-code elimination as S1.
func TestDefaultExportIdentifierAliasDropsUnusedReassignment(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import lib from './lib.js';
			lib();
		`,
		"lib.js": `
			let foo = 1;
			export default foo;
			foo = 2;
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "let foo = 1")
	assert.NotContains(t, out, "foo = 2")
}

// S5: two modules that both define a top-level `foo` end up deconflicted,
// one kept as `foo` and the other prefixed with underscores until unique.
func TestNameConflictDeconfliction(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { foo as fooA } from './a.js';
			import { foo as fooB } from './b.js';
			fooA();
			fooB();
		`,
		"a.js": `
			export function foo() { return 1; }
		`,
		"b.js": `
			export function foo() { return 2; }
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "function foo")
	assert.Contains(t, out, "function _foo")
}

// S6: an identifier that resolves to nothing inside the module graph is
// recorded as an assumed global rather than raising an error.
func TestAssumedGlobal(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			console.log("hi");
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "console.log")
	assert.True(t, env.assumedGlobals["console"])
}

// A duplicate local import binding is rejected outright (spec §3 invariant).
func TestDuplicateImportRejected(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { a } from './lib.js';
			import { a as a } from './other.js';
		`,
		"lib.js":   `export function a() {}`,
		"other.js": `export function a() {}`,
	})

	_, err := env.FetchModule("entry.js", "")
	var dup *errs.DuplicateImport
	assert.ErrorAs(t, err, &dup)
}

// Multi-declarator splitting: only the declarator actually depended upon
// should survive, and each surviving declarator keeps its own `let`/`const`.
func TestMultiDeclaratorSplit(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { a } from './lib.js';
			a();
		`,
		"lib.js": `
			export let a = 1, b = 2;
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "a = 1")
	assert.NotContains(t, out, "b = 2")
}

func TestCanonicalNameFollowsImportChain(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { value as renamed } from './mid.js';
			renamed();
		`,
		"mid.js": `
			export { value } from './lib.js';
		`,
		"lib.js": `
			export function value() { return 1; }
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "function value")
	assert.NotContains(t, out, "renamed")
}

// The exported name and the declaration's own local name can differ
// (`export { a as b }`); the call site uses the exported name "b" but the
// declaration itself only ever canonicalizes under "a" — codegen must not
// end up printing a reference to an identifier that was never declared.
func TestCanonicalNameFollowsRenamedExportSpecifier(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import { b } from './lib.js';
			b();
		`,
		"lib.js": `
			const a = 1;
			export { a as b };
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "a = 1")
	assert.NotContains(t, out, "b()")
	assert.NotContains(t, out, "b();")
}

// A default import's own local spelling wins over a path-derived name for
// a fully anonymous default export.
func TestDefaultImportSuggestsItsOwnLocalName(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import Thing from './lib.js';
			Thing();
		`,
		"lib.js": `
			export default function () { return 1; };
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "Thing()")
}

// A namespace import's own local alias wins for the namespace object's
// name, the same way a default import's alias wins for canonicalDefaultName.
func TestNamespaceImportSuggestsItsOwnLocalName(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import * as MyLib from './lib.js';
			MyLib.a();
		`,
		"lib.js": `
			export function a() { return 1; }
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "MyLib.a")
}

func TestNamespaceImportPullsWholeModule(t *testing.T) {
	env := newFakeEnv(t, map[string]string{
		"entry.js": `
			import * as ns from './lib.js';
			ns.a();
		`,
		"lib.js": `
			export function a() { return 1; }
			export function b() { return 2; }
		`,
	})

	out := env.build("entry.js")
	assert.Contains(t, out, "function a")
	assert.Contains(t, out, "function b")
	require.Len(t, env.namespaceModules, 1)
}

