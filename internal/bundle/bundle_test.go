package bundle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatbundle/flatbundle/internal/bundle"
	"github.com/flatbundle/flatbundle/internal/codegen"
	"github.com/flatbundle/flatbundle/internal/errs"
	"github.com/flatbundle/flatbundle/internal/jsparse"
	"github.com/flatbundle/flatbundle/internal/logger"
)

// memLoader is an in-memory bundle.Loader fake: specifiers are resolved by
// simple relative-path joining, and anything not present in sources is
// treated as external rather than a load error.
type memLoader struct {
	sources map[string]string
}

func (l *memLoader) Resolve(specifier, importerID string) (string, bool, error) {
	id := specifier
	if len(id) >= 2 && id[:2] == "./" {
		id = id[2:]
	}
	if _, ok := l.sources[id]; !ok {
		return specifier, true, nil
	}
	return id, false, nil
}

func (l *memLoader) Load(id string) (string, string, error) {
	src, ok := l.sources[id]
	if !ok {
		return "", "", &errs.ModuleNotFound{Specifier: id}
	}
	return src, id, nil
}

func newBundle(t *testing.T, sources map[string]string) *bundle.Bundle {
	t.Helper()
	parser := jsparse.New()
	t.Cleanup(parser.Close)
	return bundle.New(&memLoader{sources: sources}, parser, logger.NewLog())
}

func TestBuildReturnsEntryModuleAndStatements(t *testing.T) {
	b := newBundle(t, map[string]string{
		"entry.js": `
			import { used } from './lib.js';
			used();
		`,
		"lib.js": `
			export function used() { return 1; }
			export function unused() { return 2; }
		`,
	})

	statements, err := b.Build("entry.js")
	require.NoError(t, err)
	defer b.Close()

	require.NotNil(t, b.EntryModule())
	assert.Len(t, b.Modules(), 2, "expected entry.js and lib.js to both be registered")
	out := codegen.Generate(statements, b.AssumedGlobals())
	assert.Contains(t, out, "function used")
	assert.NotContains(t, out, "unused")
}

// FetchModule must hand back the same *graph.Module on a second resolution
// of the same id, which is what makes an import cycle terminate instead of
// re-parsing and re-analysing the same file forever.
func TestFetchModuleCachesByResolvedID(t *testing.T) {
	b := newBundle(t, map[string]string{
		"entry.js": `
			import { a } from './a.js';
			import { a as again } from './a.js';
			a(); again();
		`,
		"a.js": `export function a() { return 1; }`,
	})

	statements, err := b.Build("entry.js")
	require.NoError(t, err)
	defer b.Close()

	count := 0
	for _, s := range statements {
		if s.Module.ID == "a.js" {
			count++
		}
	}
	assert.Equal(t, 1, count, "a.js's function declaration should be emitted exactly once")
}

func TestSetGlobalsAliasesExternalImportToConfiguredGlobal(t *testing.T) {
	b := newBundle(t, map[string]string{
		"entry.js": `
			import React from 'react';
			import { useState } from 'react';
			React.render(useState(0));
		`,
	})
	b.SetGlobals(map[string]string{"react": "React"})

	statements, err := b.Build("entry.js")
	require.NoError(t, err)
	defer b.Close()

	out := codegen.Generate(statements, b.AssumedGlobals())
	assert.Contains(t, out, "React.render(React.useState(0))")
}

func TestFetchModuleCreatesExternalSentinelForUnresolvedSpecifier(t *testing.T) {
	b := newBundle(t, map[string]string{
		"entry.js": `
			import React from 'react';
			React.render();
		`,
	})

	_, err := b.Build("entry.js")
	require.NoError(t, err)
	defer b.Close()

	m, err := b.FetchModule("react", "entry.js")
	require.NoError(t, err)
	assert.Equal(t, "react", m.ID)
}

func TestRegisterNamespaceModuleDeduplicates(t *testing.T) {
	b := newBundle(t, map[string]string{
		"entry.js": `
			import * as ns from './lib.js';
			ns.a(); ns.a();
		`,
		"lib.js": `export function a() { return 1; }`,
	})

	_, err := b.Build("entry.js")
	require.NoError(t, err)
	defer b.Close()

	assert.Len(t, b.NamespaceModules(), 1)
}

func TestRecordAssumedGlobalIsSortedAndDeduplicated(t *testing.T) {
	b := newBundle(t, map[string]string{
		"entry.js": `
			console.log(Math.max(1, 2));
			console.error("x");
		`,
	})

	_, err := b.Build("entry.js")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []string{"Math", "console"}, b.AssumedGlobals())
}

// failLoader always fails resolution, for asserting FetchModule/Build
// propagate a loader error as errs.ModuleNotFound unchanged.
type failLoader struct{}

func (failLoader) Resolve(specifier, importerID string) (string, bool, error) {
	return "", false, &errs.ModuleNotFound{Specifier: specifier, ImporterID: importerID}
}

func (failLoader) Load(id string) (string, string, error) {
	return "", "", &errs.ModuleNotFound{Specifier: id}
}

func TestBuildPropagatesModuleNotFound(t *testing.T) {
	parser := jsparse.New()
	t.Cleanup(parser.Close)
	b := bundle.New(failLoader{}, parser, logger.NewLog())

	_, err := b.Build("entry.js")
	require.Error(t, err)
	var notFound *errs.ModuleNotFound
	assert.ErrorAs(t, err, &notFound)
}
