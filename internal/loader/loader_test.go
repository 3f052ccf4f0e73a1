package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatbundle/flatbundle/internal/errs"
	"github.com/flatbundle/flatbundle/internal/loader"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestResolveRelativeSpecifierProbesExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib.js"), "export function a() {}")

	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	id, isExternal, err := l.Resolve("./lib.js", filepath.Join(dir, "entry.js"))
	require.NoError(t, err)
	assert.False(t, isExternal)
	assert.Equal(t, filepath.Join(dir, "lib.js"), id)
}

func TestResolveProbesExtensionlessSpecifier(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib.mjs"), "export function a() {}")

	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	id, isExternal, err := l.Resolve("./lib", filepath.Join(dir, "entry.js"))
	require.NoError(t, err)
	assert.False(t, isExternal)
	assert.Equal(t, filepath.Join(dir, "lib.mjs"), id)
}

func TestResolveProbesDirectoryIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "comp", "index.jsx"), "export function Comp() {}")

	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	id, isExternal, err := l.Resolve("./comp", filepath.Join(dir, "entry.js"))
	require.NoError(t, err)
	assert.False(t, isExternal)
	assert.Equal(t, filepath.Join(dir, "comp", "index.jsx"), id)
}

func TestResolveReturnsModuleNotFoundForMissingRelativeFile(t *testing.T) {
	dir := t.TempDir()
	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	_, _, err = l.Resolve("./missing.js", filepath.Join(dir, "entry.js"))
	require.Error(t, err)
	var notFound *errs.ModuleNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestResolveTreatsBareSpecifierAsExternal(t *testing.T) {
	dir := t.TempDir()
	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	id, isExternal, err := l.Resolve("react", filepath.Join(dir, "entry.js"))
	require.NoError(t, err)
	assert.True(t, isExternal)
	assert.Equal(t, "react", id)
}

func TestResolveExternalGlobOverridesLocalFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vendor", "react.js"), "export default {};")

	l, err := loader.New(dir, []string{"./vendor/*"}, nil)
	require.NoError(t, err)

	id, isExternal, err := l.Resolve("./vendor/react.js", filepath.Join(dir, "entry.js"))
	require.NoError(t, err)
	assert.True(t, isExternal)
	assert.Equal(t, "./vendor/react.js", id)
}

func TestLoadCachesFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.js")
	writeFile(t, path, "export const a = 1;")

	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	contents, pretty, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1;", contents)
	assert.Equal(t, "lib.js", pretty)

	// Overwrite on disk; the cached read should still come back, since Load
	// is documented to serve a single build pass from a warm, stable cache.
	writeFile(t, path, "export const a = 2;")
	cached, _, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1;", cached)
}

func TestLoadMissingFileReturnsModuleNotFound(t *testing.T) {
	dir := t.TempDir()
	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	_, _, err = l.Load(filepath.Join(dir, "missing.js"))
	require.Error(t, err)
	var notFound *errs.ModuleNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestIsIgnoredMatchesGitignoreSyntax(t *testing.T) {
	dir := t.TempDir()
	l, err := loader.New(dir, nil, []string{"dist/", "*.test.js"})
	require.NoError(t, err)

	assert.True(t, l.IsIgnored(filepath.Join(dir, "dist", "bundle.js")))
	assert.True(t, l.IsIgnored(filepath.Join(dir, "foo.test.js")))
	assert.False(t, l.IsIgnored(filepath.Join(dir, "foo.js")))
}

func TestPreloadWarmsCacheForWholeImportGraph(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "entry.js"), `
		import { a } from './a.js';
		a();
	`)
	writeFile(t, filepath.Join(dir, "a.js"), `
		import { b } from './b.js';
		export function a() { return b(); }
	`)
	writeFile(t, filepath.Join(dir, "b.js"), `
		export function b() { return 1; }
	`)

	l, err := loader.New(dir, nil, nil)
	require.NoError(t, err)

	entryID := filepath.Join(dir, "entry.js")
	require.NoError(t, loader.Preload(context.Background(), l, entryID))

	for _, name := range []string{"entry.js", "a.js", "b.js"} {
		path := filepath.Join(dir, name)
		// Remove the file on disk; a cache-served Load proves Preload
		// actually warmed it rather than leaving it for a later cold read.
		require.NoError(t, os.Remove(path))
		_, _, err := l.Load(path)
		assert.NoError(t, err, "expected %s to be cache-warm after Preload", name)
	}
}
