package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flatbundle/flatbundle/internal/jsparse"
)

// Preload implements the "fetch all modules first, then run a single
// synchronous marking pass" shape spec.md §9's Design Notes recommends for
// a filesystem-backed loader: a concurrent BFS over the import graph, using
// one Parser per goroutine slot, warms FSLoader's file cache so the later
// single-threaded Bundle.Build (spec §5) never blocks on disk I/O.
//
// Grounded on evanw-esbuild/internal/bundler's parallel-scan phase, scaled
// down from esbuild's full AST-building scan to a specifier-only scan —
// Preload never builds a graph.Module or runs analyse(); it only needs
// enough of the tree to find import/export source strings so the real,
// single-threaded Analyse() pass that follows has every file already on
// disk-cache-warm.
func Preload(ctx context.Context, l *FSLoader, entryID string) error {
	parserPool := sync.Pool{New: func() any { return jsparse.New() }}

	var visited sync.Map // id -> struct{}
	g, ctx := errgroup.WithContext(ctx)

	var walk func(id string)
	walk = func(id string) {
		if _, already := visited.LoadOrStore(id, struct{}{}); already {
			return
		}
		g.Go(func() error {
			if l.IsIgnored(id) {
				return nil
			}
			contents, _, err := l.Load(id)
			if err != nil {
				// A missing file surfaces properly later, during the real
				// fetch-and-analyse pass; preloading is best-effort.
				return nil
			}
			p := parserPool.Get().(*jsparse.Parser)
			defer parserPool.Put(p)

			tree, err := p.Parse(id, []byte(contents))
			if err != nil {
				return nil
			}
			specifiers := jsparse.ScanImportSpecifiers(tree)
			tree.Close()

			for _, spec := range specifiers {
				resolved, isExternal, err := l.Resolve(spec, id)
				if err != nil || isExternal {
					continue
				}
				walk(resolved)
			}
			return nil
		})
	}

	walk(entryID)
	return g.Wait()
}
