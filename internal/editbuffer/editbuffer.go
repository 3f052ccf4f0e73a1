// Package editbuffer implements spec.md §6's "Edit buffer" external
// collaborator: a small overlay over one module's original source text that
// lets codegen snip and replace byte ranges and wrap the result with a
// prefix and suffix without ever mutating the original string, then render
// everything out in one pass. It has no trim or source-map-location
// methods.
//
// No pack example implements a magic-string-style text overlay (the closest
// relative, the teacher's own printer, builds output directly into a fresh
// byte buffer rather than editing source text in place), so this is built
// on the standard library alone: a sorted list of byte-range edits plus
// strings.Builder is the idiomatic minimal shape, and nothing in the
// retrieved pack offers a more specific primitive to prefer over it.
package editbuffer

import (
	"sort"
	"strings"
)

type editKind uint8

const (
	editSnip editKind = iota
	editReplace
)

type edit struct {
	start, end int
	kind       editKind
	text       string
}

// Buffer overlays source with a set of edits, applied in source order when
// Render is called.
type Buffer struct {
	source string
	edits  []edit
	prefix string
	suffix string
}

func New(source string) *Buffer {
	return &Buffer{source: source}
}

// Snip removes the byte range [start,end) from the rendered output —
// spec §6's "Snip". codegen does not call it: it slices each kept
// statement's own range out of the source instead.
func (b *Buffer) Snip(start, end int) {
	b.edits = append(b.edits, edit{start: start, end: end, kind: editSnip})
}

// Replace substitutes the byte range [start,end) with text — used by
// codegen to rewrite an identifier occurrence to its canonical name.
func (b *Buffer) Replace(start, end int, text string) {
	b.edits = append(b.edits, edit{start: start, end: end, kind: editReplace, text: text})
}

// Prepend adds text before the buffer's own rendered content.
func (b *Buffer) Prepend(text string) {
	b.prefix = text + b.prefix
}

// Append adds text after the buffer's own rendered content.
func (b *Buffer) Append(text string) {
	b.suffix += text
}

// Render applies every edit in source order and returns the final text.
// Overlapping edits are rejected by construction elsewhere in codegen (each
// byte range corresponds to exactly one Statement or one identifier
// occurrence), so Render itself only needs to sort and concatenate.
func (b *Buffer) Render() string {
	sort.SliceStable(b.edits, func(i, j int) bool {
		return b.edits[i].start < b.edits[j].start
	})

	var out strings.Builder
	out.WriteString(b.prefix)

	cursor := 0
	for _, e := range b.edits {
		if e.start > cursor {
			out.WriteString(b.source[cursor:e.start])
		}
		if e.kind == editReplace {
			out.WriteString(e.text)
		}
		if e.end > cursor {
			cursor = e.end
		}
	}
	if cursor < len(b.source) {
		out.WriteString(b.source[cursor:])
	}
	out.WriteString(b.suffix)
	return out.String()
}
