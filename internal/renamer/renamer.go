// Package renamer sanitises and deconflicts the identifiers a flat bundle
// prints, grounded on evanw-esbuild/internal/js_ast/js_ident.go's character
// classification and esbuild's NameAllocator pattern, but with a
// deliberately different collision policy: spec §4.5/§8 asks for a
// `_`-prefix-until-unique scheme rather than esbuild's numeric name2/name3
// suffixing, so two modules that both define `foo` at the top level end up
// with `foo` and `_foo`, not `foo` and `foo2`.
package renamer

import "strings"

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true, "instanceof": true,
	"new": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true, "static": true,
	"enum": true, "await": true, "implements": true, "package": true,
	"protected": true, "interface": true, "private": true, "public": true,
	"null": true, "true": true, "false": true,
}

func isIdentifierStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentifierPart(c byte) bool {
	return isIdentifierStart(c) || (c >= '0' && c <= '9')
}

// MakeLegalIdentifier replaces every character that can't appear in a
// JavaScript identifier with `_`, prefixes a leading `_` when the result
// would start with a digit or collide with a reserved word, and turns an
// empty input into a bare `_` (an entirely-illegal input such as "!!!"
// becomes one `_` per character, "___"). It is idempotent: running
// it twice produces the same result as running it once (spec §8).
func MakeLegalIdentifier(name string) string {
	if name == "" {
		return "_"
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isIdentifierPart(c):
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()

	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	if reservedWords[out] {
		out = "_" + out
	}
	return out
}

// Deconflict returns name unchanged if it isn't already present in taken,
// otherwise prefixes it with `_` repeatedly until it is unique. The caller
// is expected to add the returned name to taken itself once accepted, so
// Deconflict has no side effects of its own.
func Deconflict(name string, taken map[string]bool) string {
	for taken[name] {
		name = "_" + name
	}
	return name
}

// NameAllocator accumulates a single flat bundle's worth of claimed
// identifiers and hands out deconflicted names for it, one module's
// canonical-name suggestions at a time. It is the global counterpart to
// each Module's local GetCanonicalName: multiple modules may each suggest
// "foo", and only the allocator's shared `taken` set makes the final result
// collision-free.
type NameAllocator struct {
	taken map[string]bool
}

func NewNameAllocator() *NameAllocator {
	return &NameAllocator{taken: map[string]bool{}}
}

// Reserve claims name outright, without deconfliction — used for assumed
// globals and other identifiers the bundle must never shadow.
func (a *NameAllocator) Reserve(name string) {
	a.taken[name] = true
}

// Allocate sanitises and deconflicts suggested, claims the result, and
// returns it.
func (a *NameAllocator) Allocate(suggested string) string {
	legal := MakeLegalIdentifier(suggested)
	final := Deconflict(legal, a.taken)
	a.taken[final] = true
	return final
}
