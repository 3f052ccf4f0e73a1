// Package scope implements the lexical-scope tree of spec.md §2/§4.1: "Each
// scope records the names it declares ... Function scopes mark a boundary
// between 'strong' (top-level) and 'weak' execution contexts."
//
// Grounded on evanw-esbuild/internal/js_ast.Scope/ScopeKind, re-keyed from
// esbuild's AST-node-pointer membership onto a scope tree built directly
// during internal/graph's single CST walk (flatbundle has no separate AST
// layer distinct from the tree-sitter CST, so there is no stable node
// pointer to index members by the way esbuild does).
package scope

// Kind mirrors esbuild's ScopeKind closely enough to share the
// StopsHoisting split, trimmed to the kinds flatbundle's CST walk actually
// produces: module top level, function (covers both the parameter list and
// the body — flatbundle doesn't need esbuild's separate FunctionArgs/
// FunctionBody split since it has no default-parameter TDZ concerns),
// block, class body, and catch binding.
type Kind uint8

const (
	Module Kind = iota
	Block
	ClassBody
	CatchBinding

	// Function stops hoisting, same as esbuild's ScopeEntry/ScopeFunctionArgs.
	Function
)

// StopsHoisting reports whether a `var` or function declaration inside this
// scope extends outward into the parent, or stops here.
func (k Kind) StopsHoisting() bool {
	return k == Module || k == Function
}

// Scope is one node in the lexical-scope tree. Declared names are recorded
// directly rather than keyed off AST node identity, since membership is
// only ever queried during the same walk that builds the tree.
type Scope struct {
	Kind     Kind
	Parent   *Scope
	Children []*Scope
	declared map[string]bool
}

func New(kind Kind, parent *Scope) *Scope {
	s := &Scope{Kind: kind, Parent: parent, declared: map[string]bool{}}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Declare records a name as declared directly in this scope.
func (s *Scope) Declare(name string) {
	s.declared[name] = true
}

// DeclaresLocally reports whether name is declared directly in this scope
// (not in an ancestor).
func (s *Scope) DeclaresLocally(name string) bool {
	return s.declared[name]
}

// HoistTarget returns the nearest scope that a `var` or function declared
// in s actually lands in, per JavaScript's hoisting rules.
func (s *Scope) HoistTarget() *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind.StopsHoisting() {
			return cur
		}
	}
	return s
}

// DeclareHoisted records a `var`/function declaration at the nearest
// hoisting target, per spec §4.1.
func (s *Scope) DeclareHoisted(name string) {
	s.HoistTarget().Declare(name)
}

// Resolve walks up the parent chain looking for name, returning the scope
// that declares it, or nil if it is free (spec §4.1: "Any identifier read
// whose nearest enclosing declaration is module top level (or absent) is
// added" to dependsOn).
func (s *Scope) Resolve(name string) *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.declared[name] {
			return cur
		}
	}
	return nil
}

// IsModuleLevel reports whether s is the module's top-level scope itself.
func (s *Scope) IsModuleLevel() bool {
	return s.Kind == Module
}
