package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flatbundle/flatbundle/internal/scope"
)

func TestDeclareAndResolve(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	mod.Declare("foo")

	assert.True(t, mod.DeclaresLocally("foo"))
	assert.Equal(t, mod, mod.Resolve("foo"))
	assert.Nil(t, mod.Resolve("bar"))
}

func TestResolveWalksUpToAncestor(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	mod.Declare("foo")
	fn := scope.New(scope.Function, mod)
	block := scope.New(scope.Block, fn)

	assert.Equal(t, mod, block.Resolve("foo"))
	assert.False(t, block.DeclaresLocally("foo"))
}

func TestResolveFindsNearestDeclaration(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	mod.Declare("x")
	fn := scope.New(scope.Function, mod)
	fn.Declare("x")

	assert.Equal(t, fn, fn.Resolve("x"))
}

func TestIsModuleLevel(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	block := scope.New(scope.Block, mod)

	assert.True(t, mod.IsModuleLevel())
	assert.False(t, block.IsModuleLevel())
}

// A `var` inside nested blocks hoists all the way out to the enclosing
// function, not just its immediately enclosing block.
func TestDeclareHoistedStopsAtFunction(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	fn := scope.New(scope.Function, mod)
	outerBlock := scope.New(scope.Block, fn)
	innerBlock := scope.New(scope.Block, outerBlock)

	innerBlock.DeclareHoisted("counter")

	assert.True(t, fn.DeclaresLocally("counter"))
	assert.False(t, outerBlock.DeclaresLocally("counter"))
	assert.False(t, innerBlock.DeclaresLocally("counter"))
}

// A `var` at module top level (no enclosing function) hoists to the module
// scope itself, since Module also stops hoisting.
func TestDeclareHoistedStopsAtModuleWhenNoFunction(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	block := scope.New(scope.Block, mod)

	block.DeclareHoisted("x")

	assert.True(t, mod.DeclaresLocally("x"))
	assert.False(t, block.DeclaresLocally("x"))
}

// Class bodies and catch bindings don't stop hoisting themselves, so a var
// declared inside one still escapes to the enclosing function/module.
func TestDeclareHoistedPassesThroughClassBodyAndCatchBinding(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	fn := scope.New(scope.Function, mod)
	class := scope.New(scope.ClassBody, fn)
	catch := scope.New(scope.CatchBinding, class)

	catch.DeclareHoisted("y")

	assert.True(t, fn.DeclaresLocally("y"))
	assert.False(t, class.DeclaresLocally("y"))
	assert.False(t, catch.DeclaresLocally("y"))
}

func TestNewRegistersChildOnParent(t *testing.T) {
	mod := scope.New(scope.Module, nil)
	child := scope.New(scope.Block, mod)

	assert.Equal(t, []*scope.Scope{child}, mod.Children)
}

func TestStopsHoisting(t *testing.T) {
	assert.True(t, scope.Module.StopsHoisting())
	assert.True(t, scope.Function.StopsHoisting())
	assert.False(t, scope.Block.StopsHoisting())
	assert.False(t, scope.ClassBody.StopsHoisting())
	assert.False(t, scope.CatchBinding.StopsHoisting())
}
