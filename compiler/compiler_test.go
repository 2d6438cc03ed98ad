package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/ir"
)

func moduleWithMain(cards ...ir.Card) *ir.Module {
	m := ir.NewModule("")
	fn := ir.NewFunction("main")
	fn.Cards = cards
	_ = m.InsertFunction(fn)
	return m
}

func TestCompileEmptyProgramMissingMain(t *testing.T) {
	m := ir.NewModule("")
	_, err := compiler.Compile(m)
	var emptyProgram *caoerr.Compile
	require.ErrorAs(t, err, &emptyProgram)
	assert.Equal(t, caoerr.EmptyProgram, emptyProgram.Kind)
}

func TestCompileLiteralReturn(t *testing.T) {
	m := moduleWithMain(ir.LoadInt{Value: 42}, ir.Return{})
	prog, err := compiler.Compile(m)
	require.NoError(t, err)
	info, ok := prog.MainEntry()
	require.True(t, ok)
	assert.Equal(t, 0, info.Arity)
}

// TestCompileCallABI exercises the worked example from the call ABI
// design: main pushes 10 then 3 and jumps to sub(a, b) = a - b, which
// must see a bound to the first-pushed argument.
func TestCompileCallABI(t *testing.T) {
	m := ir.NewModule("")
	main := ir.NewFunction("main")
	main.Cards = []ir.Card{
		ir.LoadInt{Value: 10},
		ir.LoadInt{Value: 3},
		ir.Jump{Target: "sub"},
		ir.Return{},
	}
	sub := ir.NewFunction("sub", "a", "b")
	sub.Cards = []ir.Card{
		ir.ReadVar{Name: "a"},
		ir.ReadVar{Name: "b"},
		ir.Sub{},
		ir.Return{},
	}
	require.NoError(t, m.InsertFunction(main))
	require.NoError(t, m.InsertFunction(sub))

	prog, err := compiler.Compile(m)
	require.NoError(t, err)

	subInfo, ok := prog.Functions["sub"]
	require.True(t, ok)
	assert.Equal(t, 2, subInfo.Arity)
	assert.Equal(t, uint32(2), subInfo.FrameSize)

	got, ok := prog.FuncAt(subInfo.Entry)
	require.True(t, ok)
	assert.Equal(t, subInfo, got)
}

func TestCompileUnresolvedJumpTarget(t *testing.T) {
	m := ir.NewModule("")
	main := ir.NewFunction("main")
	main.Cards = []ir.Card{ir.Jump{Target: "nope"}, ir.Return{}}
	require.NoError(t, m.InsertFunction(main))

	_, err := compiler.Compile(m)
	var compileErr *caoerr.Compile
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, caoerr.UnresolvedFunction, compileErr.Kind)
}

// TestCompileUnresolvedImportEntry is the "Unresolved import" end-to-end
// scenario: a root module importing "super.ghost" has nowhere to ascend to,
// and the failure is reported against the import entry itself (no
// CardIndex), independent of whether any Jump ever uses it.
func TestCompileUnresolvedImportEntry(t *testing.T) {
	m := ir.NewModule("")
	m.InsertImport("super.ghost")
	main := ir.NewFunction("main")
	main.Cards = []ir.Card{ir.Return{}}
	require.NoError(t, m.InsertFunction(main))

	_, err := compiler.Compile(m)
	var compileErr *caoerr.Compile
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, caoerr.UnresolvedImport, compileErr.Kind)
	assert.Nil(t, compileErr.Index)
}

// TestCompileJumpThroughImportAlias checks that a function imported by a
// submodule becomes callable by its bare alias from within that submodule,
// per spec.md 4.2's "addressable ... by any alias introduced by an import
// in the current function's module".
func TestCompileJumpThroughImportAlias(t *testing.T) {
	root := ir.NewModule("")
	helpers := ir.NewModule("helpers")
	double := ir.NewFunction("double", "x")
	double.Cards = []ir.Card{
		ir.ReadVar{Name: "x"},
		ir.ReadVar{Name: "x"},
		ir.Add{},
		ir.Return{},
	}
	require.NoError(t, helpers.InsertFunction(double))
	require.NoError(t, root.InsertSubmodule(helpers))

	root.InsertImport("helpers.double")
	main := ir.NewFunction("main")
	main.Cards = []ir.Card{
		ir.LoadInt{Value: 21},
		ir.Jump{Target: "double"},
		ir.Return{},
	}
	require.NoError(t, root.InsertFunction(main))

	prog, err := compiler.Compile(root)
	require.NoError(t, err)
	_, ok := prog.Functions["main"]
	require.True(t, ok)
}

func TestCompileRecursionLimit(t *testing.T) {
	var nest ir.Card = ir.Composite{Tag: "leaf", Items: []ir.Card{ir.LoadInt{Value: 1}}}
	for i := 0; i < 100; i++ {
		nest = ir.Composite{Tag: "wrap", Items: []ir.Card{nest}}
	}
	m := moduleWithMain(nest, ir.Return{})

	_, err := compiler.Compile(m, compiler.WithRecursionLimit(10))
	var compileErr *caoerr.Compile
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, caoerr.RecursionLimitReached, compileErr.Kind)
}

// TestHashStableUnderFunctionReordering checks the invariant that two
// modules differing only in function declaration order hash identically.
func TestHashStableUnderFunctionReordering(t *testing.T) {
	build := func(firstFn string) *ir.Module {
		m := ir.NewModule("")
		a := ir.NewFunction("a")
		a.Cards = []ir.Card{ir.LoadInt{Value: 1}, ir.Return{}}
		b := ir.NewFunction("b")
		b.Cards = []ir.Card{ir.LoadInt{Value: 2}, ir.Return{}}
		main := ir.NewFunction("main")
		main.Cards = []ir.Card{ir.LoadNil{}, ir.Return{}}
		if firstFn == "a" {
			_ = m.InsertFunction(a)
			_ = m.InsertFunction(b)
		} else {
			_ = m.InsertFunction(b)
			_ = m.InsertFunction(a)
		}
		_ = m.InsertFunction(main)
		return m
	}

	p1, err := compiler.Compile(build("a"))
	require.NoError(t, err)
	p2, err := compiler.Compile(build("b"))
	require.NoError(t, err)
	assert.Equal(t, p1.Hash, p2.Hash)
	assert.Equal(t, p1.Bytecode, p2.Bytecode)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := ir.NewModule("")
	main := ir.NewFunction("main")
	main.Cards = []ir.Card{
		ir.LoadInt{Value: 1},
		ir.LoadInt{Value: 2},
		ir.Add{},
		ir.Return{},
	}
	require.NoError(t, m.InsertFunction(main))

	prog, err := compiler.Compile(m)
	require.NoError(t, err)

	blob, err := compiler.Encode(prog)
	require.NoError(t, err)

	decoded, err := compiler.Decode(blob)
	require.NoError(t, err)

	assert.Equal(t, prog.Hash, decoded.Hash)
	assert.Equal(t, prog.Bytecode, decoded.Bytecode)
	assert.Equal(t, prog.Functions, decoded.Functions)

	mainInfo, ok := decoded.MainEntry()
	require.True(t, ok)
	got, ok := decoded.FuncAt(mainInfo.Entry)
	require.True(t, ok)
	assert.Equal(t, mainInfo, got)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := compiler.Decode([]byte("not a cao-lang program"))
	var badInput *caoerr.BadInput
	require.ErrorAs(t, err, &badInput)
}
