package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/ir"
	"github.com/cao-lang/cao-lang-go/value"
	"github.com/cao-lang/cao-lang-go/vm"
)

func mustCompile(t *testing.T, m *ir.Module, opts ...compiler.CompilerOption) *compiler.CompiledProgram {
	t.Helper()
	prog, err := compiler.Compile(m, opts...)
	require.NoError(t, err)
	return prog
}

func mainModule(cards ...ir.Card) *ir.Module {
	m := ir.NewModule("")
	fn := ir.NewFunction("main")
	fn.Cards = cards
	_ = m.InsertFunction(fn)
	return m
}

func TestRunArithmeticAndGlobals(t *testing.T) {
	m := mainModule(
		ir.LoadInt{Value: 2},
		ir.LoadInt{Value: 3},
		ir.Add{},
		ir.SetGlobalVar{Name: "total"},
		ir.ReadGlobalVar{Name: "total"},
		ir.LoadInt{Value: 10},
		ir.Mul{},
		ir.Return{},
	)
	prog := mustCompile(t, m)

	machine := vm.New()
	result, err := machine.Run(prog)
	require.NoError(t, err)
	assert.Equal(t, value.KindInt, result.Kind())
	assert.Equal(t, int64(50), result.Int64())

	total, ok := machine.GetGlobal("total")
	require.True(t, ok)
	assert.Equal(t, int64(5), total.Int64())
}

// TestRunCallABI mirrors the worked example: main pushes 10 then 3 and
// jumps to sub(a, b) = a - b; a must bind to the first-pushed argument.
func TestRunCallABI(t *testing.T) {
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
	prog := mustCompile(t, m)

	result, err := vm.New().Run(prog)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Int64())
}

func TestRunRecursiveFunctionCall(t *testing.T) {
	// sum(n) = n <= 0 ? 0 : n + sum(n-1)
	m := ir.NewModule("")
	main := ir.NewFunction("main")
	main.Cards = []ir.Card{
		ir.LoadInt{Value: 5},
		ir.Jump{Target: "sum"},
		ir.Return{},
	}
	sum := ir.NewFunction("sum", "n")
	sum.Cards = []ir.Card{
		ir.LoadInt{Value: 0},
		ir.ReadVar{Name: "n"},
		ir.Less{},
		ir.Not{},
		ir.IfTrue{Then: ir.Composite{Items: []ir.Card{
			ir.LoadInt{Value: 0},
			ir.Return{},
		}}},
		ir.ReadVar{Name: "n"},
		ir.ReadVar{Name: "n"},
		ir.LoadInt{Value: 1},
		ir.Sub{},
		ir.Jump{Target: "sum"},
		ir.Add{},
		ir.Return{},
	}
	require.NoError(t, m.InsertFunction(main))
	require.NoError(t, m.InsertFunction(sum))
	prog := mustCompile(t, m)

	result, err := vm.New().Run(prog)
	require.NoError(t, err)
	assert.Equal(t, int64(15), result.Int64())
}

func TestRunRepeatLoop(t *testing.T) {
	m := mainModule(
		ir.LoadInt{Value: 0},
		ir.SetGlobalVar{Name: "acc"},
		ir.Repeat{
			Count: ir.LoadInt{Value: 4},
			Body: ir.Composite{Items: []ir.Card{
				ir.ReadGlobalVar{Name: "acc"},
				ir.ReadVar{Name: "i"},
				ir.Add{},
				ir.SetGlobalVar{Name: "acc"},
			}},
		},
		ir.ReadGlobalVar{Name: "acc"},
		ir.Return{},
	)
	prog := mustCompile(t, m)

	result, err := vm.New().Run(prog)
	require.NoError(t, err)
	assert.Equal(t, int64(0+1+2+3), result.Int64())
}

func TestRunForEachIntegerAndStringKeys(t *testing.T) {
	m := mainModule(
		ir.CreateTable{},
		ir.SetVar{Name: "t"},
		ir.ReadVar{Name: "t"},
		ir.LoadString{Value: "x"},
		ir.AppendTable{},
		ir.ReadVar{Name: "t"},
		ir.LoadString{Value: "y"},
		ir.AppendTable{},
		ir.LoadInt{Value: 0},
		ir.SetGlobalVar{Name: "count"},
		ir.ForEach{
			I: "i", V: "v",
			Iterable: ir.ReadVar{Name: "t"},
			Body: ir.Composite{Items: []ir.Card{
				ir.ReadGlobalVar{Name: "count"},
				ir.LoadInt{Value: 1},
				ir.Add{},
				ir.SetGlobalVar{Name: "count"},
			}},
		},
		ir.ReadGlobalVar{Name: "count"},
		ir.Return{},
	)
	prog := mustCompile(t, m)

	machine := vm.New()
	result, err := machine.Run(prog)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Int64())
}

func TestRunForEachWithStringKeyedTable(t *testing.T) {
	// A string-keyed table entry written via SetProperty, then walked with
	// ForEach binding K and V: this is the case the positional ValueAt/
	// KeyAt opcodes exist to get right (GetProp can't find a string key by
	// an integer position).
	m := mainModule(
		ir.CreateTable{},
		ir.SetVar{Name: "t"},
		ir.LoadInt{Value: 99},
		ir.ReadVar{Name: "t"},
		ir.LoadString{Value: "hello"},
		ir.SetProperty{},
		ir.LoadInt{Value: 0},
		ir.SetGlobalVar{Name: "seen"},
		ir.ForEach{
			K: "k", V: "v",
			Iterable: ir.ReadVar{Name: "t"},
			Body: ir.Composite{Items: []ir.Card{
				ir.ReadVar{Name: "v"},
				ir.SetGlobalVar{Name: "seen"},
			}},
		},
		ir.ReadGlobalVar{Name: "seen"},
		ir.Return{},
	)
	prog := mustCompile(t, m)

	result, err := vm.New().Run(prog)
	require.NoError(t, err)
	assert.Equal(t, int64(99), result.Int64())
}

func TestRunStackOverflowOnUnboundedRecursion(t *testing.T) {
	m := ir.NewModule("")
	main := ir.NewFunction("main")
	main.Cards = []ir.Card{ir.Jump{Target: "loop"}, ir.Return{}}
	loop := ir.NewFunction("loop")
	loop.Cards = []ir.Card{ir.Jump{Target: "loop"}, ir.Return{}}
	require.NoError(t, m.InsertFunction(main))
	require.NoError(t, m.InsertFunction(loop))
	prog := mustCompile(t, m)

	machine := vm.New(vm.WithCallStackCap(8))
	_, err := machine.Run(prog)
	var rt *caoerr.Runtime
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, caoerr.StackOverflow, rt.Kind)
}

func TestRunTimeoutAndResume(t *testing.T) {
	m := mainModule(
		ir.LoadInt{Value: 0},
		ir.SetGlobalVar{Name: "acc"},
		ir.Repeat{
			Count: ir.LoadInt{Value: 100},
			Body: ir.Composite{Items: []ir.Card{
				ir.ReadGlobalVar{Name: "acc"},
				ir.LoadInt{Value: 1},
				ir.Add{},
				ir.SetGlobalVar{Name: "acc"},
			}},
		},
		ir.ReadGlobalVar{Name: "acc"},
		ir.Return{},
	)
	prog := mustCompile(t, m)

	machine := vm.New(vm.WithMaxInstructions(5))
	_, err := machine.Run(prog)
	var rt *caoerr.Runtime
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, caoerr.Timeout, rt.Kind)

	// Resuming with a replenished budget eventually completes.
	for i := 0; i < 1000; i++ {
		result, err := machine.Run(prog)
		if err == nil {
			assert.Equal(t, int64(100), result.Int64())
			return
		}
		require.ErrorAs(t, err, &rt)
		require.Equal(t, caoerr.Timeout, rt.Kind)
	}
	t.Fatal("program never completed after repeated resumes")
}

func TestRunCallNativeNotFound(t *testing.T) {
	m := mainModule(ir.CallNative{Name: "missing"}, ir.Return{})
	prog := mustCompile(t, m)

	_, err := vm.New().Run(prog)
	var rt *caoerr.Runtime
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, caoerr.NativeNotFound, rt.Kind)
}

func TestRunCallNativeDispatch(t *testing.T) {
	m := mainModule(
		ir.LoadInt{Value: 4},
		ir.LoadInt{Value: 5},
		ir.CallNative{Name: "addTwo"},
		ir.Return{},
	)
	prog := mustCompile(t, m)

	machine := vm.New(vm.WithNative("addTwo", func(m *vm.VM, args vm.Args) (value.Value, error) {
		return value.Int(args.Get(0).Int64() + args.Get(1).Int64()), nil
	}, 2))

	result, err := machine.Run(prog)
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.Int64())
}

func TestRunAbort(t *testing.T) {
	m := mainModule(ir.Abort{Message: "boom"})
	prog := mustCompile(t, m)

	_, err := vm.New().Run(prog)
	var rt *caoerr.Runtime
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, caoerr.Aborted, rt.Kind)
	assert.Equal(t, "boom", rt.Message)
}

func TestResetClearsState(t *testing.T) {
	m := mainModule(
		ir.LoadInt{Value: 7},
		ir.SetGlobalVar{Name: "g"},
		ir.LoadNil{},
		ir.Return{},
	)
	prog := mustCompile(t, m)

	machine := vm.New()
	_, err := machine.Run(prog)
	require.NoError(t, err)
	_, ok := machine.GetGlobal("g")
	require.True(t, ok)

	machine.Reset()
	_, ok = machine.GetGlobal("g")
	assert.False(t, ok)
	assert.Equal(t, 0, machine.CallDepth())
}
