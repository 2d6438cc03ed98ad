// Package vm implements the cao-lang stack machine described by spec.md
// section 4.3: a fetch-decode-execute loop over a compiler.CompiledProgram,
// with a bounded value stack, a bounded call stack (doubling as the
// recursion limit), per-frame locals, process-lifetime globals, a
// per-instance object arena, host callback dispatch, and an instruction
// budget as the sole suspension mechanism.
package vm

import (
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/ir"
	"github.com/cao-lang/cao-lang-go/value"
)

// frame is one call_stack entry: everything needed to resume the caller
// and address the callee's locals window.
type frame struct {
	returnIP  uint32
	base      int // index into vm.stack where this frame's locals begin
	callerSP  int // vm.sp to restore when this frame returns
	entry     uint32
	traceCard ir.CardIndex
}

// VM is a single-threaded interpreter instance. It owns its value stack,
// call stack, globals and object arena; a compiler.CompiledProgram may be
// shared read-only across many VM instances (including ones running on
// other goroutines), but a VM itself is not safe for concurrent use.
type VM struct {
	stack []value.Value
	sp    int

	stackCap     int
	callStackCap int
	arenaLimit   int

	maxInstructions int64
	instrExecuted   int64

	logf func(mess string, args ...interface{})

	frames  []frame
	globals map[string]value.Value
	arena   *value.Arena
	natives map[string]nativeEntry

	program   *compiler.CompiledProgram
	ip        uint32
	curIP     uint32 // ip of the instruction currently dispatching, for trace/callsite lookups
	suspended bool
}

// New constructs a VM. Functional options configure stack/arena capacity,
// the instruction budget, a diagnostic logf hook, and pre-registered
// native callbacks, mirroring gothird's option-composed VM constructor.
func New(opts ...VMOption) *VM {
	vm := &VM{stackCap: DefaultValueStackCap, callStackCap: DefaultCallStackCap}
	Options(opts...).apply(vm)
	vm.initState()
	return vm
}

func (vm *VM) initState() {
	if vm.stackCap <= 0 {
		vm.stackCap = DefaultValueStackCap
	}
	if vm.callStackCap <= 0 {
		vm.callStackCap = DefaultCallStackCap
	}
	if vm.arenaLimit <= 0 {
		vm.arenaLimit = value.DefaultArenaLimit
	}
	vm.stack = make([]value.Value, vm.stackCap)
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.globals = make(map[string]value.Value)
	vm.arena = value.NewArena(vm.arenaLimit)
	vm.ip = 0
	vm.suspended = false
	vm.program = nil
	vm.instrExecuted = 0
}

// Reset discards all per-run state: the value stack, call stack, object
// arena and globals. Every heap object (string, table) a prior Run
// allocated is reclaimed; any Value a host kept from before the reset
// referencing one is no longer valid to dereference. Registered native
// callbacks survive a Reset (they are a property of the VM's host
// wiring, not of any one run).
func (vm *VM) Reset() {
	vm.initState()
}

// GetGlobal looks up a global variable, returning (Nil, false) if unset
// — reading an unset global is not an error (see ReadGlobalVar/GetProp's
// "miss returns Nil" edge case).
func (vm *VM) GetGlobal(name string) (value.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// SetGlobal writes a global variable, visible to every subsequent read
// within this VM's run (and across runs, until Reset).
func (vm *VM) SetGlobal(name string, v value.Value) {
	vm.globals[name] = v
}

// Attach associates program with the VM without executing it, so tooling
// (the Dumper, primarily) can disassemble and inspect a program's layout
// before or instead of running it.
func (vm *VM) Attach(program *compiler.CompiledProgram) {
	vm.program = program
}

// Arena exposes the VM's object arena, e.g. so a native callback or a
// host embedder can allocate a String/Table to push as a result.
func (vm *VM) Arena() *value.Arena { return vm.arena }

// ValueStack returns a read-only debug snapshot of the live value stack,
// bottom first, for the Dumper and tests.
func (vm *VM) ValueStack() []value.Value {
	out := make([]value.Value, vm.sp)
	copy(out, vm.stack[:vm.sp])
	return out
}

// CallDepth reports the current call stack depth, for tests and the
// Dumper.
func (vm *VM) CallDepth() int { return len(vm.frames) }

func (vm *VM) log(mess string, args ...interface{}) {
	if vm.logf != nil {
		vm.logf(mess, args...)
	}
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= vm.stackCap {
		return caoerr.NewValueStackExhausted(vm.trace())
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	if vm.sp <= 0 {
		return value.Value{}, caoerr.NewStackUnderflow(vm.trace())
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = value.Value{}
	return v, nil
}

func (vm *VM) popN(n int) ([]value.Value, error) {
	if n == 0 {
		return nil, nil
	}
	if vm.sp < n {
		return nil, caoerr.NewStackUnderflow(vm.trace())
	}
	out := make([]value.Value, n)
	copy(out, vm.stack[vm.sp-n:vm.sp])
	for i := vm.sp - n; i < vm.sp; i++ {
		vm.stack[i] = value.Value{}
	}
	vm.sp -= n
	return out, nil
}

// setLocal writes frame.base+slot, extending the logical stack top if the
// slot lies just past it. The compiler's per-function prologue stores
// into every declared local slot in increasing order starting at Arity,
// so the gap this fills is always exactly one slot at a time.
func (vm *VM) setLocal(base int, slot uint32, v value.Value) error {
	idx := base + int(slot)
	if idx < 0 || idx >= vm.stackCap {
		return caoerr.NewValueStackExhausted(vm.trace())
	}
	vm.stack[idx] = v
	if idx >= vm.sp {
		vm.sp = idx + 1
	}
	return nil
}

// getLocal reads frame.base+slot. A slot never written by this frame
// (e.g. an unreached branch's locals) reads as Nil, the zero value.Value.
func (vm *VM) getLocal(base int, slot uint32) (value.Value, error) {
	idx := base + int(slot)
	if idx < 0 || idx >= vm.stackCap {
		return value.Value{}, caoerr.NewStackUnderflow(vm.trace())
	}
	return vm.stack[idx], nil
}

// trace returns the current call-stack trace, outermost frame first: each
// frame contributes the card it was called from (the zero CardIndex for
// the outermost frame, or when no label covers the call site, e.g. with
// breadcrumbs disabled at compile time), followed by the currently
// executing card only when the program's label table resolves it.
func (vm *VM) trace() caoerr.Trace {
	t := make(caoerr.Trace, 0, len(vm.frames)+1)
	for _, f := range vm.frames {
		t = append(t, f.traceCard)
	}
	if vm.program != nil {
		if cur, ok := vm.program.CardAt(vm.curIP); ok {
			t = append(t, cur)
		}
	}
	return t
}
