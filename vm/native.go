package vm

import "github.com/cao-lang/cao-lang-go/value"

// Variadic marks a registered native function as taking a single Table
// argument (its caller packs however many values it wants to pass into
// that table) rather than a fixed count of individually-typed arguments.
// cao-lang's CallNative card carries no argument count of its own (see
// ir.CallNative): arity is entirely a property of the host registration,
// looked up by name at call time, so a variadic native's "arg count" has
// no compile-time representation beyond "pops one Table".
const Variadic = -1

// NativeFunc is a host callback invoked synchronously by CallNative. It
// receives a typed view of its arguments (by reference into the VM's
// value stack, not copied out until accessed) and the VM itself, so it
// can allocate strings/tables in the same arena, push additional state
// via globals, or signal failure by returning a non-nil error (wrapped by
// the VM as NativeError with the current trace attached).
type NativeFunc func(vm *VM, args Args) (value.Value, error)

// Args is the read-only argument view passed to a NativeFunc. Per
// spec.md section 4.3, a callback must not retain Args (or any Value it
// yields that references the arena) beyond its own execution: the
// backing slice is reused by the VM's value stack on the very next
// instruction.
type Args struct {
	values []value.Value
}

// Len reports the number of arguments bound to this call.
func (a Args) Len() int { return len(a.values) }

// Get returns the i-th argument (0 = first-declared/first-pushed),
// matching the left-to-right binding convention used for ordinary
// function calls.
func (a Args) Get(i int) value.Value {
	if i < 0 || i >= len(a.values) {
		return value.Nil()
	}
	return a.values[i]
}

type nativeEntry struct {
	fn    NativeFunc
	arity int
}

// RegisterFunction installs a host callback under name, to be dispatched
// by a CallNative(name) card. arity is the exact number of arguments the
// callback expects, or Variadic for the single-Table convention above.
// Registration is not validated against the compiled program: a
// CallNative naming a function never registered fails at call time with
// NativeNotFound, per spec.md section 3's invariants ("VM rejects the
// call with NativeNotFound").
func (vm *VM) RegisterFunction(name string, fn NativeFunc, arity int) {
	vm.registerFunction(name, fn, arity)
}

func (vm *VM) registerFunction(name string, fn NativeFunc, arity int) {
	if vm.natives == nil {
		vm.natives = make(map[string]nativeEntry)
	}
	vm.natives[name] = nativeEntry{fn: fn, arity: arity}
}
