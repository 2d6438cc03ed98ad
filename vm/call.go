package vm

import (
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/value"
)

// pushFrame records a new call_stack entry at entry, with nargs already
// sitting on top of the value stack serving directly as that frame's
// locals window (no copy). callerSP is the stack length to truncate back
// to when this frame returns (dropping its args, any extra working
// values, and — for a dynamic call — the callee handle beneath them).
func (vm *VM) pushFrame(program *compiler.CompiledProgram, entry uint32, nargs, callerSP int) error {
	if len(vm.frames) >= vm.callStackCap {
		return caoerr.NewStackOverflow(vm.trace())
	}
	base := vm.sp - nargs
	if base < 0 {
		return caoerr.NewStackUnderflow(vm.trace())
	}
	trace, _ := program.CardAt(vm.curIP)
	vm.frames = append(vm.frames, frame{
		returnIP:  vm.ip,
		base:      base,
		callerSP:  callerSP,
		entry:     entry,
		traceCard: trace,
	})
	vm.ip = entry
	return nil
}

// callStatic implements CallStatic(entry, nargs): the callee is resolved
// at compile time, so its nargs arguments are already the top of the
// stack with no handle beneath them (callerSP == base).
func (vm *VM) callStatic(program *compiler.CompiledProgram, entry uint32, nargs int) error {
	if _, ok := program.FuncAt(entry); !ok {
		return caoerr.NewNativeError("call to unresolved function entry", vm.trace())
	}
	return vm.pushFrame(program, entry, nargs, vm.sp-nargs)
}

// callDynamic implements Call(nargs) (DynamicJump): the stack holds
// [..., handle, a1, ..., an] with the handle one slot below the args;
// callerSP drops both the args and that handle on return.
func (vm *VM) callDynamic(program *compiler.CompiledProgram, nargs int) error {
	if vm.sp < nargs+1 {
		return caoerr.NewStackUnderflow(vm.trace())
	}
	handle := vm.stack[vm.sp-nargs-1]
	if handle.Kind() != value.KindFunction {
		return caoerr.NewTypeMismatch("Function", handle.Kind().String(), vm.trace())
	}
	entry := handle.FuncEntry()
	if _, ok := program.FuncAt(entry); !ok {
		return caoerr.NewNativeError("call through a function value with no matching entry", vm.trace())
	}
	return vm.pushFrame(program, entry, nargs, vm.sp-nargs-1)
}

// execReturn tears down the current frame: the top-of-stack value (if
// any was left above the frame's locals) becomes the call's result, the
// stack is truncated to the caller's view, and execution resumes at the
// caller's saved return_ip — or, for the outermost frame, the run ends
// and the result is returned to the host.
func (vm *VM) execReturn() (done bool, result value.Value, err error) {
	f := vm.curFrame()
	var r value.Value
	if vm.sp > f.base {
		r, err = vm.pop()
		if err != nil {
			return false, value.Value{}, err
		}
	} else {
		r = value.Nil()
	}

	returnIP := f.returnIP
	callerSP := f.callerSP
	vm.sp = callerSP
	vm.frames = vm.frames[:len(vm.frames)-1]

	if returnIP == haltIP {
		return true, r, nil
	}
	if err := vm.push(r); err != nil {
		return false, value.Value{}, err
	}
	vm.ip = returnIP
	return false, value.Value{}, nil
}

// callNative dispatches a CallNative(name) card: looks up the host's
// registered callback by name (not checked at compile time, per spec.md
// section 3's NativeNotFound invariant), pops its declared arity worth
// of arguments (or a single Table for a Variadic registration), and runs
// it synchronously.
func (vm *VM) callNative(name string) error {
	entry, ok := vm.natives[name]
	if !ok {
		return caoerr.NewNativeNotFound(name, vm.trace())
	}

	n := entry.arity
	if n == Variadic {
		n = 1
	}
	if vm.sp < n {
		return caoerr.NewStackUnderflow(vm.trace())
	}
	// The callback sees its arguments in place on the value stack; the
	// slots are released here and reused by the result push below.
	args := vm.stack[vm.sp-n : vm.sp]
	vm.sp -= n

	vm.log("vm: calling native %q with %d args", name, len(args))
	result, callErr := entry.fn(vm, Args{values: args})
	if callErr != nil {
		return caoerr.NewNativeError(callErr.Error(), vm.trace())
	}
	return vm.push(result)
}
