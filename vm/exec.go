package vm

import (
	"encoding/binary"
	"math"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/internal/panicerr"
	"github.com/cao-lang/cao-lang-go/value"
)

// haltIP is never a valid instruction offset (bytecode length is bounded
// well below it); it marks the synthetic outermost frame's return
// address, the one Return from main tears down to end the run.
const haltIP = ^uint32(0)

// Run executes program's "main" function to completion, or resumes a
// prior Timeout-suspended run of the same program from where it left
// off. It is the only entry point described by spec.md's per-tick
// contract; there is no separate "resume" API.
//
// Any panic or runtime.Goexit reaching here (from a corrupt bytecode
// stream or a misbehaving native callback) is recovered and reported as
// a NativeError rather than crashing the host process.
func (vm *VM) Run(program *compiler.CompiledProgram) (value.Value, error) {
	var result value.Value
	err := panicerr.Recover("cao-lang VM", func() error {
		r, rerr := vm.runLoop(program)
		result = r
		return rerr
	})
	if err != nil {
		if panicerr.IsPanic(err) || panicerr.IsExit(err) {
			return value.Nil(), caoerr.NewNativeError(err.Error(), vm.trace())
		}
		return value.Nil(), err
	}
	return result, nil
}

func (vm *VM) runLoop(program *compiler.CompiledProgram) (value.Value, error) {
	if vm.suspended && vm.program == program {
		vm.log("vm: resuming at ip=%d", vm.ip)
		vm.suspended = false
		vm.instrExecuted = 0
	} else {
		info, ok := program.MainEntry()
		if !ok {
			return value.Value{}, caoerr.NewEmptyProgram()
		}
		vm.program = program
		vm.ip = info.Entry
		vm.sp = 0
		vm.frames = vm.frames[:0]
		vm.frames = append(vm.frames, frame{returnIP: haltIP, base: 0, callerSP: 0, entry: info.Entry})
	}

	for {
		if vm.maxInstructions > 0 && vm.instrExecuted >= vm.maxInstructions {
			vm.suspended = true
			return value.Value{}, caoerr.NewTimeout(vm.trace())
		}
		vm.instrExecuted++

		if int(vm.ip) >= len(program.Bytecode) {
			return value.Value{}, caoerr.NewStackUnderflow(vm.trace())
		}
		vm.curIP = vm.ip
		op := compiler.Opcode(program.Bytecode[vm.ip])
		vm.ip++

		done, result, err := vm.exec(program, op)
		if err != nil {
			return value.Value{}, err
		}
		if done {
			return result, nil
		}
	}
}

func (vm *VM) readU32(program *compiler.CompiledProgram) uint32 {
	v := binary.LittleEndian.Uint32(program.Bytecode[vm.ip:])
	vm.ip += 4
	return v
}

func (vm *VM) readI64(program *compiler.CompiledProgram) int64 {
	v := binary.LittleEndian.Uint64(program.Bytecode[vm.ip:])
	vm.ip += 8
	return int64(v)
}

func (vm *VM) readF64(program *compiler.CompiledProgram) float64 {
	v := binary.LittleEndian.Uint64(program.Bytecode[vm.ip:])
	vm.ip += 8
	return math.Float64frombits(v)
}

func (vm *VM) internedString(program *compiler.CompiledProgram, id uint32) string {
	if int(id) >= len(program.InternedStrings) {
		return ""
	}
	return program.InternedStrings[id]
}

func (vm *VM) curFrame() *frame { return &vm.frames[len(vm.frames)-1] }

// exec runs exactly one decoded instruction. done reports whether the
// outermost frame just returned (ending the run); result is only
// meaningful when done is true.
func (vm *VM) exec(program *compiler.CompiledProgram, op compiler.Opcode) (done bool, result value.Value, err error) {
	switch op {
	case compiler.OpLoadInt:
		err = vm.push(value.Int(vm.readI64(program)))
	case compiler.OpLoadFloat:
		err = vm.push(value.Float(vm.readF64(program)))
	case compiler.OpLoadNil:
		err = vm.push(value.Nil())
	case compiler.OpLoadString:
		id := vm.readU32(program)
		var s value.Value
		s, err = vm.arena.NewString(vm.internedString(program, id))
		if err == nil {
			err = vm.push(s)
		}
	case compiler.OpLoadLocal:
		slot := vm.readU32(program)
		var v value.Value
		v, err = vm.getLocal(vm.curFrame().base, slot)
		if err == nil {
			err = vm.push(v)
		}
	case compiler.OpStoreLocal:
		slot := vm.readU32(program)
		var v value.Value
		if v, err = vm.pop(); err == nil {
			err = vm.setLocal(vm.curFrame().base, slot, v)
		}
	case compiler.OpReadGlobal:
		id := vm.readU32(program)
		name := vm.internedString(program, id)
		v, _ := vm.GetGlobal(name)
		err = vm.push(v)
	case compiler.OpWriteGlobal:
		id := vm.readU32(program)
		name := vm.internedString(program, id)
		var v value.Value
		if v, err = vm.pop(); err == nil {
			vm.SetGlobal(name, v)
		}
	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv,
		compiler.OpEq, compiler.OpLt, compiler.OpAnd, compiler.OpOr:
		err = vm.binOp(op)
	case compiler.OpNot:
		var a value.Value
		if a, err = vm.pop(); err == nil {
			var r value.Value
			if r, err = value.Not(a); err == nil {
				err = vm.push(r)
			}
		}
	case compiler.OpCopyLast:
		if vm.sp <= 0 {
			err = caoerr.NewStackUnderflow(vm.trace())
		} else {
			err = vm.push(vm.stack[vm.sp-1])
		}
	case compiler.OpPop:
		_, err = vm.pop()
	case compiler.OpCreateTable:
		var t value.Value
		t, _, err = vm.arena.NewTable()
		if err == nil {
			err = vm.push(t)
		}
	case compiler.OpGetProp:
		err = vm.execGetProp()
	case compiler.OpSetProp:
		err = vm.execSetProp()
	case compiler.OpAppendTable:
		err = vm.execAppendTable()
	case compiler.OpLen:
		var a value.Value
		if a, err = vm.pop(); err == nil {
			var r value.Value
			if r, err = value.Len(a, vm.arena); err == nil {
				err = vm.push(r)
			}
		}
	case compiler.OpTableKeyAt:
		err = vm.execTableAt(true)
	case compiler.OpTableValAt:
		err = vm.execTableAt(false)
	// Jump operands are offsets relative to the running function's entry:
	// the compiler back-patches them within each function's own chunk.
	case compiler.OpJumpIf:
		target := vm.readU32(program)
		var cond bool
		if cond, err = vm.popBool(); err == nil && cond {
			vm.ip = vm.curFrame().entry + target
		}
	case compiler.OpJumpIfNot:
		target := vm.readU32(program)
		var cond bool
		if cond, err = vm.popBool(); err == nil && !cond {
			vm.ip = vm.curFrame().entry + target
		}
	case compiler.OpJumpAbs:
		vm.ip = vm.curFrame().entry + vm.readU32(program)
	case compiler.OpCallStatic:
		entry := vm.readU32(program)
		nargs := vm.readU32(program)
		err = vm.callStatic(program, entry, int(nargs))
	case compiler.OpCall:
		nargs := vm.readU32(program)
		err = vm.callDynamic(program, int(nargs))
	case compiler.OpCallNative:
		id := vm.readU32(program)
		err = vm.callNative(vm.internedString(program, id))
	case compiler.OpReturn:
		done, result, err = vm.execReturn()
	case compiler.OpAbort:
		id := vm.readU32(program)
		err = caoerr.NewAborted(vm.internedString(program, id), vm.trace())
	default:
		err = caoerr.NewNativeError("unknown opcode", vm.trace())
	}
	return done, result, err
}

func (vm *VM) popBool() (bool, error) {
	v, err := vm.pop()
	if err != nil {
		return false, err
	}
	return value.Truthy(v)
}

func (vm *VM) binOp(op compiler.Opcode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	var r value.Value
	switch op {
	case compiler.OpAdd:
		r, err = value.Add(a, b)
	case compiler.OpSub:
		r, err = value.Sub(a, b)
	case compiler.OpMul:
		r, err = value.Mul(a, b)
	case compiler.OpDiv:
		r, err = value.Div(a, b)
	case compiler.OpEq:
		r = boolValue(value.Equal(a, b, vm.arena))
	case compiler.OpLt:
		var lt bool
		lt, err = value.Less(a, b, vm.arena)
		r = boolValue(lt)
	case compiler.OpAnd:
		r, err = value.And(a, b)
	case compiler.OpOr:
		r, err = value.Or(a, b)
	}
	if err != nil {
		if rt, ok := err.(*caoerr.Runtime); ok {
			err = rt.WithTrace(vm.trace())
		}
		return err
	}
	return vm.push(r)
}

func boolValue(b bool) value.Value {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}

func (vm *VM) execGetProp() error {
	k, err := vm.pop()
	if err != nil {
		return err
	}
	t, err := vm.pop()
	if err != nil {
		return err
	}
	if t.Kind() != value.KindTable {
		return caoerr.NewTypeMismatch("Table", t.Kind().String(), vm.trace())
	}
	key, err := value.KeyOf(k, vm.arena)
	if err != nil {
		return err
	}
	tbl := vm.arena.Table(t.Ref())
	return vm.push(tbl.Get(key))
}

func (vm *VM) execSetProp() error {
	k, err := vm.pop()
	if err != nil {
		return err
	}
	t, err := vm.pop()
	if err != nil {
		return err
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	if t.Kind() != value.KindTable {
		return caoerr.NewTypeMismatch("Table", t.Kind().String(), vm.trace())
	}
	key, err := value.KeyOf(k, vm.arena)
	if err != nil {
		return err
	}
	tbl := vm.arena.Table(t.Ref())
	return tbl.Set(key, v, vm.arena)
}

func (vm *VM) execAppendTable() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	t, err := vm.pop()
	if err != nil {
		return err
	}
	if t.Kind() != value.KindTable {
		return caoerr.NewTypeMismatch("Table", t.Kind().String(), vm.trace())
	}
	tbl := vm.arena.Table(t.Ref())
	return tbl.Append(v, vm.arena)
}

func (vm *VM) execTableAt(wantKey bool) error {
	i, err := vm.pop()
	if err != nil {
		return err
	}
	t, err := vm.pop()
	if err != nil {
		return err
	}
	if t.Kind() != value.KindTable {
		return caoerr.NewTypeMismatch("Table", t.Kind().String(), vm.trace())
	}
	if i.Kind() != value.KindInt {
		return caoerr.NewTypeMismatch("Integer", i.Kind().String(), vm.trace())
	}
	tbl := vm.arena.Table(t.Ref())
	if wantKey {
		k, ok := tbl.KeyAt(int(i.Int64()))
		if !ok {
			return vm.push(value.Nil())
		}
		kv, err := k.Value(vm.arena)
		if err != nil {
			return err
		}
		return vm.push(kv)
	}
	v, ok := tbl.ValueAt(int(i.Int64()))
	if !ok {
		return vm.push(value.Nil())
	}
	return vm.push(v)
}
