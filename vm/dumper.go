package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/cao-lang/cao-lang-go/compiler"
)

// Dumper renders a human-readable snapshot of a VM and the program it is
// running: disassembled bytecode annotated with the current instruction
// pointer, the live value stack, the call stack (one line per frame),
// and globals. It mirrors gothird's own vmDumper, adapted from a
// memory-cell dump to a bytecode-and-frames one.
type Dumper struct {
	VM  *VM
	Out io.Writer
}

// NewDumper builds a Dumper over vm, writing to out.
func NewDumper(vm *VM, out io.Writer) *Dumper {
	return &Dumper{VM: vm, Out: out}
}

// Dump writes the full snapshot: program disassembly, call stack, value
// stack, and globals, in that order.
func (d *Dumper) Dump() {
	fmt.Fprintf(d.Out, "# VM Dump\n")
	d.dumpProgram()
	d.dumpFrames()
	d.dumpStack()
	d.dumpGlobals()
}

func (d *Dumper) dumpProgram() {
	vm := d.VM
	if vm.program == nil {
		fmt.Fprintf(d.Out, "  program: <none>\n")
		return
	}
	fmt.Fprintf(d.Out, "  program: %d bytes, %d functions, hash %x\n",
		len(vm.program.Bytecode), len(vm.program.Functions), vm.program.Hash)

	names := make([]string, 0, len(vm.program.Functions))
	for name := range vm.program.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	code := vm.program.Bytecode
	for ip := uint32(0); int(ip) < len(code); {
		marker := "  "
		if !vm.suspended && ip == vm.curIP {
			marker = "->"
		}
		fmt.Fprintf(d.Out, "%s @%-5d ", marker, ip)
		next := d.formatInstr(code, ip)
		if next <= ip {
			break
		}
		ip = next
	}

	for _, name := range names {
		info := vm.program.Functions[name]
		fmt.Fprintf(d.Out, "  func %s: entry=%d arity=%d frame=%d\n", name, info.Entry, info.Arity, info.FrameSize)
	}
}

// formatInstr decodes and writes one instruction starting at ip, returning
// the offset of the next instruction.
func (d *Dumper) formatInstr(code []byte, ip uint32) uint32 {
	op := compiler.Opcode(code[ip])
	ip++
	fmt.Fprintf(d.Out, "%s", op)

	readU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(code[ip:])
		ip += 4
		return v
	}
	readI64 := func() int64 {
		v := binary.LittleEndian.Uint64(code[ip:])
		ip += 8
		return int64(v)
	}
	readF64 := func() float64 {
		v := binary.LittleEndian.Uint64(code[ip:])
		ip += 8
		return math.Float64frombits(v)
	}
	strName := func(id uint32) string {
		if int(id) < len(d.VM.program.InternedStrings) {
			return d.VM.program.InternedStrings[id]
		}
		return "?"
	}

	switch op {
	case compiler.OpLoadInt:
		fmt.Fprintf(d.Out, " %d", readI64())
	case compiler.OpLoadFloat:
		fmt.Fprintf(d.Out, " %g", readF64())
	case compiler.OpLoadString:
		fmt.Fprintf(d.Out, " %q", strName(readU32()))
	case compiler.OpLoadLocal, compiler.OpStoreLocal:
		fmt.Fprintf(d.Out, " slot=%d", readU32())
	case compiler.OpReadGlobal, compiler.OpWriteGlobal:
		fmt.Fprintf(d.Out, " %q", strName(readU32()))
	case compiler.OpJumpIf, compiler.OpJumpIfNot, compiler.OpJumpAbs:
		fmt.Fprintf(d.Out, " @%d", readU32())
	case compiler.OpCallStatic:
		entry := readU32()
		nargs := readU32()
		fmt.Fprintf(d.Out, " entry=%d nargs=%d", entry, nargs)
	case compiler.OpCall:
		fmt.Fprintf(d.Out, " nargs=%d", readU32())
	case compiler.OpCallNative:
		fmt.Fprintf(d.Out, " %q", strName(readU32()))
	case compiler.OpAbort:
		fmt.Fprintf(d.Out, " %q", strName(readU32()))
	}
	fmt.Fprintln(d.Out)
	return ip
}

func (d *Dumper) dumpFrames() {
	vm := d.VM
	fmt.Fprintf(d.Out, "  frames (%d):\n", len(vm.frames))
	for i, f := range vm.frames {
		fmt.Fprintf(d.Out, "    [%d] base=%d callerSP=%d returnIP=%d card=%v\n",
			i, f.base, f.callerSP, f.returnIP, f.traceCard)
	}
}

func (d *Dumper) dumpStack() {
	vm := d.VM
	fmt.Fprintf(d.Out, "  stack (%d):", vm.sp)
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(d.Out, " %v", vm.stack[i])
	}
	fmt.Fprintln(d.Out)
}

func (d *Dumper) dumpGlobals() {
	vm := d.VM
	names := make([]string, 0, len(vm.globals))
	for name := range vm.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(d.Out, "  globals (%d):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(d.Out, "    %s = %v\n", name, vm.globals[name])
	}
}
