package compiler

import (
	"encoding/binary"
	"math"

	"github.com/cao-lang/cao-lang-go/ir"
)

// strtab is the string table shared by every function's emitter: string
// literals and identifier names (global/field names, CallNative targets)
// are interned once across the whole program.
type strtab struct {
	strings []string
	index   map[string]int
}

func newStrtab() *strtab { return &strtab{index: make(map[string]int)} }

func (s *strtab) intern(str string) uint32 {
	if i, ok := s.index[str]; ok {
		return uint32(i)
	}
	i := len(s.strings)
	s.strings = append(s.strings, str)
	s.index[str] = i
	return uint32(i)
}

// funcRef is a forward reference to another function's entry offset,
// recorded while lowering a Jump card: the target function may not have
// been emitted yet (functions are emitted in sorted-qualified-name order,
// independent of call graph), so the operand is patched after every
// function's chunk has been assembled into the final bytecode.
type funcRef struct {
	pos       int // position within this function's local buf
	qualified string
}

// emitter accumulates a single function's local bytecode chunk and its
// CardIndex label table (both offsets relative to the chunk's own start,
// matching the program hash's "function-local offsets" normalization).
// Integer operands (slots, string ids, jump offsets, arg counts) are fixed
// 4-byte little-endian so a control-flow placeholder can be overwritten in
// place once its target offset is known. Jump operands stay chunk-relative
// in the assembled program; the VM adds the running function's entry.
type emitter struct {
	buf         []byte
	labels      map[string]uint32
	breadcrumbs bool
	strtab      *strtab
	pendingRefs []funcRef
}

func newEmitter(strtab *strtab, breadcrumbs bool) *emitter {
	return &emitter{
		labels:      make(map[string]uint32),
		breadcrumbs: breadcrumbs,
		strtab:      strtab,
	}
}

func (e *emitter) offset() uint32 { return uint32(len(e.buf)) }

func (e *emitter) mark(idx ir.CardIndex) {
	if e.breadcrumbs {
		e.labels[idx.Key()] = e.offset()
	}
}

func (e *emitter) byte(op Opcode) { e.buf = append(e.buf, byte(op)) }

func (e *emitter) u32() (pos int) {
	pos = len(e.buf)
	e.buf = append(e.buf, 0, 0, 0, 0)
	return pos
}

func (e *emitter) writeU32At(pos int, v uint32) {
	binary.LittleEndian.PutUint32(e.buf[pos:pos+4], v)
}

func (e *emitter) emitU32(v uint32) { pos := e.u32(); e.writeU32At(pos, v) }

func (e *emitter) emitI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *emitter) emitF64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *emitter) intern(s string) uint32 { return e.strtab.intern(s) }

func (e *emitter) emitJumpPlaceholder(op Opcode) int {
	e.byte(op)
	return e.u32()
}

func (e *emitter) patchJump(pos int) { e.writeU32At(pos, e.offset()) }

// emitCallStatic emits a CallStatic(entry, nargs) with a zero placeholder
// entry, recording the forward reference for the post-assembly fixup
// pass: args are already on the stack (pushed by preceding sibling
// cards), so this jumps straight to the callee without needing a
// Function value on the stack at all.
func (e *emitter) emitCallStatic(qualified string, nargs uint32) {
	e.byte(OpCallStatic)
	pos := e.u32()
	e.pendingRefs = append(e.pendingRefs, funcRef{pos: pos, qualified: qualified})
	e.emitU32(nargs)
}
