// Package compiler implements the single-pass cao-lang compiler: name
// resolution (imports, "super" ascension), lowering of a Module's
// functions to a flat bytecode stream with a CardIndex label table, string
// interning, and a deterministic program fingerprint.
package compiler

import (
	"sort"

	"github.com/cao-lang/cao-lang-go/ir"
)

// FuncInfo is the compiled program's function table entry: everything a
// VM needs to invoke a function value by qualified name.
type FuncInfo struct {
	Entry     uint32
	Arity     int
	FrameSize uint32 // total local slots, including the Arity argument slots
}

// CompiledProgram is the immutable output of Compile: bytecode, a label
// table mapping CardIndex to instruction offset, the interned string
// table, the function table, and a 128-bit fingerprint invariant under
// declaration-order reordering.
type CompiledProgram struct {
	Bytecode        []byte
	Labels          map[string]uint32 // ir.CardIndex.Key() -> offset
	InternedStrings []string
	Functions       map[string]FuncInfo // qualified name -> entry/arity
	Hash            [16]byte

	entryIndex    map[uint32]FuncInfo // index over Functions, keyed by Entry
	sortedLabels  []cardLabel         // Labels, sorted by Offset, for CardAt
}

// cardLabel pairs a breadcrumb's instruction offset with the CardIndex it
// marks.
type cardLabel struct {
	Offset uint32
	Index  ir.CardIndex
}

// Label looks up the bytecode offset recorded for idx, present only when
// the compile ran with WithBreadcrumbs(true) (the default).
func (p *CompiledProgram) Label(idx ir.CardIndex) (uint32, bool) {
	off, ok := p.Labels[idx.Key()]
	return off, ok
}

// MainEntry returns the entry offset and arity of the module's "main"
// function, the one Compile requires to exist.
func (p *CompiledProgram) MainEntry() (FuncInfo, bool) {
	info, ok := p.Functions["main"]
	return info, ok
}

// FuncAt resolves a FuncInfo by its entry instruction offset, the only
// thing a Call/CallStatic/DynamicJump operand or a Function Value carries
// at runtime; used by the VM to learn a callee's frame size before
// reserving its locals window. The index is built once by Compile (not
// lazily here) so CompiledProgram stays safe to share read-only across
// concurrently running VM instances, per spec.md section 5.
func (p *CompiledProgram) FuncAt(entry uint32) (FuncInfo, bool) {
	info, ok := p.entryIndex[entry]
	return info, ok
}

// CardAt resolves the CardIndex of the card whose emitted instructions
// contain ip: the breadcrumb with the greatest Offset <= ip. Returns
// false if the program carries no breadcrumbs at or before ip
// (WithBreadcrumbs(false) was used at compile time, or ip precedes the
// first label) — callers (the VM's trace builder) treat that as "no card
// known for this frame" rather than an error.
func (p *CompiledProgram) CardAt(ip uint32) (ir.CardIndex, bool) {
	labels := p.sortedLabels
	if len(labels) == 0 {
		return ir.CardIndex{}, false
	}
	i := sort.Search(len(labels), func(i int) bool { return labels[i].Offset > ip })
	if i == 0 {
		return ir.CardIndex{}, false
	}
	return labels[i-1].Index, true
}
