package compiler

import (
	"fmt"
	"sort"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/ir"
)

// Compile resolves names/imports and lowers every function of root (and
// its submodules) into a single flat bytecode stream, producing an
// immutable CompiledProgram. root must contain a "main" function at its
// top level or EmptyProgram is returned.
func Compile(root *ir.Module, opts ...CompilerOption) (*CompiledProgram, error) {
	if _, err := root.Function("main"); err != nil {
		return nil, caoerr.NewEmptyProgram()
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	st := buildSymtab(root)
	if err := st.resolveImports(root); err != nil {
		return nil, err
	}
	strings := newStrtab()

	order := orderedFunctions(root, nil)
	chunks := make([]*emitter, len(order))
	base := make([]uint32, len(order))
	frameSizes := make([]uint32, len(order))
	byName := make(map[string]int, len(order))
	for i, qf := range order {
		byName[qf.qualified] = i
	}

	var offset uint32
	for i, qf := range order {
		em := newEmitter(strings, cfg.breadcrumbs)
		l := &funcLowering{
			cfg:       cfg,
			st:        st,
			em:        em,
			fn:        qf.fn,
			modPath:   qf.modPath,
			funcQName: qf.qualified,
		}
		l.locals, l.frameSize = collectLocals(qf.fn)
		if err := l.lowerBody(); err != nil {
			return nil, err
		}
		chunks[i] = em
		base[i] = offset
		frameSizes[i] = l.frameSize
		offset += em.offset()
	}

	bytecode := make([]byte, 0, offset)
	labels := make(map[string]uint32)
	funcs := make(map[string]FuncInfo, len(order))
	for i, qf := range order {
		em := chunks[i]
		for _, ref := range em.pendingRefs {
			j, ok := byName[ref.qualified]
			if !ok {
				return nil, caoerr.NewUnresolvedFunction(ref.qualified, nil)
			}
			em.writeU32At(ref.pos, base[j])
		}
		for key, off := range em.labels {
			labels[key] = base[i] + off
		}
		bytecode = append(bytecode, em.buf...)
		funcs[qf.qualified] = FuncInfo{Entry: base[i], Arity: qf.fn.Arity(), FrameSize: frameSizes[i]}
	}

	entryIndex := make(map[uint32]FuncInfo, len(funcs))
	for _, info := range funcs {
		entryIndex[info.Entry] = info
	}

	sorted := make([]cardLabel, 0, len(labels))
	for key, off := range labels {
		idx, ok := ir.ParseKey(key)
		if !ok {
			continue
		}
		sorted = append(sorted, cardLabel{Offset: off, Index: idx})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	p := &CompiledProgram{
		Bytecode:        bytecode,
		Labels:          labels,
		InternedStrings: strings.strings,
		Functions:       funcs,
		entryIndex:      entryIndex,
		sortedLabels:    sorted,
	}
	h, err := programHash(p)
	if err != nil {
		return nil, err
	}
	p.Hash = h
	return p, nil
}

type qualifiedFunction struct {
	qualified string
	modPath   []string
	fn        *ir.Function
}

// orderedFunctions returns every function in the module tree sorted by
// qualified name, so the emitted bytecode order (and hence instruction
// offsets) never depends on declaration/insertion order, matching the
// "two programs differing only in insertion order share the hash" law.
func orderedFunctions(m *ir.Module, path []string) []qualifiedFunction {
	modPath := joinPath(path)
	var out []qualifiedFunction
	for _, fn := range m.Functions() {
		out = append(out, qualifiedFunction{qualified: qualify(modPath, fn.Name), modPath: path, fn: fn})
	}
	for _, sub := range m.Submodules() {
		out = append(out, orderedFunctions(sub, append(append([]string{}, path...), sub.Name))...)
	}
	sortQualified(out)
	return out
}

func sortQualified(fns []qualifiedFunction) {
	for i := 1; i < len(fns); i++ {
		for j := i; j > 0 && fns[j].qualified < fns[j-1].qualified; j-- {
			fns[j], fns[j-1] = fns[j-1], fns[j]
		}
	}
}

// collectLocals assigns dense per-function slot numbers: function
// arguments first (in declared order), then every distinct variable name
// first referenced by ReadVar/SetVar/ReadVarField/SetVarField or bound by
// Repeat ("i") / ForEach (I, K, V) in document order. Re-use of a name
// anywhere in the function reuses its slot (shadowing, per spec.md 4.2).
func collectLocals(fn *ir.Function) (map[string]uint32, uint32) {
	locals := make(map[string]uint32)
	var next uint32
	ensure := func(name string) {
		if _, ok := locals[name]; ok {
			return
		}
		locals[name] = next
		next++
	}
	for _, a := range fn.Args {
		ensure(a)
	}
	repeatCounter := 0
	// depth mirrors ir.CardIndex.Depth() as lowerCard computes it: a
	// top-level card is lowered at depth 1 (the function root index has an
	// empty path, and lowerList's one WithSubIndex call to reach it adds 1),
	// and each further descent into Children() adds one more — matching
	// lowerForEach's own idx.Depth()-keyed hidden slot names exactly.
	var walk func(c ir.Card, depth int)
	walk = func(c ir.Card, depth int) {
		switch v := c.(type) {
		case ir.ReadVar:
			ensure(v.Name)
		case ir.SetVar:
			ensure(v.Name)
		case ir.ReadVarField:
			ensure(v.Var)
		case ir.SetVarField:
			ensure(v.Var)
		case ir.Repeat:
			ensure("i")
			ensure(fmt.Sprintf("$repeat%d", repeatCounter))
			repeatCounter++
		case ir.ForEach:
			if v.I != "" {
				ensure(v.I)
			}
			if v.K != "" {
				ensure(v.K)
			}
			if v.V != "" {
				ensure(v.V)
			}
			ensure(fmt.Sprintf("$foreach_table%d", depth))
			ensure(fmt.Sprintf("$foreach_idx%d", depth))
		}
		for _, child := range c.Children() {
			walk(child, depth+1)
		}
	}
	for _, c := range fn.Cards {
		walk(c, 1)
	}
	return locals, next
}

// funcLowering holds the mutable state for lowering one function's body.
type funcLowering struct {
	cfg       *config
	st        *symtab
	em        *emitter
	fn        *ir.Function
	modPath   []string
	funcQName string

	locals    map[string]uint32
	frameSize uint32

	repeatCounter int
}

func (l *funcLowering) slot(name string) uint32 { return l.locals[name] }

// lowerBody emits the function prologue (zero-filling any local slots
// beyond the declared arguments) followed by the body, then an implicit
// Nil-returning Return if the body doesn't end in one.
func (l *funcLowering) lowerBody() error {
	for i := uint32(l.fn.Arity()); i < l.frameSize; i++ {
		l.em.byte(OpLoadNil)
		l.em.byte(OpStoreLocal)
		l.em.emitU32(i)
	}

	idx := ir.CardIndex{Function: l.funcQName}
	depth := 0
	if err := l.lowerList(l.fn.Cards, idx, 0, &depth); err != nil {
		return err
	}
	if n := len(l.fn.Cards); n == 0 || !endsInReturnOrAbort(l.fn.Cards[n-1]) {
		l.em.byte(OpLoadNil)
		l.em.byte(OpReturn)
	}
	return nil
}

func endsInReturnOrAbort(c ir.Card) bool {
	switch c.(type) {
	case ir.Return, ir.Abort:
		return true
	default:
		return false
	}
}

// lowerList lowers a sequence of sibling cards addressed by idx.WithSubIndex(base+i),
// tracking a best-effort running stack depth for the BadArity check on Jump
// cards (reset to "unknown" — represented by a negative depth — once a
// card's effect on depth can't be statically determined, e.g. a branch).
func (l *funcLowering) lowerList(cards []ir.Card, idx ir.CardIndex, base int, depth *int) error {
	for i, c := range cards {
		cidx := idx.WithSubIndex(base + i)
		if err := l.lowerCard(c, cidx, depth); err != nil {
			return err
		}
	}
	return nil
}

func (l *funcLowering) lowerCard(c ir.Card, idx ir.CardIndex, depth *int) error {
	l.em.mark(idx)

	switch v := c.(type) {
	case ir.LoadInt:
		l.em.byte(OpLoadInt)
		l.em.emitI64(v.Value)
		bump(depth, 1)
	case ir.LoadFloat:
		l.em.byte(OpLoadFloat)
		l.em.emitF64(v.Value)
		bump(depth, 1)
	case ir.LoadNil:
		l.em.byte(OpLoadNil)
		bump(depth, 1)
	case ir.LoadString:
		l.em.byte(OpLoadString)
		l.em.emitU32(l.em.intern(v.Value))
		bump(depth, 1)
	case ir.ReadVar:
		l.em.byte(OpLoadLocal)
		l.em.emitU32(l.slot(v.Name))
		bump(depth, 1)
	case ir.SetVar:
		l.em.byte(OpStoreLocal)
		l.em.emitU32(l.slot(v.Name))
		bump(depth, -1)
	case ir.ReadGlobalVar:
		l.em.byte(OpReadGlobal)
		l.em.emitU32(l.em.intern(v.Name))
		bump(depth, 1)
	case ir.SetGlobalVar:
		l.em.byte(OpWriteGlobal)
		l.em.emitU32(l.em.intern(v.Name))
		bump(depth, -1)
	case ir.ReadVarField:
		l.em.byte(OpLoadLocal)
		l.em.emitU32(l.slot(v.Var))
		l.em.byte(OpLoadString)
		l.em.emitU32(l.em.intern(v.Field))
		l.em.byte(OpGetProp)
		bump(depth, 1)
	case ir.SetVarField:
		// SetProp expects push order value, table, key (see ir.SetProperty);
		// the value was already pushed by a preceding sibling card, so we
		// only push table+key here before the opcode.
		l.em.byte(OpLoadLocal)
		l.em.emitU32(l.slot(v.Var))
		l.em.byte(OpLoadString)
		l.em.emitU32(l.em.intern(v.Field))
		l.em.byte(OpSetProp)
		bump(depth, -1)
	case ir.Add:
		l.em.byte(OpAdd)
		bump(depth, -1)
	case ir.Sub:
		l.em.byte(OpSub)
		bump(depth, -1)
	case ir.Mul:
		l.em.byte(OpMul)
		bump(depth, -1)
	case ir.Div:
		l.em.byte(OpDiv)
		bump(depth, -1)
	case ir.Equals:
		l.em.byte(OpEq)
		bump(depth, -1)
	case ir.Less:
		l.em.byte(OpLt)
		bump(depth, -1)
	case ir.And:
		l.em.byte(OpAnd)
		bump(depth, -1)
	case ir.Or:
		l.em.byte(OpOr)
		bump(depth, -1)
	case ir.Not:
		l.em.byte(OpNot)
	case ir.CopyLast:
		l.em.byte(OpCopyLast)
		bump(depth, 1)
	case ir.Pop:
		l.em.byte(OpPop)
		bump(depth, -1)
	case ir.CreateTable:
		l.em.byte(OpCreateTable)
		bump(depth, 1)
	case ir.GetProperty:
		l.em.byte(OpGetProp)
		bump(depth, -1)
	case ir.SetProperty:
		l.em.byte(OpSetProp)
		bump(depth, -3)
	case ir.AppendTable:
		l.em.byte(OpAppendTable)
		bump(depth, -2)
	case ir.Len:
		l.em.byte(OpLen)
	case ir.Jump:
		return l.lowerJump(v, idx, depth)
	case ir.DynamicJump:
		l.em.byte(OpCall)
		l.em.emitU32(uint32(v.Nargs))
		*depth = unknown(*depth)
	case ir.Return:
		l.em.byte(OpReturn)
		*depth = unknown(*depth)
	case ir.Abort:
		l.em.byte(OpAbort)
		l.em.emitU32(l.em.intern(v.Message))
		*depth = unknown(*depth)
	case ir.IfTrue:
		return l.lowerIfTrue(v, idx, depth)
	case ir.IfFalse:
		return l.lowerIfFalse(v, idx, depth)
	case ir.IfElse:
		return l.lowerIfElse(v, idx, depth)
	case ir.Repeat:
		return l.lowerRepeat(v, idx, depth)
	case ir.While:
		return l.lowerWhile(v, idx, depth)
	case ir.ForEach:
		return l.lowerForEach(v, idx, depth)
	case ir.CallNative:
		l.em.byte(OpCallNative)
		l.em.emitU32(l.em.intern(v.Name))
		*depth = unknown(*depth)
	case ir.Composite:
		return l.lowerComposite(v, idx, depth)
	default:
		return caoerr.NewInvalidCardIndex(idx)
	}
	return nil
}

func bump(depth *int, delta int) {
	if *depth < 0 {
		return
	}
	*depth += delta
	if *depth < 0 {
		*depth = -1
	}
}

func unknown(int) int { return -1 }

// lowerJump resolves target statically and emits CallStatic with the
// resolved arity; the target's entry offset is a forward reference fixed
// up once every function's chunk has been assembled (see emitCallStatic).
func (l *funcLowering) lowerJump(v ir.Jump, idx ir.CardIndex, depth *int) error {
	ix := idx
	r, err := l.cfg.resolveCached(l.st, l.modPath, v.Target, &ix, false)
	if err != nil {
		return err
	}
	if *depth >= 0 && *depth < r.arity {
		return caoerr.NewBadArity(*depth, r.arity, fmt.Sprintf("call to %q", v.Target), &ix)
	}
	l.em.emitCallStatic(r.qualifiedFunc, uint32(r.arity))
	*depth = unknown(*depth)
	return nil
}

func (l *funcLowering) lowerIfTrue(v ir.IfTrue, idx ir.CardIndex, depth *int) error {
	bump(depth, -1)
	pos := l.em.emitJumpPlaceholder(OpJumpIfNot)
	if err := l.lowerCard(v.Then, idx.WithSubIndex(0), depth); err != nil {
		return err
	}
	l.em.patchJump(pos)
	return nil
}

func (l *funcLowering) lowerIfFalse(v ir.IfFalse, idx ir.CardIndex, depth *int) error {
	bump(depth, -1)
	pos := l.em.emitJumpPlaceholder(OpJumpIf)
	if err := l.lowerCard(v.Else, idx.WithSubIndex(0), depth); err != nil {
		return err
	}
	l.em.patchJump(pos)
	return nil
}

func (l *funcLowering) lowerIfElse(v ir.IfElse, idx ir.CardIndex, depth *int) error {
	bump(depth, -1)
	elsePos := l.em.emitJumpPlaceholder(OpJumpIfNot)
	if err := l.lowerCard(v.Then, idx.WithSubIndex(0), depth); err != nil {
		return err
	}
	endPos := l.em.emitJumpPlaceholder(OpJumpAbs)
	l.em.patchJump(elsePos)
	*depth = unknown(*depth)
	if err := l.lowerCard(v.Else, idx.WithSubIndex(1), depth); err != nil {
		return err
	}
	l.em.patchJump(endPos)
	*depth = unknown(*depth)
	return nil
}

func (l *funcLowering) lowerRepeat(v ir.Repeat, idx ir.CardIndex, depth *int) error {
	if err := l.lowerCard(v.Count, idx.WithSubIndex(0), depth); err != nil {
		return err
	}
	countSlot := l.slot(fmt.Sprintf("$repeat%d", l.repeatCounter))
	iSlot := l.slot("i")
	l.repeatCounter++

	l.em.byte(OpStoreLocal)
	l.em.emitU32(countSlot)
	l.em.byte(OpLoadInt)
	l.em.emitI64(0)
	l.em.byte(OpStoreLocal)
	l.em.emitU32(iSlot)

	loopStart := l.em.offset()
	l.em.byte(OpLoadLocal)
	l.em.emitU32(iSlot)
	l.em.byte(OpLoadLocal)
	l.em.emitU32(countSlot)
	l.em.byte(OpLt)
	endPos := l.em.emitJumpPlaceholder(OpJumpIfNot)

	*depth = unknown(*depth)
	if err := l.lowerCard(v.Body, idx.WithSubIndex(1), depth); err != nil {
		return err
	}

	l.em.byte(OpLoadLocal)
	l.em.emitU32(iSlot)
	l.em.byte(OpLoadInt)
	l.em.emitI64(1)
	l.em.byte(OpAdd)
	l.em.byte(OpStoreLocal)
	l.em.emitU32(iSlot)
	l.em.byte(OpJumpAbs)
	l.em.emitU32(loopStart)
	l.em.patchJump(endPos)
	*depth = unknown(*depth)
	return nil
}

func (l *funcLowering) lowerWhile(v ir.While, idx ir.CardIndex, depth *int) error {
	loopStart := l.em.offset()
	if err := l.lowerCard(v.Cond, idx.WithSubIndex(0), depth); err != nil {
		return err
	}
	endPos := l.em.emitJumpPlaceholder(OpJumpIfNot)
	*depth = unknown(*depth)
	if err := l.lowerCard(v.Body, idx.WithSubIndex(1), depth); err != nil {
		return err
	}
	l.em.byte(OpJumpAbs)
	l.em.emitU32(loopStart)
	l.em.patchJump(endPos)
	*depth = unknown(*depth)
	return nil
}

// lowerForEach lowers: evaluate iterable once, then walk the table by
// position via a hidden index counter, re-reading its length each pass and
// binding I/K/V locals from the entry at that position.
func (l *funcLowering) lowerForEach(v ir.ForEach, idx ir.CardIndex, depth *int) error {
	if err := l.lowerCard(v.Iterable, idx.WithSubIndex(0), depth); err != nil {
		return err
	}
	tableSlot := l.slot(fmt.Sprintf("$foreach_table%d", idx.Depth()))
	idxSlot := l.slot(fmt.Sprintf("$foreach_idx%d", idx.Depth()))
	l.em.byte(OpStoreLocal)
	l.em.emitU32(tableSlot)
	l.em.byte(OpLoadInt)
	l.em.emitI64(0)
	l.em.byte(OpStoreLocal)
	l.em.emitU32(idxSlot)

	loopStart := l.em.offset()
	l.em.byte(OpLoadLocal)
	l.em.emitU32(idxSlot)
	l.em.byte(OpLoadLocal)
	l.em.emitU32(tableSlot)
	l.em.byte(OpLen)
	l.em.byte(OpLt)
	endPos := l.em.emitJumpPlaceholder(OpJumpIfNot)

	// Table/index pairs are consumed by dedicated positional opcodes
	// (not GetProp, which is a keyed lookup): ForEach walks insertion
	// order by position, and a string-keyed table has no integer key at
	// that position for GetProp to find.
	if v.V != "" {
		l.em.byte(OpLoadLocal)
		l.em.emitU32(tableSlot)
		l.em.byte(OpLoadLocal)
		l.em.emitU32(idxSlot)
		l.em.byte(OpTableValAt)
		l.em.byte(OpStoreLocal)
		l.em.emitU32(l.slot(v.V))
	}
	if v.K != "" {
		l.em.byte(OpLoadLocal)
		l.em.emitU32(tableSlot)
		l.em.byte(OpLoadLocal)
		l.em.emitU32(idxSlot)
		l.em.byte(OpTableKeyAt)
		l.em.byte(OpStoreLocal)
		l.em.emitU32(l.slot(v.K))
	}
	if v.I != "" {
		l.em.byte(OpLoadLocal)
		l.em.emitU32(idxSlot)
		l.em.byte(OpStoreLocal)
		l.em.emitU32(l.slot(v.I))
	}

	*depth = unknown(*depth)
	if err := l.lowerCard(v.Body, idx.WithSubIndex(1), depth); err != nil {
		return err
	}

	l.em.byte(OpLoadLocal)
	l.em.emitU32(idxSlot)
	l.em.byte(OpLoadInt)
	l.em.emitI64(1)
	l.em.byte(OpAdd)
	l.em.byte(OpStoreLocal)
	l.em.emitU32(idxSlot)
	l.em.byte(OpJumpAbs)
	l.em.emitU32(loopStart)
	l.em.patchJump(endPos)
	*depth = unknown(*depth)
	return nil
}

func (l *funcLowering) lowerComposite(v ir.Composite, idx ir.CardIndex, depth *int) error {
	if idx.Depth() > l.cfg.recursionLimit {
		return caoerr.NewRecursionLimitReached(l.cfg.recursionLimit, &idx)
	}
	return l.lowerList(v.Items, idx, 0, depth)
}
