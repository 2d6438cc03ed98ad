package caoerr

import (
	"fmt"

	"github.com/cao-lang/cao-lang-go/ir"
)

// CompileKind enumerates the closed set of compile-time error variants
// from spec.md section 7.
type CompileKind int

const (
	EmptyProgram CompileKind = iota
	UnresolvedFunction
	UnresolvedImport
	AmbiguousImport
	DuplicateName
	BadArity
	RecursionLimitReached
	InvalidJumpTarget
	InvalidCardIndex
)

func (k CompileKind) String() string {
	switch k {
	case EmptyProgram:
		return "EmptyProgram"
	case UnresolvedFunction:
		return "UnresolvedFunction"
	case UnresolvedImport:
		return "UnresolvedImport"
	case AmbiguousImport:
		return "AmbiguousImport"
	case DuplicateName:
		return "DuplicateName"
	case BadArity:
		return "BadArity"
	case RecursionLimitReached:
		return "RecursionLimitReached"
	case InvalidJumpTarget:
		return "InvalidJumpTarget"
	case InvalidCardIndex:
		return "InvalidCardIndex"
	default:
		return "Unknown"
	}
}

// Compile is a single compile-time error. Every compile error carries its
// Kind, a human message, and either zero or one CardIndex (Index == nil
// means a module-level error with no single offending card).
type Compile struct {
	Kind    CompileKind
	Message string
	Index   *ir.CardIndex

	// Kind-specific detail, populated selectively by the constructors below.
	Name       string
	Path       string
	Candidates []string
	Got        int
	Expected   int
	Where      string
	Limit      int
}

func (e *Compile) Error() string {
	if e.Index != nil {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Index, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// CardIndex returns the offending CardIndex and true, or the zero value and
// false for a module-level error.
func (e *Compile) CardIndex() (ir.CardIndex, bool) {
	if e.Index == nil {
		return ir.CardIndex{}, false
	}
	return *e.Index, true
}

func idxPtr(idx ir.CardIndex) *ir.CardIndex { i := idx; return &i }

func NewEmptyProgram() *Compile {
	return &Compile{Kind: EmptyProgram, Message: "module has no \"main\" function"}
}

func NewUnresolvedFunction(name string, idx *ir.CardIndex) *Compile {
	return &Compile{Kind: UnresolvedFunction, Name: name, Index: idx,
		Message: fmt.Sprintf("unresolved function %q", name)}
}

func NewUnresolvedImport(path string, idx *ir.CardIndex) *Compile {
	return &Compile{Kind: UnresolvedImport, Path: path, Index: idx,
		Message: fmt.Sprintf("unresolved import %q", path)}
}

func NewAmbiguousImport(path string, candidates []string, idx *ir.CardIndex) *Compile {
	return &Compile{Kind: AmbiguousImport, Path: path, Candidates: candidates, Index: idx,
		Message: fmt.Sprintf("ambiguous import %q: matches %v", path, candidates)}
}

func NewDuplicateName(name string, idx *ir.CardIndex) *Compile {
	return &Compile{Kind: DuplicateName, Name: name, Index: idx,
		Message: fmt.Sprintf("duplicate name %q", name)}
}

func NewBadArity(got, expected int, where string, idx *ir.CardIndex) *Compile {
	return &Compile{Kind: BadArity, Got: got, Expected: expected, Where: where, Index: idx,
		Message: fmt.Sprintf("%s: got %d args, expected %d", where, got, expected)}
}

func NewRecursionLimitReached(limit int, idx *ir.CardIndex) *Compile {
	return &Compile{Kind: RecursionLimitReached, Limit: limit, Index: idx,
		Message: fmt.Sprintf("nested composite card depth exceeds limit %d", limit)}
}

func NewInvalidJumpTarget(target string, idx *ir.CardIndex) *Compile {
	return &Compile{Kind: InvalidJumpTarget, Name: target, Index: idx,
		Message: fmt.Sprintf("invalid jump target %q", target)}
}

func NewInvalidCardIndex(idx ir.CardIndex) *Compile {
	return &Compile{Kind: InvalidCardIndex, Index: idxPtr(idx),
		Message: fmt.Sprintf("invalid card index %v", idx)}
}
