// Package value implements the scalar/object value representation and the
// per-VM object arena described in spec.md section 3 ("Value & Runtime
// Memory"). Values are plain Go structs (Copy); only String and Table
// values hold a reference into their owning Arena.
package value

import (
	"fmt"
	"math"

	"github.com/cao-lang/cao-lang-go/caoerr"
)

// Kind is the closed set of value tags.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindString
	KindTable
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "Nil"
	case KindInt:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindTable:
		return "Table"
	case KindFunction:
		return "Function"
	default:
		return "Unknown"
	}
}

// Ref addresses a heap object (string or table) owned by an Arena.
type Ref uint32

// Value is the tagged union described by spec.md: Nil, Integer(i64),
// Float(f64), String(ref), Table(ref), Function(entry offset, arity).
type Value struct {
	kind  Kind
	i     int64
	f     float64
	ref   Ref
	arity int
}

func Nil() Value                      { return Value{kind: KindNil} }
func Int(i int64) Value               { return Value{kind: KindInt, i: i} }
func Float(f float64) Value           { return Value{kind: KindFloat, f: f} }
func String(ref Ref) Value            { return Value{kind: KindString, ref: ref} }
func Table(ref Ref) Value             { return Value{kind: KindTable, ref: ref} }
func Function(entry uint32, arity int) Value {
	return Value{kind: KindFunction, i: int64(entry), arity: arity}
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

// Int64 returns the integer payload; only meaningful when Kind() == KindInt.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the float payload; only meaningful when Kind() == KindFloat.
func (v Value) Float64() float64 { return v.f }

// Ref returns the object reference payload; only meaningful for
// KindString/KindTable.
func (v Value) Ref() Ref { return v.ref }

// FuncEntry returns the entry instruction offset; only meaningful for
// KindFunction.
func (v Value) FuncEntry() uint32 { return uint32(v.i) }

// FuncArity returns the declared arity; only meaningful for KindFunction.
func (v Value) FuncArity() int { return v.arity }

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("string#%d", v.ref)
	case KindTable:
		return fmt.Sprintf("table#%d", v.ref)
	case KindFunction:
		return fmt.Sprintf("function@%d/%d", v.i, v.arity)
	default:
		return "<invalid>"
	}
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat }

func asFloat(v Value) float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Add implements the Add opcode's numeric semantics (int/float promotion);
// string concatenation is not part of Add per spec.md's closed card set.
func Add(a, b Value) (Value, error) {
	return numeric(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func Sub(a, b Value) (Value, error) {
	return numeric(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	return numeric(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

func Div(a, b Value) (Value, error) {
	if !isNumeric(a.kind) {
		return Value{}, caoerr.NewTypeMismatch("Integer or Float", a.kind.String(), nil)
	}
	if !isNumeric(b.kind) {
		return Value{}, caoerr.NewTypeMismatch("Integer or Float", b.kind.String(), nil)
	}
	if a.kind == KindInt && b.kind == KindInt {
		if b.i == 0 {
			return Value{}, caoerr.NewDivideByZero(nil)
		}
		return Int(a.i / b.i), nil
	}
	bf := asFloat(b)
	if bf == 0 {
		return Value{}, caoerr.NewDivideByZero(nil)
	}
	return Float(asFloat(a) / bf), nil
}

func numeric(a, b Value, intOp func(x, y int64) int64, floatOp func(x, y float64) float64) (Value, error) {
	if !isNumeric(a.kind) {
		return Value{}, caoerr.NewTypeMismatch("Integer or Float", a.kind.String(), nil)
	}
	if !isNumeric(b.kind) {
		return Value{}, caoerr.NewTypeMismatch("Integer or Float", b.kind.String(), nil)
	}
	if a.kind == KindInt && b.kind == KindInt {
		return Int(intOp(a.i, b.i)), nil
	}
	return Float(floatOp(asFloat(a), asFloat(b))), nil
}

// Not implements the boolean Not opcode. Any non-zero Integer is truthy,
// matching boolInt-style boolean encoding: the VM represents Bool as
// Integer(0|1). Any other kind, Float included, is a TypeMismatch.
func Not(a Value) (Value, error) {
	b, err := Truthy(a)
	if err != nil {
		return Value{}, err
	}
	if b {
		return Int(0), nil
	}
	return Int(1), nil
}

// Truthy coerces a Value to a boolean; only Integer is accepted (Booleans
// are represented as Integer(0|1) on the stack, matching the VM's Eq/Lt
// opcode outputs).
func Truthy(a Value) (bool, error) {
	if a.kind != KindInt {
		return false, caoerr.NewTypeMismatch("Integer (bool)", a.kind.String(), nil)
	}
	return a.i != 0, nil
}

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// And/Or implement short-circuit-free boolean combination over the
// Integer(0|1) encoding (both operands are always evaluated by the VM
// before the opcode runs, since And/Or are plain stack ops, not branches).
func And(a, b Value) (Value, error) {
	x, err := Truthy(a)
	if err != nil {
		return Value{}, err
	}
	y, err := Truthy(b)
	if err != nil {
		return Value{}, err
	}
	return boolValue(x && y), nil
}

func Or(a, b Value) (Value, error) {
	x, err := Truthy(a)
	if err != nil {
		return Value{}, err
	}
	y, err := Truthy(b)
	if err != nil {
		return Value{}, err
	}
	return boolValue(x || y), nil
}

// Equal implements same-tag-and-payload equality; objects compare by
// structural content. Values of different kinds are never equal, except an
// Integer and a Float holding the same number (and this never errors,
// unlike Less).
func Equal(a, b Value, arena *Arena) bool {
	if a.kind != b.kind {
		// Integers and floats that represent the same numeric value are
		// still considered equal for Eq-card ergonomics.
		if isNumeric(a.kind) && isNumeric(b.kind) {
			return asFloat(a) == asFloat(b)
		}
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		if a.ref == b.ref {
			return true
		}
		return arena.String(a.ref) == arena.String(b.ref)
	case KindTable:
		if a.ref == b.ref {
			return true
		}
		return tablesEqual(arena, a.ref, b.ref)
	case KindFunction:
		return a.i == b.i && a.arity == b.arity
	default:
		return false
	}
}

func tablesEqual(arena *Arena, aRef, bRef Ref) bool {
	ta, tb := arena.Table(aRef), arena.Table(bRef)
	if ta == nil || tb == nil || len(ta.keys) != len(tb.keys) {
		return false
	}
	for i, k := range ta.keys {
		bv, ok := tb.get(k)
		if !ok || !Equal(ta.vals[i], bv, arena) {
			return false
		}
	}
	return true
}

// Less implements total ordering within a tag; comparing across
// incompatible tags (anything but Integer/Float numeric promotion) fails
// with TypeMismatch, per spec.md section 3.
func Less(a, b Value, arena *Arena) (bool, error) {
	if isNumeric(a.kind) && isNumeric(b.kind) {
		return asFloat(a) < asFloat(b), nil
	}
	if a.kind != b.kind {
		return false, caoerr.NewTypeMismatch(a.kind.String(), b.kind.String(), nil)
	}
	switch a.kind {
	case KindString:
		return arena.String(a.ref) < arena.String(b.ref), nil
	default:
		return false, caoerr.NewTypeMismatch("orderable value", a.kind.String(), nil)
	}
}

// Len implements the Len card: string byte-length or table entry count.
// Nil (and any other kind) is a TypeMismatch.
func Len(a Value, arena *Arena) (Value, error) {
	switch a.kind {
	case KindString:
		return Int(int64(len(arena.String(a.ref)))), nil
	case KindTable:
		return Int(int64(arena.Table(a.ref).Len())), nil
	default:
		return Value{}, caoerr.NewTypeMismatch("String or Table", a.kind.String(), nil)
	}
}

var _ = math.MaxInt64 // reserved for future integer-overflow checks
