package value

import "github.com/cao-lang/cao-lang-go/caoerr"

// object is the arena's internal storage cell: exactly one of str/table is
// live, selected by the Value.kind that referenced this slot.
type object struct {
	str   string
	table *Tbl
	freed bool
}

// Arena is the per-VM bump allocator for String and Table objects,
// addressed by Ref. Slots are reused via a free list once an object is
// released (the VM never frees objects mid-run today since cao-lang has no
// GC; Release exists for host embedders resetting a VM between runs).
type Arena struct {
	objects []object
	free    []Ref
	limit   int
}

// DefaultArenaLimit bounds the number of live heap objects a single VM may
// allocate, mirroring the fixed-capacity stacks: unbounded growth would let
// a misbehaving script exhaust host memory.
const DefaultArenaLimit = 4096

// NewArena returns an Arena capped at limit live objects. A limit <= 0
// selects DefaultArenaLimit.
func NewArena(limit int) *Arena {
	if limit <= 0 {
		limit = DefaultArenaLimit
	}
	return &Arena{limit: limit}
}

func (a *Arena) alloc() (Ref, error) {
	if n := len(a.free); n > 0 {
		ref := a.free[n-1]
		a.free = a.free[:n-1]
		return ref, nil
	}
	if len(a.objects) >= a.limit {
		return 0, caoerr.NewObjectArenaExhausted(nil)
	}
	a.objects = append(a.objects, object{})
	return Ref(len(a.objects) - 1), nil
}

// NewString interns a Go string as a String value.
func (a *Arena) NewString(s string) (Value, error) {
	ref, err := a.alloc()
	if err != nil {
		return Value{}, err
	}
	a.objects[ref] = object{str: s}
	return String(ref), nil
}

// String dereferences a String Ref. Panics on an out-of-range ref, which
// indicates a VM bug rather than a recoverable script error; a released
// slot reads as the empty string.
func (a *Arena) String(ref Ref) string {
	return a.objects[ref].str
}

// NewTable allocates a fresh, empty table owned by this arena and returns
// both the Value and the Ref (the latter used by the cycle check).
func (a *Arena) NewTable() (Value, Ref, error) {
	ref, err := a.alloc()
	if err != nil {
		return Value{}, 0, err
	}
	t := newTable(ref)
	a.objects[ref] = object{table: t}
	return Table(ref), ref, nil
}

// Table dereferences a Table Ref, or nil if the slot was released.
func (a *Arena) Table(ref Ref) *Tbl {
	obj := &a.objects[ref]
	if obj.freed {
		return nil
	}
	return obj.table
}

// Release returns ref's slot to the free list. cao-lang has no reference
// counting or GC, and the VM itself never calls this: resetting between
// runs replaces the whole arena.
func (a *Arena) Release(ref Ref) {
	a.objects[ref] = object{freed: true}
	a.free = append(a.free, ref)
}

// Len reports the number of live (non-freed) objects, used by dump/debug
// tooling and tests.
func (a *Arena) Len() int {
	return len(a.objects) - len(a.free)
}
