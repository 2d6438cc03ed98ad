package value

import "github.com/cao-lang/cao-lang-go/caoerr"

// Key is a table key: either an Integer (array-style index) or a String
// (interned as a Go string, independent of any particular Arena slot so
// keys remain comparable/hashable without a reachable arena).
type Key struct {
	isInt bool
	i     int64
	s     string
}

func IntKey(i int64) Key    { return Key{isInt: true, i: i} }
func StringKey(s string) Key { return Key{s: s} }

// KeyOf converts a Value used in property/index position into a Key,
// failing with InvalidKey for anything but Integer/String.
func KeyOf(v Value, arena *Arena) (Key, error) {
	switch v.Kind() {
	case KindInt:
		return IntKey(v.Int64()), nil
	case KindString:
		return StringKey(arena.String(v.Ref())), nil
	default:
		return Key{}, caoerr.NewInvalidKey(nil)
	}
}

// Tbl is an ordered associative table: insertion order is preserved for
// iteration (ForEach), while index lookups are O(1) via the side map.
type Tbl struct {
	self  Ref
	keys  []Key
	vals  []Value
	index map[Key]int
}

func newTable(self Ref) *Tbl {
	return &Tbl{self: self, index: make(map[Key]int)}
}

// Len reports the number of entries.
func (t *Tbl) Len() int { return len(t.keys) }

func (t *Tbl) get(k Key) (Value, bool) {
	i, ok := t.index[k]
	if !ok {
		return Value{}, false
	}
	return t.vals[i], true
}

// Get implements the GetProperty card. A missing key yields Nil, matching
// spec.md's "reading an absent key returns Nil" edge case rather than an
// error.
func (t *Tbl) Get(k Key) Value {
	v, ok := t.get(k)
	if !ok {
		return Nil()
	}
	return v
}

// Set implements the SetProperty card, inserting or overwriting k. arena is
// used to reject the insertion of a table value into itself or one of its
// own descendants (a cycle), which would make later traversal/destruction
// non-terminating.
func (t *Tbl) Set(k Key, v Value, arena *Arena) error {
	if v.Kind() == KindTable {
		if v.Ref() == t.self || reaches(arena, v.Ref(), t.self) {
			return caoerr.NewTypeMismatch("acyclic table", "table forming a cycle", nil)
		}
	}
	if i, ok := t.index[k]; ok {
		t.vals[i] = v
		return nil
	}
	t.index[k] = len(t.keys)
	t.keys = append(t.keys, k)
	t.vals = append(t.vals, v)
	return nil
}

// Append implements the AppendTable card: push v at the lowest unused
// non-negative integer key (len(t) if the table has been used purely as an
// array).
func (t *Tbl) Append(v Value, arena *Arena) error {
	next := int64(0)
	for {
		if _, exists := t.index[IntKey(next)]; !exists {
			break
		}
		next++
	}
	return t.Set(IntKey(next), v, arena)
}

// Keys returns the ordered key list (read-only snapshot) used by ForEach.
func (t *Tbl) Keys() []Key { return t.keys }

// Values returns the ordered value list parallel to Keys().
func (t *Tbl) Values() []Value { return t.vals }

// KeyAt returns the i-th key in insertion order, used by the VM's
// ForEach-support opcodes to bind the K local by position rather than by
// value.
func (t *Tbl) KeyAt(i int) (Key, bool) {
	if i < 0 || i >= len(t.keys) {
		return Key{}, false
	}
	return t.keys[i], true
}

// ValueAt returns the i-th value in insertion order, paired with KeyAt.
func (t *Tbl) ValueAt(i int) (Value, bool) {
	if i < 0 || i >= len(t.vals) {
		return Value{}, false
	}
	return t.vals[i], true
}

// Value materializes a Key as a runtime Value: an integer key becomes
// Integer, a string key is (re-)interned into arena as String. Used when
// ForEach binds its per-iteration K local.
func (k Key) Value(arena *Arena) (Value, error) {
	if k.isInt {
		return Int(k.i), nil
	}
	return arena.NewString(k.s)
}

// reaches reports whether the subtree rooted at `from` contains a Table
// value referencing `target` (or is target itself), i.e. whether inserting
// from under target would close a cycle. Depth-first, revisiting guarded by a seen set since
// tables are a tree by invariant but the check runs before that invariant
// is (re-)established.
func reaches(arena *Arena, from, target Ref) bool {
	seen := make(map[Ref]bool)
	var walk func(ref Ref) bool
	walk = func(ref Ref) bool {
		if ref == target {
			return true
		}
		if seen[ref] {
			return false
		}
		seen[ref] = true
		tb := arena.Table(ref)
		if tb == nil {
			return false
		}
		for _, v := range tb.vals {
			if v.Kind() == KindTable && walk(v.Ref()) {
				return true
			}
		}
		return false
	}
	return walk(from)
}
