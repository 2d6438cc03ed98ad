// Package ir defines the program model: modules, functions and cards, and
// the CardIndex addressing scheme used to name any sub-card for tooling and
// error reporting.
package ir

import (
	"strconv"
	"strings"
)

// CardIndex is a stable address of a card: the name of the function that
// owns it plus a path of child positions descending into nested composite
// cards, branches and loop bodies. Path[0] selects one of the function's
// top-level cards; an empty Path names the function itself and addresses
// no card (GetCard and friends reject it).
type CardIndex struct {
	Function string
	Path     []int
}

// NewCardIndex returns the CardIndex of the i-th top-level card of fn.
func NewCardIndex(fn string, i int) CardIndex {
	return CardIndex{Function: fn, Path: []int{i}}
}

// WithSubIndex descends into the i-th child of the card the receiver
// currently addresses.
func (ci CardIndex) WithSubIndex(i int) CardIndex {
	path := make([]int, len(ci.Path)+1)
	copy(path, ci.Path)
	path[len(path)-1] = i
	return CardIndex{Function: ci.Function, Path: path}
}

// Pop ascends to the parent of the card the receiver addresses. Popping the
// root CardIndex of a function is a no-op.
func (ci CardIndex) Pop() CardIndex {
	if len(ci.Path) == 0 {
		return ci
	}
	return CardIndex{Function: ci.Function, Path: ci.Path[:len(ci.Path)-1]}
}

// Current returns the leaf path component (the position of the addressed
// card within its immediate parent) and whether the index is non-empty.
func (ci CardIndex) Current() (int, bool) {
	if len(ci.Path) == 0 {
		return 0, false
	}
	return ci.Path[len(ci.Path)-1], true
}

// Depth returns the nesting depth of the index, i.e. len(Path).
func (ci CardIndex) Depth() int { return len(ci.Path) }

// IsZero reports whether ci names no function at all (used as "no card" in
// module-level errors).
func (ci CardIndex) IsZero() bool { return ci.Function == "" && len(ci.Path) == 0 }

// Equal reports structural equality with another CardIndex.
func (ci CardIndex) Equal(other CardIndex) bool {
	if ci.Function != other.Function || len(ci.Path) != len(other.Path) {
		return false
	}
	for i, p := range ci.Path {
		if other.Path[i] != p {
			return false
		}
	}
	return true
}

// Key returns a canonical string encoding suitable for use as a map key
// (CardIndex itself is not comparable via == because Path is a slice).
func (ci CardIndex) Key() string {
	var sb strings.Builder
	sb.WriteString(ci.Function)
	for _, p := range ci.Path {
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}

func (ci CardIndex) String() string {
	if ci.IsZero() {
		return "<module>"
	}
	var sb strings.Builder
	sb.WriteString(ci.Function)
	for _, p := range ci.Path {
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}

// ParseKey inverts Key, for decoding a persisted label table.
func ParseKey(key string) (CardIndex, bool) {
	parts := strings.Split(key, "/")
	if len(parts) == 0 {
		return CardIndex{}, false
	}
	ci := CardIndex{Function: parts[0]}
	for _, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return CardIndex{}, false
		}
		ci.Path = append(ci.Path, n)
	}
	return ci, true
}
