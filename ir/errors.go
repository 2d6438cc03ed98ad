package ir

import "fmt"

// IndexOutOfBoundsError is returned when a CardIndex path component (or a
// submodule/function position) does not name an existing element.
type IndexOutOfBoundsError struct {
	Index CardIndex
}

func (e IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("card index out of bounds: %v", e.Index)
}

// InvalidIndexForCardTypeError is returned when a CardIndex tries to
// descend into a card kind that has no (or not that many) children, e.g.
// indexing past a leaf card.
type InvalidIndexForCardTypeError struct {
	Index CardIndex
	Card  Card
}

func (e InvalidIndexForCardTypeError) Error() string {
	return fmt.Sprintf("invalid index %v for card type %T", e.Index, e.Card)
}

// NameCollisionError is returned when inserting a submodule or function
// under a name already in use within the same scope, or a submodule under
// the reserved name "super".
type NameCollisionError struct {
	Name string
	Kind string // "module", "function"
}

func (e NameCollisionError) Error() string {
	return fmt.Sprintf("%s name collision: %q", e.Kind, e.Name)
}
