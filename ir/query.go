package ir

// GetCard resolves idx to the card it addresses within fn.
func GetCard(fn *Function, idx CardIndex) (Card, error) {
	if idx.Function != fn.Name || len(idx.Path) == 0 {
		return nil, attachIndex(IndexOutOfBoundsError{}, idx)
	}
	c, err := getFromList(fn.Cards, idx.Path)
	if err != nil {
		return nil, attachIndex(err, idx)
	}
	return c, nil
}

// ReplaceCard overwrites the card at idx with newCard, returning the card
// that was there before. It never changes the shape of any container: the
// replaced card simply takes the old one's place.
func ReplaceCard(fn *Function, idx CardIndex, newCard Card) (Card, error) {
	if idx.Function != fn.Name || len(idx.Path) == 0 {
		return nil, attachIndex(IndexOutOfBoundsError{}, idx)
	}
	cards, old, err := replaceInList(fn.Cards, idx.Path, newCard)
	if err != nil {
		return nil, attachIndex(err, idx)
	}
	fn.Cards = cards
	return old, nil
}

// InsertCard inserts newCard at idx, shifting idx and everything after it
// (within the same container) one position later. idx must address a
// position within the function's top-level card list or within a
// Composite's children; inserting into a fixed-arity container (IfElse,
// Repeat, ...) fails with InvalidIndexForCardTypeError.
func InsertCard(fn *Function, idx CardIndex, newCard Card) error {
	if idx.Function != fn.Name || len(idx.Path) == 0 {
		return attachIndex(IndexOutOfBoundsError{}, idx)
	}
	cards, err := insertInList(fn.Cards, idx.Path, newCard)
	if err != nil {
		return attachIndex(err, idx)
	}
	fn.Cards = cards
	return nil
}

// RemoveCard removes and returns the card at idx, renumbering the siblings
// that followed it. As with InsertCard, this only succeeds against the
// function's top-level card list or a Composite's children.
func RemoveCard(fn *Function, idx CardIndex) (Card, error) {
	if idx.Function != fn.Name || len(idx.Path) == 0 {
		return nil, attachIndex(IndexOutOfBoundsError{}, idx)
	}
	cards, removed, err := removeInList(fn.Cards, idx.Path)
	if err != nil {
		return nil, attachIndex(err, idx)
	}
	fn.Cards = cards
	return removed, nil
}

func attachIndex(err error, idx CardIndex) error {
	switch e := err.(type) {
	case IndexOutOfBoundsError:
		e.Index = idx
		return e
	case InvalidIndexForCardTypeError:
		e.Index = idx
		return e
	default:
		return err
	}
}

// getFromList / the *InList family operate on a card list addressed by a
// CardIndex path: path[0] selects an element of the list itself, and any
// remaining path components descend into that element's children.

func getFromList(cards []Card, path []int) (Card, error) {
	i := path[0]
	if i < 0 || i >= len(cards) {
		return nil, IndexOutOfBoundsError{}
	}
	if len(path) == 1 {
		return cards[i], nil
	}
	return getFromCard(cards[i], path[1:])
}

func getFromCard(c Card, path []int) (Card, error) {
	children := c.Children()
	i := path[0]
	if children == nil {
		return nil, InvalidIndexForCardTypeError{Card: c}
	}
	if i < 0 || i >= len(children) {
		return nil, IndexOutOfBoundsError{}
	}
	if len(path) == 1 {
		return children[i], nil
	}
	return getFromCard(children[i], path[1:])
}

func replaceInList(cards []Card, path []int, newCard Card) ([]Card, Card, error) {
	i := path[0]
	if i < 0 || i >= len(cards) {
		return nil, nil, IndexOutOfBoundsError{}
	}
	if len(path) == 1 {
		old := cards[i]
		out := append([]Card(nil), cards...)
		out[i] = newCard
		return out, old, nil
	}
	newChild, old, err := replaceInCard(cards[i], path[1:], newCard)
	if err != nil {
		return nil, nil, err
	}
	out := append([]Card(nil), cards...)
	out[i] = newChild
	return out, old, nil
}

func replaceInCard(c Card, path []int, newCard Card) (Card, Card, error) {
	i := path[0]
	if len(path) == 1 {
		old, err := containerGet(c, i)
		if err != nil {
			return nil, nil, err
		}
		updated, err := containerSet(c, i, newCard)
		return updated, old, err
	}
	children := c.Children()
	if children == nil {
		return nil, nil, InvalidIndexForCardTypeError{Card: c}
	}
	if i < 0 || i >= len(children) {
		return nil, nil, IndexOutOfBoundsError{}
	}
	newChild, old, err := replaceInCard(children[i], path[1:], newCard)
	if err != nil {
		return nil, nil, err
	}
	updated, err := containerSet(c, i, newChild)
	return updated, old, err
}

func insertInList(cards []Card, path []int, newCard Card) ([]Card, error) {
	i := path[0]
	if len(path) == 1 {
		if i < 0 || i > len(cards) {
			return nil, IndexOutOfBoundsError{}
		}
		out := make([]Card, 0, len(cards)+1)
		out = append(out, cards[:i]...)
		out = append(out, newCard)
		out = append(out, cards[i:]...)
		return out, nil
	}
	if i < 0 || i >= len(cards) {
		return nil, IndexOutOfBoundsError{}
	}
	newChild, err := insertInCard(cards[i], path[1:], newCard)
	if err != nil {
		return nil, err
	}
	out := append([]Card(nil), cards...)
	out[i] = newChild
	return out, nil
}

func insertInCard(c Card, path []int, newCard Card) (Card, error) {
	i := path[0]
	if len(path) == 1 {
		comp, ok := c.(Composite)
		if !ok {
			return nil, InvalidIndexForCardTypeError{Card: c}
		}
		if i < 0 || i > len(comp.Items) {
			return nil, IndexOutOfBoundsError{}
		}
		items := make([]Card, 0, len(comp.Items)+1)
		items = append(items, comp.Items[:i]...)
		items = append(items, newCard)
		items = append(items, comp.Items[i:]...)
		comp.Items = items
		return comp, nil
	}
	children := c.Children()
	if children == nil {
		return nil, InvalidIndexForCardTypeError{Card: c}
	}
	if i < 0 || i >= len(children) {
		return nil, IndexOutOfBoundsError{}
	}
	newChild, err := insertInCard(children[i], path[1:], newCard)
	if err != nil {
		return nil, err
	}
	return containerSet(c, i, newChild)
}

func removeInList(cards []Card, path []int) ([]Card, Card, error) {
	i := path[0]
	if i < 0 || i >= len(cards) {
		return nil, nil, IndexOutOfBoundsError{}
	}
	if len(path) == 1 {
		removed := cards[i]
		out := make([]Card, 0, len(cards)-1)
		out = append(out, cards[:i]...)
		out = append(out, cards[i+1:]...)
		return out, removed, nil
	}
	newChild, removed, err := removeInCard(cards[i], path[1:])
	if err != nil {
		return nil, nil, err
	}
	out := append([]Card(nil), cards...)
	out[i] = newChild
	return out, removed, nil
}

func removeInCard(c Card, path []int) (Card, Card, error) {
	i := path[0]
	if len(path) == 1 {
		comp, ok := c.(Composite)
		if !ok {
			return nil, nil, InvalidIndexForCardTypeError{Card: c}
		}
		if i < 0 || i >= len(comp.Items) {
			return nil, nil, IndexOutOfBoundsError{}
		}
		removed := comp.Items[i]
		items := make([]Card, 0, len(comp.Items)-1)
		items = append(items, comp.Items[:i]...)
		items = append(items, comp.Items[i+1:]...)
		comp.Items = items
		return comp, removed, nil
	}
	children := c.Children()
	if children == nil {
		return nil, nil, InvalidIndexForCardTypeError{Card: c}
	}
	if i < 0 || i >= len(children) {
		return nil, nil, IndexOutOfBoundsError{}
	}
	newChild, removed, err := removeInCard(children[i], path[1:])
	if err != nil {
		return nil, nil, err
	}
	updated, err := containerSet(c, i, newChild)
	return updated, removed, err
}

// containerGet/containerSet address the fixed-arity "slots" of control-flow
// cards (IfTrue/IfFalse/IfElse/Repeat/While/ForEach) by position, and fall
// back to Composite's variable-length Items for everything else.
func containerGet(c Card, i int) (Card, error) {
	switch v := c.(type) {
	case IfTrue:
		if i == 0 {
			return v.Then, nil
		}
	case IfFalse:
		if i == 0 {
			return v.Else, nil
		}
	case IfElse:
		switch i {
		case 0:
			return v.Then, nil
		case 1:
			return v.Else, nil
		}
	case Repeat:
		switch i {
		case 0:
			return v.Count, nil
		case 1:
			return v.Body, nil
		}
	case While:
		switch i {
		case 0:
			return v.Cond, nil
		case 1:
			return v.Body, nil
		}
	case ForEach:
		switch i {
		case 0:
			return v.Iterable, nil
		case 1:
			return v.Body, nil
		}
	case Composite:
		if i >= 0 && i < len(v.Items) {
			return v.Items[i], nil
		}
		return nil, IndexOutOfBoundsError{}
	default:
		return nil, InvalidIndexForCardTypeError{Card: c}
	}
	return nil, InvalidIndexForCardTypeError{Card: c}
}

func containerSet(c Card, i int, newChild Card) (Card, error) {
	switch v := c.(type) {
	case IfTrue:
		if i != 0 {
			return nil, InvalidIndexForCardTypeError{Card: c}
		}
		v.Then = newChild
		return v, nil
	case IfFalse:
		if i != 0 {
			return nil, InvalidIndexForCardTypeError{Card: c}
		}
		v.Else = newChild
		return v, nil
	case IfElse:
		switch i {
		case 0:
			v.Then = newChild
		case 1:
			v.Else = newChild
		default:
			return nil, InvalidIndexForCardTypeError{Card: c}
		}
		return v, nil
	case Repeat:
		switch i {
		case 0:
			v.Count = newChild
		case 1:
			v.Body = newChild
		default:
			return nil, InvalidIndexForCardTypeError{Card: c}
		}
		return v, nil
	case While:
		switch i {
		case 0:
			v.Cond = newChild
		case 1:
			v.Body = newChild
		default:
			return nil, InvalidIndexForCardTypeError{Card: c}
		}
		return v, nil
	case ForEach:
		switch i {
		case 0:
			v.Iterable = newChild
		case 1:
			v.Body = newChild
		default:
			return nil, InvalidIndexForCardTypeError{Card: c}
		}
		return v, nil
	case Composite:
		if i < 0 || i >= len(v.Items) {
			return nil, IndexOutOfBoundsError{}
		}
		items := append([]Card(nil), v.Items...)
		items[i] = newChild
		v.Items = items
		return v, nil
	default:
		return nil, InvalidIndexForCardTypeError{Card: c}
	}
}
