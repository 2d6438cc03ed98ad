package ir

// Card is a node in a function's body: the smallest unit of behavior. The
// set of concrete Card implementations below is closed by design (per
// spec.md's design notes, adding a card kind is a breaking change); the
// unexported card() method seals the interface to this package.
type Card interface {
	card()

	// Children returns the card's direct sub-cards in document order, the
	// ones addressable by CardIndex.WithSubIndex. Leaf cards return nil.
	Children() []Card
}

func (LoadInt) card()         {}
func (LoadFloat) card()       {}
func (LoadNil) card()         {}
func (LoadString) card()      {}
func (ReadVar) card()         {}
func (SetVar) card()          {}
func (ReadGlobalVar) card()   {}
func (SetGlobalVar) card()    {}
func (ReadVarField) card()    {}
func (SetVarField) card()     {}
func (Add) card()             {}
func (Sub) card()             {}
func (Mul) card()             {}
func (Div) card()             {}
func (Equals) card()          {}
func (Less) card()            {}
func (And) card()             {}
func (Or) card()              {}
func (Not) card()             {}
func (CopyLast) card()        {}
func (Pop) card()             {}
func (Jump) card()            {}
func (DynamicJump) card()     {}
func (Return) card()          {}
func (Abort) card()           {}
func (IfTrue) card()          {}
func (IfFalse) card()         {}
func (IfElse) card()          {}
func (Repeat) card()          {}
func (While) card()           {}
func (ForEach) card()         {}
func (Len) card()             {}
func (CreateTable) card()     {}
func (GetProperty) card()     {}
func (SetProperty) card()     {}
func (AppendTable) card()     {}
func (CallNative) card()      {}
func (Composite) card()       {}

func noChildren() []Card { return nil }

// Literals

type LoadInt struct{ Value int64 }
type LoadFloat struct{ Value float64 }
type LoadNil struct{}
type LoadString struct{ Value string }

func (LoadInt) Children() []Card    { return noChildren() }
func (LoadFloat) Children() []Card  { return noChildren() }
func (LoadNil) Children() []Card    { return noChildren() }
func (LoadString) Children() []Card { return noChildren() }

// Variable access

type ReadVar struct{ Name string }
type SetVar struct{ Name string }
type ReadGlobalVar struct{ Name string }
type SetGlobalVar struct{ Name string }

func (ReadVar) Children() []Card       { return noChildren() }
func (SetVar) Children() []Card        { return noChildren() }
func (ReadGlobalVar) Children() []Card { return noChildren() }
func (SetGlobalVar) Children() []Card  { return noChildren() }

// ReadVarField / SetVarField are shorthand property access cards: sugar for
// "read the local, then GetProperty(Field)" (resp. SetProperty) without
// spelling out the underlying ReadVar/LoadString/GetProperty sequence.
type ReadVarField struct {
	Var   string
	Field string
}
type SetVarField struct {
	Var   string
	Field string
}

func (ReadVarField) Children() []Card { return noChildren() }
func (SetVarField) Children() []Card  { return noChildren() }

// Arithmetic / comparison / boolean

type Add struct{}
type Sub struct{}
type Mul struct{}
type Div struct{}
type Equals struct{}
type Less struct{}
type And struct{}
type Or struct{}
type Not struct{}

func (Add) Children() []Card    { return noChildren() }
func (Sub) Children() []Card    { return noChildren() }
func (Mul) Children() []Card    { return noChildren() }
func (Div) Children() []Card    { return noChildren() }
func (Equals) Children() []Card { return noChildren() }
func (Less) Children() []Card   { return noChildren() }
func (And) Children() []Card    { return noChildren() }
func (Or) Children() []Card     { return noChildren() }
func (Not) Children() []Card    { return noChildren() }

// Stack ops

type CopyLast struct{}
type Pop struct{}

func (CopyLast) Children() []Card { return noChildren() }
func (Pop) Children() []Card      { return noChildren() }

// Flow control

// Jump invokes the function named by a dotted path: a name resolvable in
// the current module, an import alias, or (with a "super." prefix) a
// function in an ancestor module.
type Jump struct{ Target string }

// DynamicJump invokes a Function value computed at runtime (as opposed to
// Jump's statically resolved target). The function handle and its Nargs
// arguments must already be on the stack, pushed left-to-right, handle
// first; Nargs is fixed at compile time even though the callee isn't.
type DynamicJump struct{ Nargs int }

type Return struct{}
type Abort struct{ Message string }

// IfTrue/IfFalse/IfElse consume a boolean produced by a preceding card and
// execute the chosen sub-card (itself usually a Composite block). Branches
// are sub-cards, not function references.
type IfTrue struct{ Then Card }
type IfFalse struct{ Else Card }
type IfElse struct {
	Then Card
	Else Card
}

type Repeat struct {
	Count Card
	Body  Card
}

type While struct {
	Cond Card
	Body Card
}

// ForEach iterates a Table in insertion order, binding per-iteration locals
// I (0-based index), K (key) and V (value); any of the three may be the
// empty string to mean "not bound".
type ForEach struct {
	I, K, V  string
	Iterable Card
	Body     Card
}

type Len struct{}

func (Jump) Children() []Card        { return noChildren() }
func (DynamicJump) Children() []Card { return noChildren() }
func (Return) Children() []Card      { return noChildren() }
func (Abort) Children() []Card       { return noChildren() }
func (c IfTrue) Children() []Card    { return []Card{c.Then} }
func (c IfFalse) Children() []Card   { return []Card{c.Else} }
func (c IfElse) Children() []Card    { return []Card{c.Then, c.Else} }
func (c Repeat) Children() []Card    { return []Card{c.Count, c.Body} }
func (c While) Children() []Card     { return []Card{c.Cond, c.Body} }
func (c ForEach) Children() []Card    { return []Card{c.Iterable, c.Body} }
func (Len) Children() []Card         { return noChildren() }

// Table ops

type CreateTable struct{}

// GetProperty expects table then key already pushed (in that order) and
// leaves the looked-up value (or Nil on a miss) on the stack.
type GetProperty struct{}

// SetProperty expects value, then table, then key already pushed (in that
// order) and leaves nothing on the stack; this push order (rather than
// table/key/value) lets the ReadVarField/SetVarField shorthand cards work
// without a stack rotation primitive, since their value is always
// produced by a preceding sibling card.
type SetProperty struct{}

// AppendTable expects table then value already pushed (in that order).
type AppendTable struct{}

func (CreateTable) Children() []Card { return noChildren() }
func (GetProperty) Children() []Card { return noChildren() }
func (SetProperty) Children() []Card { return noChildren() }
func (AppendTable) Children() []Card { return noChildren() }

// Host calls

type CallNative struct{ Name string }

func (CallNative) Children() []Card { return noChildren() }

// Composite is an inline block of children acting as a single card; Tag is
// an optional human-readable label (e.g. "then"/"else"/"body") carried
// through for trace and dumper output.
type Composite struct {
	Tag   string
	Items []Card
}

func (c Composite) Children() []Card { return c.Items }
