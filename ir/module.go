package ir

import "fmt"

// NotFoundError is returned by named lookups (submodule, function) that
// reference a name absent from the enclosing scope.
type NotFoundError struct {
	Name string
	Kind string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %q", e.Kind, e.Name)
}

// Module is a namespace of submodules, imports and functions. "super" is a
// reserved name: it cannot be used for a submodule and is recognized by the
// compiler's import resolver as "ascend to the parent module".
type Module struct {
	Name string

	submodules []*Module
	subIndex   map[string]int

	imports []string

	functions []*Function
	fnIndex   map[string]int
}

// Reserved is the reserved "super" identifier used to prefix an import path
// that ascends the module tree.
const Reserved = "super"

// NewModule constructs an empty module with the given name.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// Submodules returns the module's children in insertion order. The
// returned slice must not be mutated by the caller.
func (m *Module) Submodules() []*Module { return m.submodules }

// Imports returns the module's import paths in declaration order.
func (m *Module) Imports() []string { return m.imports }

// Functions returns the module's functions in declaration order. The
// returned slice must not be mutated by the caller.
func (m *Module) Functions() []*Function { return m.functions }

// Submodule looks up a direct child module by name.
func (m *Module) Submodule(name string) (*Module, error) {
	if m.subIndex == nil {
		return nil, NotFoundError{Name: name, Kind: "module"}
	}
	i, ok := m.subIndex[name]
	if !ok {
		return nil, NotFoundError{Name: name, Kind: "module"}
	}
	return m.submodules[i], nil
}

// Function looks up a direct function by name.
func (m *Module) Function(name string) (*Function, error) {
	if m.fnIndex == nil {
		return nil, NotFoundError{Name: name, Kind: "function"}
	}
	i, ok := m.fnIndex[name]
	if !ok {
		return nil, NotFoundError{Name: name, Kind: "function"}
	}
	return m.functions[i], nil
}

// InsertSubmodule appends a new submodule. Module names are simple
// identifiers; "super" is reserved.
func (m *Module) InsertSubmodule(sub *Module) error {
	if sub.Name == Reserved {
		return NameCollisionError{Name: sub.Name, Kind: "module"}
	}
	if m.subIndex == nil {
		m.subIndex = make(map[string]int)
	}
	if _, exists := m.subIndex[sub.Name]; exists {
		return NameCollisionError{Name: sub.Name, Kind: "module"}
	}
	m.subIndex[sub.Name] = len(m.submodules)
	m.submodules = append(m.submodules, sub)
	return nil
}

// ReplaceSubmodule replaces an existing submodule in place, preserving its
// position.
func (m *Module) ReplaceSubmodule(name string, sub *Module) error {
	i, ok := m.subIndex[name]
	if !ok {
		return NotFoundError{Name: name, Kind: "module"}
	}
	if sub.Name != name {
		if _, clash := m.subIndex[sub.Name]; clash {
			return NameCollisionError{Name: sub.Name, Kind: "module"}
		}
		delete(m.subIndex, name)
		m.subIndex[sub.Name] = i
	}
	m.submodules[i] = sub
	return nil
}

// RemoveSubmodule removes and returns a submodule by name, renumbering the
// siblings that followed it.
func (m *Module) RemoveSubmodule(name string) (*Module, error) {
	i, ok := m.subIndex[name]
	if !ok {
		return nil, NotFoundError{Name: name, Kind: "module"}
	}
	sub := m.submodules[i]
	m.submodules = append(m.submodules[:i], m.submodules[i+1:]...)
	delete(m.subIndex, name)
	for n, idx := range m.subIndex {
		if idx > i {
			m.subIndex[n] = idx - 1
		}
	}
	return sub, nil
}

// InsertImport appends a dotted import path.
func (m *Module) InsertImport(path string) {
	m.imports = append(m.imports, path)
}

// InsertFunction appends a new function.
func (m *Module) InsertFunction(fn *Function) error {
	if m.fnIndex == nil {
		m.fnIndex = make(map[string]int)
	}
	if _, exists := m.fnIndex[fn.Name]; exists {
		return NameCollisionError{Name: fn.Name, Kind: "function"}
	}
	m.fnIndex[fn.Name] = len(m.functions)
	m.functions = append(m.functions, fn)
	return nil
}

// ReplaceFunction replaces an existing function in place, preserving its
// position.
func (m *Module) ReplaceFunction(name string, fn *Function) error {
	i, ok := m.fnIndex[name]
	if !ok {
		return NotFoundError{Name: name, Kind: "function"}
	}
	if fn.Name != name {
		if _, clash := m.fnIndex[fn.Name]; clash {
			return NameCollisionError{Name: fn.Name, Kind: "function"}
		}
		delete(m.fnIndex, name)
		m.fnIndex[fn.Name] = i
	}
	m.functions[i] = fn
	return nil
}

// RemoveFunction removes and returns a function by name, renumbering the
// siblings that followed it.
func (m *Module) RemoveFunction(name string) (*Function, error) {
	i, ok := m.fnIndex[name]
	if !ok {
		return nil, NotFoundError{Name: name, Kind: "function"}
	}
	fn := m.functions[i]
	m.functions = append(m.functions[:i], m.functions[i+1:]...)
	delete(m.fnIndex, name)
	for n, idx := range m.fnIndex {
		if idx > i {
			m.fnIndex[n] = idx - 1
		}
	}
	return fn, nil
}

// Function is a named, callable sequence of cards (historically a "lane").
type Function struct {
	Name  string
	Args  []string
	Cards []Card
}

// NewFunction constructs an empty function.
func NewFunction(name string, args ...string) *Function {
	return &Function{Name: name, Args: args}
}

// Arity returns the number of declared arguments.
func (fn *Function) Arity() int { return len(fn.Args) }
