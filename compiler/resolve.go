package compiler

import (
	"strings"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/ir"
)

// resolution is the canonical answer to "what does this dotted path mean",
// cached by (module path, dotted path) in config.resolveCache to keep
// lowering O(cards) per the design notes.
type resolution struct {
	qualifiedFunc string
	fn            *ir.Function
	arity         int

	// isModule/modPath represent a dotted path that names a submodule
	// rather than a function; only meaningful for import resolution
	// (asImport=true) and the alias table it populates. A Jump target
	// always needs a function, so Jump resolution never sets or accepts
	// this.
	isModule bool
	modPath  []string
}

// alias is what a single import entry resolves to: either a function (usable
// as a one-segment Jump target) or a submodule (usable as the leading
// segment of a longer dotted path, per spec.md 4.2's "addressable ... by any
// alias introduced by an import in the current function's module").
type alias struct {
	fn      resolution
	isFunc  bool
	modPath []string
}

// symtab is the pre-pass symbol table built once per compile: every module
// indexed by its dotted path (root is "") and every function indexed by
// its fully-qualified name ("path.name", or just "name" at the root).
// aliases holds, per owning-module path, the short names introduced by that
// module's own import entries.
type symtab struct {
	modules   map[string]*ir.Module
	functions map[string]*ir.Function
	aliases   map[string]map[string]alias
}

func buildSymtab(root *ir.Module) *symtab {
	st := &symtab{
		modules:   map[string]*ir.Module{"": root},
		functions: map[string]*ir.Function{},
		aliases:   map[string]map[string]alias{},
	}
	st.walk(root, nil)
	return st
}

// resolveImports validates every import entry in the module tree (a module
// importing a name that resolves to nothing is a compile-time
// UnresolvedImport/AmbiguousImport error with no CardIndex, per spec.md 4.2
// and the "Unresolved import" end-to-end scenario) and registers the alias
// each successful one introduces, scoped to its owning module.
func (st *symtab) resolveImports(root *ir.Module) error {
	return st.walkImports(root, nil)
}

func (st *symtab) walkImports(m *ir.Module, path []string) error {
	modKey := joinPath(path)
	for _, imp := range m.Imports() {
		r, err := st.resolve(path, imp, nil, true)
		if err != nil {
			return err
		}
		name := lastSegment(imp)
		if st.aliases[modKey] == nil {
			st.aliases[modKey] = map[string]alias{}
		}
		if r.isModule {
			st.aliases[modKey][name] = alias{modPath: r.modPath}
		} else {
			st.aliases[modKey][name] = alias{fn: r, isFunc: true}
		}
	}
	for _, sub := range m.Submodules() {
		if err := st.walkImports(sub, append(append([]string{}, path...), sub.Name)); err != nil {
			return err
		}
	}
	return nil
}

func lastSegment(p string) string {
	segments := strings.Split(p, ".")
	return segments[len(segments)-1]
}

func (st *symtab) walk(m *ir.Module, path []string) {
	modPath := joinPath(path)
	st.modules[modPath] = m
	for _, fn := range m.Functions() {
		st.functions[qualify(modPath, fn.Name)] = fn
	}
	for _, sub := range m.Submodules() {
		st.walk(sub, append(append([]string{}, path...), sub.Name))
	}
}

func joinPath(path []string) string { return strings.Join(path, ".") }

func qualify(modPath, name string) string {
	if modPath == "" {
		return name
	}
	return modPath + "." + name
}

// ascend pops n "super" levels off path, failing if that would walk above
// the root.
func ascend(path []string, n int) ([]string, error) {
	if n > len(path) {
		return nil, caoerr.NewUnresolvedImport("super", nil)
	}
	return path[:len(path)-n], nil
}

// splitSuper peels any leading "super" segments off a dotted path,
// returning the ascend count and the remaining segments.
func splitSuper(segments []string) (supers int, rest []string) {
	i := 0
	for i < len(segments) && segments[i] == ir.Reserved {
		i++
	}
	return i, segments[i:]
}

// resolveModulePath resolves the module-path prefix of segments (all but
// the last) starting from base, returning the module path reached plus the
// final function name segment. Returns ok=false if any submodule segment
// along the way doesn't exist.
func (st *symtab) resolveModulePath(base []string, segments []string) ([]string, string, bool) {
	if len(segments) == 0 {
		return nil, "", false
	}
	path := append([]string{}, base...)
	cur, ok := st.modules[joinPath(path)]
	if !ok {
		return nil, "", false
	}
	for _, seg := range segments[:len(segments)-1] {
		sub, err := cur.Submodule(seg)
		if err != nil {
			return nil, "", false
		}
		path = append(path, seg)
		cur = sub
	}
	return path, segments[len(segments)-1], true
}

// resolveModuleOnly walks every segment as a submodule name starting from
// base, returning the reached module path if all segments exist as nested
// submodules (used only for import targets that name a submodule rather
// than a function).
func (st *symtab) resolveModuleOnly(base []string, segments []string) ([]string, bool) {
	path := append([]string{}, base...)
	cur, ok := st.modules[joinPath(path)]
	if !ok {
		return nil, false
	}
	for _, seg := range segments {
		sub, err := cur.Submodule(seg)
		if err != nil {
			return nil, false
		}
		path = append(path, seg)
		cur = sub
	}
	return path, true
}

// resolve answers "what does dotted path `p`, written inside the module at
// fromPath, refer to", per spec.md 4.2: a name is reachable either as a
// fully-qualified name from the root, relative to the current module
// (optionally ascended via leading "super" segments), or (for a Jump
// target, not an import itself) via an alias introduced by one of the
// current module's own import entries. Two distinct reachable targets is
// AmbiguousImport; zero is UnresolvedImport/UnresolvedFunction
// (distinguished by the caller via asImport).
func (st *symtab) resolve(fromPath []string, p string, idx *ir.CardIndex, asImport bool) (resolution, error) {
	segments := strings.Split(p, ".")

	candidates := map[string]resolution{}
	addFunc := func(modPath []string, fname string) {
		if fn, found := st.functions[qualify(joinPath(modPath), fname)]; found {
			q := qualify(joinPath(modPath), fname)
			candidates["fn:"+q] = resolution{qualifiedFunc: q, fn: fn, arity: fn.Arity()}
		}
	}
	addModule := func(modPath []string) {
		if !asImport {
			return
		}
		if _, ok := st.modules[joinPath(modPath)]; ok {
			candidates["mod:"+joinPath(modPath)] = resolution{isModule: true, modPath: modPath}
		}
	}

	// alias: a Jump target may name an import alias of the current
	// module as its leading segment (spec.md 4.2, "addressable ... by
	// any alias introduced by an import in the current function's
	// module"). Import entries themselves never resolve through another
	// import's alias.
	if !asImport {
		if a, ok := st.aliases[joinPath(fromPath)][segments[0]]; ok {
			if a.isFunc {
				if len(segments) == 1 {
					candidates["fn:"+a.fn.qualifiedFunc] = a.fn
				}
			} else if modPath, fname, ok := st.resolveModulePath(a.modPath, segments[1:]); ok {
				addFunc(modPath, fname)
			}
		}
	}

	// relative-as-child: treat p as a path rooted at the current module.
	if !strings.HasPrefix(p, ir.Reserved) {
		if modPath, fname, ok := st.resolveModulePath(fromPath, segments); ok {
			addFunc(modPath, fname)
		}
		if modPath, ok := st.resolveModuleOnly(fromPath, segments); ok {
			addModule(modPath)
		}
		// fully-qualified-from-root: treat p as an absolute path.
		if modPath, fname, ok := st.resolveModulePath(nil, segments); ok {
			addFunc(modPath, fname)
		}
		if modPath, ok := st.resolveModuleOnly(nil, segments); ok {
			addModule(modPath)
		}
	} else {
		supers, rest := splitSuper(segments)
		ascended, err := ascend(fromPath, supers)
		if err != nil {
			if asImport {
				return resolution{}, caoerr.NewUnresolvedImport(p, idx)
			}
			return resolution{}, caoerr.NewUnresolvedFunction(p, idx)
		}
		if modPath, fname, ok := st.resolveModulePath(ascended, rest); ok {
			addFunc(modPath, fname)
		}
		if modPath, ok := st.resolveModuleOnly(ascended, rest); ok {
			addModule(modPath)
		}
	}

	switch len(candidates) {
	case 0:
		if asImport {
			return resolution{}, caoerr.NewUnresolvedImport(p, idx)
		}
		return resolution{}, caoerr.NewUnresolvedFunction(p, idx)
	case 1:
		for _, r := range candidates {
			return r, nil
		}
	}
	names := make([]string, 0, len(candidates))
	for q := range candidates {
		names = append(names, strings.TrimPrefix(strings.TrimPrefix(q, "fn:"), "mod:"))
	}
	return resolution{}, caoerr.NewAmbiguousImport(p, names, idx)
}

// resolveCached wraps resolve with the LRU memoization cache required by
// the design notes ("cache resolutions to keep lowering O(cards)").
func (c *config) resolveCached(st *symtab, fromPath []string, p string, idx *ir.CardIndex, asImport bool) (resolution, error) {
	key := joinPath(fromPath) + "|" + p
	if r, ok := c.resolveCache.Get(key); ok {
		c.log("resolve cache hit %q", key)
		return r, nil
	}
	r, err := st.resolve(fromPath, p, idx, asImport)
	if err != nil {
		return resolution{}, err
	}
	c.resolveCache.Add(key, r)
	return r, nil
}
