package vm

// VMOption configures a VM, composed the same way gothird composes its
// own VMOption: each option applies itself to a *VM, and Options(...)
// flattens a variadic list (including nested option lists) into one.
type VMOption interface{ apply(vm *VM) }

// DefaultValueStackCap/DefaultCallStackCap/DefaultArenaLimit mirror
// spec.md section 3's stated defaults (value stack 512, call stack /
// recursion limit 256).
const (
	DefaultValueStackCap = 512
	DefaultCallStackCap  = 256
)

type noption struct{}

func (noption) apply(*VM) {}

type options []VMOption

func (opts options) apply(vm *VM) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(vm)
		}
	}
}

// Options flattens a variadic option list into one VMOption, the way
// gothird's api.go VMOptions(...) does.
func Options(opts ...VMOption) VMOption {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil, noption:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	switch len(res) {
	case 0:
		return noption{}
	case 1:
		return res[0]
	default:
		return res
	}
}

type valueStackCapOption int

// WithValueStackCap bounds the value stack depth (default
// DefaultValueStackCap).
func WithValueStackCap(cap int) VMOption { return valueStackCapOption(cap) }

func (o valueStackCapOption) apply(vm *VM) { vm.stackCap = int(o) }

type callStackCapOption int

// WithCallStackCap bounds the call stack depth, which doubles as the
// recursion limit (default DefaultCallStackCap).
func WithCallStackCap(cap int) VMOption { return callStackCapOption(cap) }

func (o callStackCapOption) apply(vm *VM) { vm.callStackCap = int(o) }

type arenaLimitOption int

// WithArenaLimit bounds the number of live heap objects (strings, tables)
// a VM may allocate (default value.DefaultArenaLimit).
func WithArenaLimit(limit int) VMOption { return arenaLimitOption(limit) }

func (o arenaLimitOption) apply(vm *VM) { vm.arenaLimit = int(o) }

type maxInstructionsOption int64

// WithMaxInstructions installs an instruction budget: Run returns
// caoerr.Timeout once that many instructions have executed within a single
// call to Run (0, the default, means unbounded). A VM that timed out may
// be resumed by calling Run again on the same program: the saved ip picks
// up where execution left off and the instruction budget is replenished to
// n for that call.
func WithMaxInstructions(n int64) VMOption { return maxInstructionsOption(n) }

func (o maxInstructionsOption) apply(vm *VM) { vm.maxInstructions = int64(o) }

type logfOption func(mess string, args ...interface{})

// WithLogf installs a logf-style diagnostic hook, invoked on
// native-dispatch and resume events, mirroring gothird's WithLogf.
func WithLogf(logf func(mess string, args ...interface{})) VMOption {
	return logfOption(logf)
}

func (o logfOption) apply(vm *VM) { vm.logf = o }

type nativeOption struct {
	name  string
	fn    NativeFunc
	arity int
}

// WithNative pre-registers a host callback the way VM.RegisterFunction
// does, as a constructable VMOption for hosts that want to build their
// whole native surface at VM construction time.
func WithNative(name string, fn NativeFunc, arity int) VMOption {
	return nativeOption{name: name, fn: fn, arity: arity}
}

func (o nativeOption) apply(vm *VM) { vm.registerFunction(o.name, o.fn, o.arity) }
