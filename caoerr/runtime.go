package caoerr

import "fmt"

// RuntimeKind enumerates the closed set of runtime error variants from
// spec.md section 7.
type RuntimeKind int

const (
	StackOverflow RuntimeKind = iota
	StackUnderflow
	TypeMismatch
	DivideByZero
	InvalidKey
	NativeNotFound
	NativeError
	Aborted
	Timeout
	ValueStackExhausted
	ObjectArenaExhausted
)

func (k RuntimeKind) String() string {
	switch k {
	case StackOverflow:
		return "StackOverflow"
	case StackUnderflow:
		return "StackUnderflow"
	case TypeMismatch:
		return "TypeMismatch"
	case DivideByZero:
		return "DivideByZero"
	case InvalidKey:
		return "InvalidKey"
	case NativeNotFound:
		return "NativeNotFound"
	case NativeError:
		return "NativeError"
	case Aborted:
		return "Aborted"
	case Timeout:
		return "Timeout"
	case ValueStackExhausted:
		return "ValueStackExhausted"
	case ObjectArenaExhausted:
		return "ObjectArenaExhausted"
	default:
		return "Unknown"
	}
}

// Runtime is a single runtime error. Every runtime error carries its Kind,
// a human message and the full call-stack Trace at the moment of failure.
type Runtime struct {
	Kind     RuntimeKind
	Message  string
	Trace    Trace
	Expected string
	Got      string
	Name     string
}

func (e *Runtime) Error() string {
	if len(e.Trace) > 0 {
		return fmt.Sprintf("%s: %s (trace: %s)", e.Kind, e.Message, e.Trace)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// RuntimeTrace implements the trace-carrying error interface VMs use to
// attach/inspect traces uniformly.
func (e *Runtime) RuntimeTrace() Trace { return e.Trace }

// WithTrace returns a copy of e with its Trace set, used by the VM to
// attach the current call-stack trace to an error raised deeper down
// (e.g. inside value arithmetic) without that code needing to know about
// frames.
func (e *Runtime) WithTrace(t Trace) *Runtime {
	out := *e
	out.Trace = t
	return &out
}

func NewStackOverflow(trace Trace) *Runtime {
	return &Runtime{Kind: StackOverflow, Message: "call stack exceeded recursion limit", Trace: trace}
}

func NewStackUnderflow(trace Trace) *Runtime {
	return &Runtime{Kind: StackUnderflow, Message: "value stack underflow", Trace: trace}
}

func NewTypeMismatch(expected, got string, trace Trace) *Runtime {
	return &Runtime{Kind: TypeMismatch, Expected: expected, Got: got, Trace: trace,
		Message: fmt.Sprintf("expected %s, got %s", expected, got)}
}

func NewDivideByZero(trace Trace) *Runtime {
	return &Runtime{Kind: DivideByZero, Message: "division by zero", Trace: trace}
}

func NewInvalidKey(trace Trace) *Runtime {
	return &Runtime{Kind: InvalidKey, Message: "invalid table key", Trace: trace}
}

func NewNativeNotFound(name string, trace Trace) *Runtime {
	return &Runtime{Kind: NativeNotFound, Name: name, Trace: trace,
		Message: fmt.Sprintf("native function %q not registered", name)}
}

func NewNativeError(message string, trace Trace) *Runtime {
	return &Runtime{Kind: NativeError, Message: message, Trace: trace}
}

func NewAborted(message string, trace Trace) *Runtime {
	if message == "" {
		message = "aborted"
	}
	return &Runtime{Kind: Aborted, Message: message, Trace: trace}
}

func NewTimeout(trace Trace) *Runtime {
	return &Runtime{Kind: Timeout, Message: "instruction budget exhausted", Trace: trace}
}

func NewValueStackExhausted(trace Trace) *Runtime {
	return &Runtime{Kind: ValueStackExhausted, Message: "value stack capacity exceeded", Trace: trace}
}

func NewObjectArenaExhausted(trace Trace) *Runtime {
	return &Runtime{Kind: ObjectArenaExhausted, Message: "object arena capacity exceeded", Trace: trace}
}
