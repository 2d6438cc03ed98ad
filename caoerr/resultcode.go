package caoerr

import "fmt"

// ResultCode is the small integer surfaced across the C ABI boundary
// (spec.md section 6): Ok, CompileError, RuntimeError, Timeout, BadInput.
type ResultCode int

const (
	Ok ResultCode = iota
	ResultCompileError
	ResultRuntimeError
	ResultTimeout
	ResultBadInput
)

func (c ResultCode) String() string {
	switch c {
	case Ok:
		return "Ok"
	case ResultCompileError:
		return "CompileError"
	case ResultRuntimeError:
		return "RuntimeError"
	case ResultTimeout:
		return "Timeout"
	case ResultBadInput:
		return "BadInput"
	default:
		return "Unknown"
	}
}

// BadInput reports a malformed host payload: a persisted CompiledProgram
// that fails to decode, or any other boundary input the core rejects
// before it ever reaches the compiler or VM. It is the one error kind with
// no CardIndex/Trace at all — it never got far enough to have one.
type BadInput struct {
	Message string
}

func (e *BadInput) Error() string { return fmt.Sprintf("BadInput: %s", e.Message) }

func NewBadInput(message string) *BadInput {
	return &BadInput{Message: message}
}

// Code maps any error produced by this package (or nil) to the ResultCode
// a C ABI wrapper would return. A non-nil error of an unrecognized type is
// still reported as RuntimeError rather than silently mapped to Ok.
func Code(err error) ResultCode {
	switch e := err.(type) {
	case nil:
		return Ok
	case *Compile:
		return ResultCompileError
	case *Runtime:
		if e.Kind == Timeout {
			return ResultTimeout
		}
		return ResultRuntimeError
	case *BadInput:
		return ResultBadInput
	default:
		return ResultRuntimeError
	}
}
