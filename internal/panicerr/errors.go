package panicerr

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// capturePanic is deferred inside Recover's goroutine; if f panicked, it
// turns the recovered value into a recoveredPanic and sends it on errch
// (best-effort: a prior happy-path send on the buffered channel wins).
func capturePanic(name string, errch chan<- error) {
	var rp recoveredPanic
	if rp.val = recover(); rp.val != nil {
		rp.unit = name
		rp.stack = debug.Stack()
		select {
		case errch <- rp:
		default:
		}
	}
}

// recoveredPanic wraps whatever value was passed to panic() inside an
// isolated unit of work, along with the stack at the moment it unwound.
type recoveredPanic struct {
	unit  string
	val   interface{}
	stack []byte
}

func (rp recoveredPanic) Error() string {
	return fmt.Sprint(rp)
}

func (rp recoveredPanic) Format(f fmt.State, c rune) {
	if rp.unit == "" {
		fmt.Fprintf(f, "panicked: %v", rp.val)
	} else {
		fmt.Fprintf(f, "%v panicked: %v", rp.unit, rp.val)
	}
	if c == 'v' && f.Flag('+') {
		fmt.Fprintf(f, "\npanic stack: %s", rp.stack)
	}
}

func (rp recoveredPanic) Unwrap() error {
	err, _ := rp.val.(error)
	return err
}

// IsPanic reports whether err wraps a panic recovered from an isolated
// unit of work (a VM.Run or a host native callback).
func IsPanic(err error) bool {
	var rp recoveredPanic
	return errors.As(err, &rp)
}

// PanicStack returns the stack trace captured at the moment of a recovered
// panic, or "" if err doesn't wrap one.
func PanicStack(err error) string {
	var rp recoveredPanic
	if errors.As(err, &rp) {
		return string(rp.stack)
	}
	return ""
}

// captureExit is deferred inside Recover's goroutine; it fires whenever the
// goroutine unwinds without the happy-path send on errch ever landing,
// which is exactly what runtime.Goexit (called anywhere in f's call graph,
// e.g. by a native callback using t.FailNow()-style control flow) looks
// like from the outside.
func captureExit(name string, errch chan<- error) {
	select {
	case errch <- recoveredExit(name):
	default:
		// the happy path already sent (possibly nil); nothing to report.
	}
}

// recoveredExit reports an isolated unit of work that called
// runtime.Goexit instead of returning normally.
type recoveredExit string

func (unit recoveredExit) Error() string {
	if unit == "" {
		return "runtime.Goexit called"
	}
	return fmt.Sprintf("%v called runtime.Goexit", string(unit))
}

// IsExit reports whether err wraps a recovered runtime.Goexit.
func IsExit(err error) bool {
	var re recoveredExit
	return errors.As(err, &re)
}
