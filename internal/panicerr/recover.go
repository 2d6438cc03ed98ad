// Package panicerr turns a panicking or runtime.Goexit-ing callback into a
// typed error instead of letting it crash the host process that embeds the
// VM. A misbehaving host native function must fail the current VM.Run with
// a NativeError, not take down the whole embedding application.
package panicerr

// Recover runs f on a fresh goroutine and converts an abnormal exit — a
// panic or a runtime.Goexit call anywhere in f's call graph — into a
// non-nil error return instead of propagating it to the caller's
// goroutine. name identifies the isolated unit of work in the resulting
// error message (cao-lang uses this to say which VM run or native call
// misbehaved).
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		defer close(errch)
		defer captureExit(name, errch)
		defer capturePanic(name, errch)
		errch <- f()
	}()
	return <-errch
}
