// Package nscontract enforces the data-plane's invariants. A violation here
// means the caller broke a precondition the audio thread depends on; it is
// never recoverable in place, so Check and Fail panic rather than return an
// error. Host-async failures use nserrors instead.
package nscontract

import "fmt"

// Violation is the panic value raised by Check and Fail.
type Violation struct {
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

// Check panics with a Violation if cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		panic(&Violation{Message: fmt.Sprintf(format, args...)})
	}
}

// Fail unconditionally panics with a Violation.
func Fail(format string, args ...any) {
	panic(&Violation{Message: fmt.Sprintf(format, args...)})
}
