package debugger

import "errors"

var (
	// ErrNotAttached is reported when a step or break hook fires without a
	// preceding OnStart.
	ErrNotAttached = errors.New("debugger: no control goroutine attached")

	// ErrControlGoroutine is reported when a hook is entered from the control
	// goroutine itself, e.g. while evaluating an expression for the operator.
	ErrControlGoroutine = errors.New("debugger: hook called from the control goroutine")

	// ErrHandlerFault wraps errors and panics raised by a Handler.
	ErrHandlerFault = errors.New("debugger: handler fault")

	// ErrBreakpointIndex is returned when deleting a breakpoint that does not
	// exist.
	ErrBreakpointIndex = errors.New("breakpoint index out of range")
)
