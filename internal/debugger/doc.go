// Package debugger implements the coordinator that pairs a script's
// execution goroutine with an interactive control goroutine.
//
// The script engine calls the four hooks (OnStart, OnStep, OnBreak, OnStop)
// synchronously from the goroutine running the script. Each hook hands an
// Event to the control goroutine over an unbuffered channel and parks until
// the control goroutine answers with a decision, so at most one side runs at
// any time:
//
//	execution goroutine            control goroutine
//	-------------------            -----------------
//	OnStep(snapshot) ──Event──▶    Handler.Step(snapshot)
//	       (parked)    ◀─bool──    (operator types "n")
//	next statement ...
//
// Breakpoints are owned by the Coordinator but only consulted by the engine.
package debugger
