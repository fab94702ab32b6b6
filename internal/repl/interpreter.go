package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/jdb/internal/debugger"
)

// DefaultPrompt is written before every operator line.
const DefaultPrompt = "> "

// Session is the part of the debugger the interpreter drives.
// *debugger.Coordinator implements it.
type Session interface {
	Stepping() bool
	SetStepping(stepping bool)
	Breakpoints() *debugger.Breakpoints
}

// Engine evaluates operator expressions. Evaluate runs in the scope of the
// current suspension point, or the global scope when the script is not
// suspended.
type Engine interface {
	Evaluate(expr string) (any, error)
	Globals() debugger.Scope
}

// Interpreter runs the operator command loop on the control goroutine.
type Interpreter struct {
	session Session
	engine  Engine
	in      LineReader
	out     io.Writer
	prompt  string
	logger  *slog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithPrompt(prompt string) Option {
	return func(i *Interpreter) { i.prompt = prompt }
}

func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func NewInterpreter(session Session, engine Engine, in LineReader, out io.Writer, opts ...Option) *Interpreter {
	i := &Interpreter{
		session: session,
		engine:  engine,
		in:      in,
		out:     out,
		prompt:  DefaultPrompt,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run reads and executes commands until one of them resumes or aborts the
// script, and returns the continuation decision. A nil snapshot means there
// is no live frame: locals come from the global scope and the backtrace is
// empty.
//
// End of input resumes like "c". A cancelled ctx aborts like "q".
func (i *Interpreter) Run(ctx context.Context, snapshot *debugger.Snapshot) (bool, error) {
	var (
		locals debugger.Scope
		stack  = func() []string { return nil }
	)
	if snapshot != nil {
		i.printf("%s => %s\n", snapshot.Position, snapshot.Position.Source)
		locals, stack = snapshot.Locals, snapshot.CallStack
	} else {
		locals = i.engine.Globals()
	}
	if locals == nil {
		locals = debugger.EmptyScope
	}

	for {
		if err := ctx.Err(); err != nil {
			i.logger.Debug("command loop cancelled", "error", err)
			return false, nil
		}

		line, err := i.in.ReadLine(i.prompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				i.logger.Warn("reading operator input failed, resuming", "error", err)
			}
			i.printf("\n")
			i.session.SetStepping(false)
			return true, nil
		}

		cmd, err := Parse(line)
		if err != nil {
			i.printf("error: %v\n", err)
			continue
		}
		if proceed, done := i.exec(cmd, locals, stack); done {
			return proceed, nil
		}
	}
}

// exec runs one command. done is true when the command ends the loop.
func (i *Interpreter) exec(cmd Command, locals debugger.Scope, stack func() []string) (proceed, done bool) {
	switch c := cmd.(type) {
	case Empty:
	case Backtrace:
		for n, frame := range stack() {
			i.printf("[%d] %s\n", n, frame)
		}
	case Print:
		if v, ok := locals.Lookup(c.Name); ok {
			i.printf("%s => %s\n", c.Name, FormatValue(v))
		} else {
			i.printf("%s => <no such local>\n", c.Name)
		}
	case ListLocals:
		for _, b := range locals.Bindings() {
			i.printf("%s => %s\n", b.Name, FormatValue(b.Value))
		}
	case Step:
		i.session.SetStepping(true)
		return true, true
	case Continue:
		i.session.SetStepping(false)
		return true, true
	case Quit:
		return false, true
	case SetBreak:
		n := i.session.Breakpoints().Add(c.Breakpoint)
		i.logger.Debug("breakpoint added", "index", n, "breakpoint", c.Breakpoint.String())
	case ListBreaks:
		for n, bp := range i.session.Breakpoints().List() {
			i.printf("%d => %s\n", n, bp)
		}
	case DeleteBreak:
		if _, err := i.session.Breakpoints().RemoveAt(c.Index); err != nil {
			i.printf("error: %v\n", err)
		}
	case Evaluate:
		v, err := i.engine.Evaluate(c.Expr)
		if err != nil {
			i.printf("error: %v\n", err)
		} else {
			i.printf("%s\n", FormatValue(v))
		}
	default:
		i.printf("error: unsupported command %T\n", cmd)
	}
	return false, false
}

func (i *Interpreter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(i.out, format, args...)
}

// FormatValue renders an opaque engine value for the operator.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "undefined"
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}
