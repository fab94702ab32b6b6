// Package jsengine runs JavaScript under the debugger. Scripts are
// instrumented with a hook call before every statement; the hook consults
// the breakpoints and reports to the debugger hooks on the goroutine that
// called Run.
package jsengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/jdb/internal/debugger"
)

// ErrAborted is returned by Run when the debugger or ctx stopped the script.
var ErrAborted = errors.New("script aborted")

// Hooks is implemented by *debugger.Coordinator.
type Hooks interface {
	OnStart(program any) bool
	OnStep(snapshot *debugger.Snapshot) bool
	OnBreak(snapshot *debugger.Snapshot) bool
	OnStop(result any)
}

// BreakpointSource is implemented by *debugger.Breakpoints.
type BreakpointSource interface {
	Matching(pos debugger.Position) []debugger.Breakpoint
}

// Script is a compiled, instrumented script. Its String is the script name,
// which is what the debugger prints on start.
type Script struct {
	Name   string
	Source string

	program    *goja.Program
	statements []statement
	globals    []string
}

func (s *Script) String() string { return s.Name }

// Compile instruments and compiles src.
func Compile(name, src string) (*Script, error) {
	inst, err := instrument(name, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	program, err := goja.Compile(name, inst.source, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return &Script{
		Name:       name,
		Source:     src,
		program:    program,
		statements: inst.statements,
		globals:    inst.globals,
	}, nil
}

// Engine is a goja runtime wired to the debugger. Run is called from the
// execution goroutine; Evaluate and Globals may be called from the control
// goroutine while the execution goroutine is parked in a hook.
type Engine struct {
	hooks       Hooks
	breakpoints BreakpointSource
	logger      *slog.Logger
	stdout      io.Writer
	stderr      io.Writer

	vm       *goja.Runtime
	registry *require.Registry

	inHook atomic.Bool

	mu     sync.Mutex
	script *Script
	// frame evaluates in the scope of the suspended statement, if any.
	frame goja.Callable
}

// Option configures an Engine.
type Option func(*Engine)

func WithBreakpoints(src BreakpointSource) Option {
	return func(e *Engine) { e.breakpoints = src }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithOutput sets where the script's print functions write. Defaults to
// os.Stdout and os.Stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		if stdout != nil {
			e.stdout = stdout
		}
		if stderr != nil {
			e.stderr = stderr
		}
	}
}

// New creates an Engine reporting to hooks.
func New(hooks Hooks, opts ...Option) *Engine {
	e := &Engine{
		hooks:  hooks,
		logger: slog.New(slog.DiscardHandler),
		stdout: os.Stdout,
		stderr: os.Stderr,
		vm:     goja.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = require.NewRegistry()
	e.registry.RegisterNativeModule(ModuleName, e.requireModule)
	e.registry.Enable(e.vm)
	console.Enable(e.vm)
	e.installGlobals()
	return e
}

// Runtime exposes the underlying runtime, e.g. to install extra globals
// before Run.
func (e *Engine) Runtime() *goja.Runtime { return e.vm }

// RunString compiles and runs src.
func (e *Engine) RunString(ctx context.Context, name, src string) (goja.Value, error) {
	script, err := Compile(name, src)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, script)
}

// Run executes script on the calling goroutine, bracketed by the start and
// stop hooks. It returns ErrAborted if the start hook declines the run, a
// step or break hook returns false, or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, script *Script) (goja.Value, error) {
	e.mu.Lock()
	e.script = script
	e.mu.Unlock()

	logger := e.logger.With("script", script.Name)
	if !e.suspended(func() bool { return e.hooks.OnStart(script) }) {
		logger.Info("run declined at start")
		return nil, ErrAborted
	}

	stop := context.AfterFunc(ctx, func() {
		e.vm.Interrupt(fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx)))
	})
	result, err := e.run(script)
	stop()
	e.vm.ClearInterrupt()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) && errors.Is(err, ErrAborted) {
			err = ErrAborted
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))
			}
		}
		logger.Info("run failed", "error", err)
		e.stop(err)
		return nil, err
	}
	logger.Debug("run finished", "result", result)
	e.stop(result)
	return result, nil
}

// suspended runs a start or stop hook with step reporting disabled, so
// operator evaluation at those prompts does not report steps.
func (e *Engine) suspended(hook func() bool) bool {
	e.inHook.Store(true)
	defer e.inHook.Store(false)
	return hook()
}

func (e *Engine) stop(result any) {
	e.suspended(func() bool {
		e.hooks.OnStop(result)
		return true
	})
}

func (e *Engine) run(script *Script) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script panicked: %v", r)
		}
	}()
	return e.vm.RunProgram(script.program)
}

// step is the hook the instrumented source calls before each statement.
func (e *Engine) step(call goja.FunctionCall) goja.Value {
	// Operator evaluation and breakpoint conditions may call back into
	// instrumented code.
	if !e.inHook.CompareAndSwap(false, true) {
		return goja.Undefined()
	}
	defer e.inHook.Store(false)

	e.mu.Lock()
	script := e.script
	e.mu.Unlock()
	id := int(call.Argument(0).ToInteger())
	getter, ok := goja.AssertFunction(call.Argument(1))
	if script == nil || !ok || id < 0 || id >= len(script.statements) {
		return goja.Undefined()
	}
	st := script.statements[id]

	eval := func(expr string) (goja.Value, error) {
		return getter(goja.Undefined(), e.vm.ToValue(expr))
	}
	snapshot := &debugger.Snapshot{
		Position: st.pos,
		Locals:   &scope{names: st.names, eval: eval},
		Frames:   e.callStack,
	}

	e.setFrame(getter)
	defer e.setFrame(nil)

	var proceed bool
	if st.debugger || e.shouldBreak(st.pos, eval) {
		proceed = e.hooks.OnBreak(snapshot)
	} else {
		proceed = e.hooks.OnStep(snapshot)
	}
	if !proceed {
		e.vm.Interrupt(ErrAborted)
	}
	return goja.Undefined()
}

// shouldBreak reports whether any breakpoint at pos has no condition or a
// truthy one. Conditions that throw are treated as false.
func (e *Engine) shouldBreak(pos debugger.Position, eval func(string) (goja.Value, error)) bool {
	if e.breakpoints == nil {
		return false
	}
	for _, bp := range e.breakpoints.Matching(pos) {
		if bp.Condition == "" {
			return true
		}
		v, err := eval(bp.Condition)
		if err != nil {
			e.logger.Warn("breakpoint condition failed", "breakpoint", bp.String(), "error", evalError(err))
			continue
		}
		if v.ToBoolean() {
			return true
		}
	}
	return false
}

// callStack labels the script frames, innermost first.
func (e *Engine) callStack() []string {
	frames := e.vm.CaptureCallStack(0, nil)
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		if f.SrcName() == "<native>" {
			continue
		}
		out = append(out, fmt.Sprintf("%s (%s:%d)", f.FuncName(), f.SrcName(), f.Position().Line))
	}
	return out
}

func (e *Engine) setFrame(frame goja.Callable) {
	e.mu.Lock()
	e.frame = frame
	e.mu.Unlock()
}

// Evaluate evaluates expr in the scope of the suspended statement, or in the
// global scope if the script is not suspended at a statement.
func (e *Engine) Evaluate(expr string) (any, error) {
	e.mu.Lock()
	frame := e.frame
	e.mu.Unlock()

	var (
		v   goja.Value
		err error
	)
	if frame != nil {
		v, err = frame(goja.Undefined(), e.vm.ToValue(expr))
	} else {
		v, err = e.evalGlobal(expr)
	}
	if err != nil {
		return nil, evalError(err)
	}
	return v, nil
}

func (e *Engine) evalGlobal(expr string) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()
	return e.vm.RunString(expr)
}

// Globals returns the names declared at the top level of the current script
// plus the enumerable properties of the global object.
func (e *Engine) Globals() debugger.Scope {
	e.mu.Lock()
	script := e.script
	e.mu.Unlock()

	var names []string
	if script != nil {
		names = append(names, script.globals...)
	}
	for _, key := range e.vm.GlobalObject().Keys() {
		if !isBuiltinGlobal(key) {
			names = append(names, key)
		}
	}
	return &scope{names: dedupe(names), eval: e.evalGlobal}
}

// evalError strips the stack trace from script exceptions.
func evalError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) && ex.Value() != nil {
		return errors.New(ex.Value().String())
	}
	return err
}
