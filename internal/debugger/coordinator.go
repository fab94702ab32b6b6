package debugger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/joeycumines/jdb/internal/goroutineid"
)

// phase tracks where the execution goroutine is in the handshake. Hooks only
// run from phaseIdle; anything else is a nested call (the engine evaluating
// operator input, or a hook firing inside a hook) and short-circuits.
type phase int32

const (
	phaseIdle phase = iota
	phaseAwaitingControl
	phaseControlActive
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseAwaitingControl:
		return "awaiting-control"
	case phaseControlActive:
		return "control-active"
	default:
		return "unknown"
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for protocol errors and session lifecycle. The
// default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFaultPolicy sets what happens when the Handler errors or panics.
func WithFaultPolicy(policy FaultPolicy) Option {
	return func(c *Coordinator) {
		c.faultPolicy = policy
	}
}

// WithContext sets the parent of every session context passed to the Handler.
// Cancelling it does not release a parked execution goroutine by itself; the
// Handler is expected to observe ctx.Done and return.
func WithContext(ctx context.Context) Option {
	return func(c *Coordinator) {
		if ctx != nil {
			c.parent = ctx
		}
	}
}

// Coordinator implements the execution side of the debugger protocol. The
// engine calls its On* hooks from the goroutine running the script; a Handler
// answers them from a dedicated control goroutine that lives for the span of
// one run.
type Coordinator struct {
	handler     Handler
	logger      *slog.Logger
	faultPolicy FaultPolicy
	parent      context.Context
	breakpoints Breakpoints

	mu       sync.Mutex
	attached bool
	stepping bool
	phase    phase
	session  *session
}

// session is the state of one attached control goroutine.
type session struct {
	id        string
	events    chan Event
	decisions chan bool
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	controlID atomic.Int64
}

// NewCoordinator returns a detached Coordinator. A nil handler is replaced by
// NopHandler.
func NewCoordinator(handler Handler, opts ...Option) *Coordinator {
	if handler == nil {
		handler = NopHandler{}
	}
	c := &Coordinator{
		handler: handler,
		logger:  slog.New(slog.DiscardHandler),
		parent:  context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breakpoints returns the breakpoint list shared by the engine and the
// Handler.
func (c *Coordinator) Breakpoints() *Breakpoints {
	return &c.breakpoints
}

// Stepping reports whether the Handler should be consulted on every step.
func (c *Coordinator) Stepping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepping
}

// SetStepping switches single-step mode on or off.
func (c *Coordinator) SetStepping(stepping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepping = stepping
}

// Attached reports whether a control goroutine is currently running.
func (c *Coordinator) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// SessionID returns the identifier of the attached session, or "".
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.id
}

// OnStart attaches a control goroutine, if none is attached, and hands it the
// program. It returns false when the Handler declines the run, in which case
// the session has already been detached and OnStop must not be relied upon.
// Calling OnStart while attached does nothing and returns true.
func (c *Coordinator) OnStart(program any) bool {
	if !c.enter(EventStart) {
		return true
	}
	defer c.leave()

	c.mu.Lock()
	if c.attached {
		c.mu.Unlock()
		return true
	}
	s := c.attachLocked()
	c.mu.Unlock()

	proceed, ok := c.signalAndWait(s, Event{Kind: EventStart, Program: program})
	if ok && proceed {
		return true
	}
	c.detach(nil)
	return false
}

// OnStep reports a statement boundary. It blocks until the Handler decides.
func (c *Coordinator) OnStep(snapshot *Snapshot) bool {
	return c.suspend(Event{Kind: EventStep, Snapshot: snapshot})
}

// OnBreak reports a breakpoint hit. It switches the session into stepping
// mode before delegating to the Handler.
func (c *Coordinator) OnBreak(snapshot *Snapshot) bool {
	return c.suspend(Event{Kind: EventBreak, Snapshot: snapshot})
}

// OnStop hands the final result to the Handler, waits for the control
// goroutine to exit and detaches. It is a no-op when not attached.
func (c *Coordinator) OnStop(result any) {
	if !c.enter(EventStop) {
		return
	}
	defer c.leave()
	c.detach(result)
}

func (c *Coordinator) suspend(ev Event) bool {
	if !c.enter(ev.Kind) {
		return true
	}
	defer c.leave()

	c.mu.Lock()
	s := c.session
	attached := c.attached
	if attached && ev.Kind == EventBreak {
		c.stepping = true
	}
	c.mu.Unlock()

	if !attached {
		c.logger.Error("debugger: protocol error", "hook", ev.Kind.String(), "error", ErrNotAttached)
		return false
	}

	proceed, ok := c.signalAndWait(s, ev)
	if !ok {
		c.logger.Error("debugger: control goroutine exited", "hook", ev.Kind.String(), "session", s.id)
		return false
	}
	return proceed
}

// enter claims the handshake for a hook. It returns false if the hook must
// short-circuit.
func (c *Coordinator) enter(kind EventKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == phaseIdle {
		c.phase = phaseAwaitingControl
		return true
	}
	// The control goroutine only runs handler code while a hook is parked,
	// so it is told apart here rather than on every statement.
	if s := c.session; s != nil && s.controlID.Load() == goroutineid.Get() {
		c.logger.Debug("debugger: hook ignored", "hook", kind.String(), "error", ErrControlGoroutine)
	} else {
		c.logger.Debug("debugger: nested hook ignored", "hook", kind.String(), "phase", c.phase.String())
	}
	return false
}

func (c *Coordinator) leave() {
	c.mu.Lock()
	c.phase = phaseIdle
	c.mu.Unlock()
}

func (c *Coordinator) setPhase(p phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Coordinator) attachLocked() *session {
	ctx, cancel := context.WithCancel(c.parent)
	s := &session{
		id:        uuid.NewString(),
		events:    make(chan Event),
		decisions: make(chan bool),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.session = s
	c.attached = true
	go c.controlLoop(s)
	c.logger.Info("debugger: session attached", "session", s.id)
	return s
}

// detach sends the stop event and joins the control goroutine.
func (c *Coordinator) detach(result any) {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}
	c.attached = false
	s := c.session
	c.mu.Unlock()

	if _, ok := c.signalAndWait(s, Event{Kind: EventStop, Result: result}); !ok {
		c.logger.Warn("debugger: control goroutine exited before stop", "session", s.id)
	}
	<-s.done
	s.cancel()

	c.mu.Lock()
	c.session = nil
	c.stepping = false
	c.mu.Unlock()
	c.logger.Info("debugger: session detached", "session", s.id)
}

// signalAndWait publishes ev and parks until the control goroutine answers.
// ok is false if the control goroutine exited instead.
func (c *Coordinator) signalAndWait(s *session, ev Event) (proceed, ok bool) {
	select {
	case s.events <- ev:
	case <-s.done:
		return false, false
	}
	select {
	case proceed = <-s.decisions:
		return proceed, true
	case <-s.done:
		return false, false
	}
}

func (c *Coordinator) controlLoop(s *session) {
	defer close(s.done)
	s.controlID.Store(goroutineid.Get())
	logger := c.logger.With("session", s.id)
	for ev := range s.events {
		c.setPhase(phaseControlActive)
		s.decisions <- c.dispatch(s.ctx, logger, ev)
		if ev.Kind == EventStop {
			return
		}
	}
}

// dispatch runs the Handler for ev and applies the fault policy.
func (c *Coordinator) dispatch(ctx context.Context, logger *slog.Logger, ev Event) (proceed bool) {
	defer func() {
		if r := recover(); r != nil {
			proceed = c.onFault(logger, ev, fmt.Errorf("%w: panic: %v", ErrHandlerFault, r))
		}
	}()

	var err error
	switch ev.Kind {
	case EventStart:
		proceed, err = c.handler.Start(ctx, ev.Program)
	case EventStep:
		proceed, err = c.handler.Step(ctx, ev.Snapshot)
	case EventBreak:
		proceed, err = c.handler.Break(ctx, ev.Snapshot)
	case EventStop:
		err = c.handler.Stop(ctx, ev.Result)
		proceed = true
	}
	if err != nil {
		return c.onFault(logger, ev, fmt.Errorf("%w: %w", ErrHandlerFault, err))
	}
	return proceed
}

func (c *Coordinator) onFault(logger *slog.Logger, ev Event, err error) bool {
	logger.Error("debugger: handler failed", "event", ev.Kind.String(), "policy", c.faultPolicy.String(), "error", err)
	if ev.Kind == EventStop {
		return true
	}
	return c.faultPolicy != FaultAbort
}
