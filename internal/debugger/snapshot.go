package debugger

import (
	"fmt"
	"slices"
	"sync"
)

// Position identifies a statement in the debugged source.
type Position struct {
	Line   int
	Column int
	// Source is the text of the statement, trimmed to its first line.
	Source string
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Binding is a single name visible in a scope. Value is an opaque engine
// value; the debugger only renders it.
type Binding struct {
	Name  string
	Value any
}

// Scope is a read-only view of the bindings visible at a suspension point.
type Scope interface {
	// Bindings returns every visible binding, in declaration order.
	Bindings() []Binding
	// Lookup returns the value bound to name, if any.
	Lookup(name string) (any, bool)
}

// Snapshot is the state of the script at a suspension point. The engine
// builds a new one for every hook call; it is discarded once the control
// goroutine answers.
type Snapshot struct {
	Position Position
	Locals   Scope
	// Frames captures the frame labels, innermost first. It is only called
	// by CallStack, at most once, while the snapshot is live. Nil means an
	// empty stack.
	Frames func() []string

	once  sync.Once
	stack []string
}

// CallStack returns the frame labels, innermost first. Capturing them is
// deferred until something asks, so statements nobody inspects stay cheap.
func (s *Snapshot) CallStack() []string {
	s.once.Do(func() {
		if s.Frames != nil {
			s.stack = s.Frames()
		}
	})
	return s.stack
}

// StaticFrames adapts a fixed list of frame labels to Snapshot.Frames.
func StaticFrames(frames ...string) func() []string {
	return func() []string { return frames }
}

// MapScope is a Scope over a fixed, ordered list of bindings.
type MapScope []Binding

func (s MapScope) Bindings() []Binding {
	return slices.Clone(s)
}

func (s MapScope) Lookup(name string) (any, bool) {
	for _, b := range s {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

// EmptyScope has no bindings.
var EmptyScope Scope = MapScope(nil)
