package jsengine

import (
	"errors"
	"slices"

	"github.com/dop251/goja"
	"github.com/joeycumines/jdb/internal/debugger"
)

// scope is a debugger.Scope whose values are read on demand by evaluating
// each name, so it reflects the state of the parked statement.
type scope struct {
	names []string
	eval  func(expr string) (goja.Value, error)
}

var _ debugger.Scope = (*scope)(nil)

// Bindings skips names that cannot be read yet, e.g. let bindings before
// their declaration.
func (s *scope) Bindings() []debugger.Binding {
	out := make([]debugger.Binding, 0, len(s.names))
	for _, name := range s.names {
		v, err := s.eval(name)
		if err != nil {
			continue
		}
		out = append(out, debugger.Binding{Name: name, Value: v})
	}
	return out
}

// Lookup reads one of the scope's names. Anything else, including
// expressions and globals the scope does not list, is not found. Only a
// ReferenceError means "not found"; any other failure is returned as the
// value.
func (s *scope) Lookup(name string) (any, bool) {
	if !slices.Contains(s.names, name) {
		return nil, false
	}
	v, err := s.eval(name)
	if err == nil {
		return v, true
	}
	if isReferenceError(err) {
		return nil, false
	}
	return evalError(err), true
}

func isReferenceError(err error) bool {
	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return false
	}
	obj, ok := ex.Value().(*goja.Object)
	if !ok {
		return false
	}
	name := obj.Get("name")
	return name != nil && name.String() == "ReferenceError"
}
