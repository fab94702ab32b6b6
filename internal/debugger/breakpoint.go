package debugger

import (
	"fmt"
	"strconv"
	"sync"
)

// Breakpoint is a registered location with an optional condition. The
// condition is script source; only the engine evaluates it.
type Breakpoint struct {
	Line int
	// Column is ignored when AnyColumn is set.
	Column    int
	AnyColumn bool
	Condition string
}

// AtLine returns a breakpoint matching any column of line.
func AtLine(line int) Breakpoint {
	return Breakpoint{Line: line, AnyColumn: true}
}

// At returns a breakpoint matching exactly line and column.
func At(line, column int) Breakpoint {
	return Breakpoint{Line: line, Column: column}
}

// When returns a copy of b with the given condition.
func (b Breakpoint) When(condition string) Breakpoint {
	b.Condition = condition
	return b
}

// Matches reports whether b is located at pos. The condition is not
// considered.
func (b Breakpoint) Matches(pos Position) bool {
	if b.Line != pos.Line {
		return false
	}
	return b.AnyColumn || b.Column == pos.Column
}

// String formats b as line:column, with "*" for any column, followed by the
// condition if there is one.
func (b Breakpoint) String() string {
	col := "*"
	if !b.AnyColumn {
		col = strconv.Itoa(b.Column)
	}
	if b.Condition == "" {
		return fmt.Sprintf("%d:%s", b.Line, col)
	}
	return fmt.Sprintf("%d:%s %s", b.Line, col, b.Condition)
}

// Breakpoints is an ordered, index-addressed list of breakpoints. The control
// goroutine mutates it while the execution goroutine is parked; the engine
// reads it while running. Duplicates are allowed.
type Breakpoints struct {
	mu   sync.RWMutex
	list []Breakpoint
}

// Add appends bp and returns its index.
func (s *Breakpoints) Add(bp Breakpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, bp)
	return len(s.list) - 1
}

// RemoveAt deletes the breakpoint at index, shifting later ones down.
func (s *Breakpoints) RemoveAt(index int) (Breakpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.list) {
		return Breakpoint{}, fmt.Errorf("%w: %d (have %d)", ErrBreakpointIndex, index, len(s.list))
	}
	bp := s.list[index]
	s.list = append(s.list[:index], s.list[index+1:]...)
	return bp, nil
}

// List returns a copy of the breakpoints in index order.
func (s *Breakpoints) List() []Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Breakpoint, len(s.list))
	copy(out, s.list)
	return out
}

func (s *Breakpoints) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// Matching returns the breakpoints located at pos, in index order.
func (s *Breakpoints) Matching(pos Position) []Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Breakpoint
	for _, bp := range s.list {
		if bp.Matches(pos) {
			out = append(out, bp)
		}
	}
	return out
}
