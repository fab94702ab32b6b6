package repl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/joeycumines/jdb/internal/debugger"
)

// Command is one parsed operator line. The concrete types below are the only
// implementations.
type Command interface {
	command()
}

type (
	// Empty is a blank line.
	Empty struct{}
	// Backtrace prints the call stack ("bt").
	Backtrace struct{}
	// Print prints one local ("p <name>").
	Print struct{ Name string }
	// ListLocals prints every local ("l").
	ListLocals struct{}
	// Step resumes in stepping mode ("n").
	Step struct{}
	// Continue resumes until the next breakpoint ("c" or "r").
	Continue struct{}
	// Quit aborts the run ("q").
	Quit struct{}
	// SetBreak registers a breakpoint ("bp <line> [col] [cond]").
	SetBreak struct{ Breakpoint debugger.Breakpoint }
	// ListBreaks prints the breakpoints ("lbp").
	ListBreaks struct{}
	// DeleteBreak removes a breakpoint by index ("dbp <index>").
	DeleteBreak struct{ Index int }
	// Evaluate evaluates the whole line as an expression.
	Evaluate struct{ Expr string }
)

func (Empty) command()       {}
func (Backtrace) command()   {}
func (Print) command()       {}
func (ListLocals) command()  {}
func (Step) command()        {}
func (Continue) command()    {}
func (Quit) command()        {}
func (SetBreak) command()    {}
func (ListBreaks) command()  {}
func (DeleteBreak) command() {}
func (Evaluate) command()    {}

var errMissingArgument = errors.New("missing argument")

// Parse classifies line by its first token, case-insensitively. Keywords that
// take no arguments only match when they are the whole line; anything that is
// not a command is returned as Evaluate with the line verbatim.
func Parse(line string) (Command, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return Empty{}, nil
	}
	head, rest := cutField(text)

	var bare Command
	switch strings.ToLower(head) {
	case "bt":
		bare = Backtrace{}
	case "l":
		bare = ListLocals{}
	case "n":
		bare = Step{}
	case "c", "r":
		bare = Continue{}
	case "q":
		bare = Quit{}
	case "lbp":
		bare = ListBreaks{}
	case "p":
		if rest == "" {
			return nil, fmt.Errorf("p: %w: variable name", errMissingArgument)
		}
		return Print{Name: rest}, nil
	case "bp":
		bp, err := parseBreakpoint(rest)
		if err != nil {
			return nil, fmt.Errorf("bp: %w", err)
		}
		return SetBreak{Breakpoint: bp}, nil
	case "dbp":
		if rest == "" {
			return nil, fmt.Errorf("dbp: %w: index", errMissingArgument)
		}
		index, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("dbp: invalid index %q", rest)
		}
		return DeleteBreak{Index: index}, nil
	}
	if bare != nil && rest == "" {
		return bare, nil
	}
	return Evaluate{Expr: text}, nil
}

// parseBreakpoint parses "<line> [col] [cond]". A column of 0 or "*" matches
// any column; the condition is the rest of the line, spaces included.
func parseBreakpoint(args string) (debugger.Breakpoint, error) {
	field, rest := cutField(args)
	if field == "" {
		return debugger.Breakpoint{}, fmt.Errorf("%w: line", errMissingArgument)
	}
	line, err := strconv.Atoi(field)
	if err != nil || line < 1 {
		return debugger.Breakpoint{}, fmt.Errorf("invalid line %q", field)
	}
	bp := debugger.AtLine(line)

	field, rest = cutField(rest)
	switch field {
	case "", "*", "0":
	default:
		col, err := strconv.Atoi(field)
		if err != nil || col < 0 {
			return debugger.Breakpoint{}, fmt.Errorf("invalid column %q", field)
		}
		bp = debugger.At(line, col)
	}
	return bp.When(rest), nil
}

// cutField splits s at the first run of whitespace, trimming both parts.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
