package repl

import (
	"testing"

	"github.com/joeycumines/jdb/internal/debugger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Command
	}{
		{"", Empty{}},
		{"   \t", Empty{}},
		{"bt", Backtrace{}},
		{"BT", Backtrace{}},
		{"  l  ", ListLocals{}},
		{"n", Step{}},
		{"c", Continue{}},
		{"r", Continue{}},
		{"Q", Quit{}},
		{"lbp", ListBreaks{}},
		{"p x", Print{Name: "x"}},
		{"P   total ", Print{Name: "total"}},
		{"bp 10", SetBreak{Breakpoint: debugger.AtLine(10)}},
		{"bp 10 0", SetBreak{Breakpoint: debugger.AtLine(10)}},
		{"bp 10 *", SetBreak{Breakpoint: debugger.AtLine(10)}},
		{"bp 10 4", SetBreak{Breakpoint: debugger.At(10, 4)}},
		{"bp 10 0 x>0", SetBreak{Breakpoint: debugger.AtLine(10).When("x>0")}},
		{"bp 3 * i > 2 && s === 'a b'", SetBreak{Breakpoint: debugger.AtLine(3).When("i > 2 && s === 'a b'")}},
		{"dbp 2", DeleteBreak{Index: 2}},
		{"dbp -1", DeleteBreak{Index: -1}},
		{"1 + 2", Evaluate{Expr: "1 + 2"}},
		{"  Math.max(1, 2) ", Evaluate{Expr: "Math.max(1, 2)"}},
		// keywords with trailing text are expressions
		{"n + 1", Evaluate{Expr: "n + 1"}},
		{"c = 3", Evaluate{Expr: "c = 3"}},
		{"bt2", Evaluate{Expr: "bt2"}},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{
		"p",
		"bp",
		"bp x",
		"bp 0",
		"bp -3",
		"bp 10 y",
		"bp 10 -1",
		"dbp",
		"dbp one",
		"dbp 1 2",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.Error(t, err)
		})
	}
}
